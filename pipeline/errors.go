package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. The legacy scripts logged every
// failure the same way and sometimes exited 0 with no output; each kind
// now maps to its own exit code.
type Kind int

const (
	KindInput    Kind = iota + 1 // bad arguments or option combinations
	KindData                     // unreadable DSM, missing CRS, bad observer location
	KindExternal                 // viewshed engine failed
	KindPost                     // vectorization, reprojection, or output failed
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindData:
		return "data"
	case KindExternal:
		return "external"
	case KindPost:
		return "post"
	}
	return "unknown"
}

func (k Kind) ExitCode() int {
	switch k {
	case KindInput:
		return 2
	case KindData:
		return 3
	case KindExternal:
		return 4
	case KindPost:
		return 5
	}
	return 1
}

// Error tags a failure with its kind and the pipeline step it came from.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the failure kind, or 0 for untagged errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// ExitCode maps an error to the process exit code. Untagged errors are
// treated as input errors: the only ones that escape tagging are argument
// and flag parse failures.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if k := KindOf(err); k != 0 {
		return k.ExitCode()
	}
	return KindInput.ExitCode()
}

// Sentinel conditions surfaced by the raster layer.
var (
	ErrNoCRS       = errors.New("raster has no coordinate reference system")
	ErrOutOfBounds = errors.New("point is outside the raster extent")
	ErrNoData      = errors.New("raster has no data at this point")
)
