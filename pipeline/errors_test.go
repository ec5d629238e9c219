package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{&Error{Kind: KindInput, Op: "args", Err: errors.New("x")}, 2},
		{&Error{Kind: KindData, Op: "dsm", Err: errors.New("x")}, 3},
		{&Error{Kind: KindExternal, Op: "engine", Err: errors.New("x")}, 4},
		{&Error{Kind: KindPost, Op: "polygonize", Err: errors.New("x")}, 5},
		// untagged errors only escape from argument parsing
		{errors.New("accepts between 3 and 5 arg(s)"), 2},
	}
	for _, tc := range tests {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v)=%d want=%d", tc.err, got, tc.want)
		}
	}
}

func TestKindOfUnwraps(t *testing.T) {
	inner := &Error{Kind: KindData, Op: "sample", Err: ErrNoData}
	wrapped := fmt.Errorf("run failed: %w", inner)
	if got := KindOf(wrapped); got != KindData {
		t.Errorf("KindOf=%v want=%v", got, KindData)
	}
	if !errors.Is(wrapped, ErrNoData) {
		t.Error("sentinel should survive wrapping")
	}
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Errorf("KindOf(plain)=%v want=0", got)
	}
}

func TestKindStrings(t *testing.T) {
	for k, want := range map[Kind]string{
		KindInput:    "input",
		KindData:     "data",
		KindExternal: "external",
		KindPost:     "post",
		Kind(99):     "unknown",
	} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String()=%q want=%q", int(k), got, want)
		}
	}
}
