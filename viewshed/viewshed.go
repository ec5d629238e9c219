// Package viewshed runs the external ray-casting engine. The visibility
// computation itself is entirely the engine's job; this package only
// marshals arguments and owns the intermediate raster's lifetime.
package viewshed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Params describes one engine invocation. Zero MaxDistance means the whole
// DSM extent; zero Curvature leaves the engine's default correction alone.
type Params struct {
	Tool        string
	DSMPath     string
	OutPath     string
	ObserverX   float64
	ObserverY   float64
	ObserverZ   float64
	Band        int
	MaxDistance float64
	Curvature   float64
}

func (p Params) tool() string {
	if p.Tool == "" {
		return "gdal_viewshed"
	}
	return p.Tool
}

// Args builds the engine's argument vector. Values are passed as discrete
// arguments, never through a shell.
func (p Params) Args() []string {
	band := p.Band
	if band == 0 {
		band = 1
	}
	args := []string{
		"-ox", ftoa(p.ObserverX),
		"-oy", ftoa(p.ObserverY),
		"-oz", ftoa(p.ObserverZ),
		"-b", strconv.Itoa(band),
	}
	if p.MaxDistance > 0 {
		args = append(args, "-md", ftoa(p.MaxDistance))
	}
	if p.Curvature > 0 {
		args = append(args, "-cc", ftoa(p.Curvature))
	}
	return append(args, p.DSMPath, p.OutPath)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Run blocks until the engine exits. A non-zero exit is returned with the
// engine's stderr attached; there is no retry.
func Run(ctx context.Context, p Params) error {
	args := p.Args()
	slog.Info("running viewshed engine", "tool", p.tool(), "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, p.tool(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.tool(), err, msg)
		}
		return fmt.Errorf("%s: %w", p.tool(), err)
	}
	return nil
}

// TempRaster is the scoped intermediate output file. It is acquired before
// the engine runs and released on every exit path.
type TempRaster struct {
	Path string
}

func NewTempRaster() (*TempRaster, error) {
	f, err := os.CreateTemp("", "viewshed-*.tif")
	if err != nil {
		return nil, fmt.Errorf("temp raster: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("temp raster: %w", err)
	}
	return &TempRaster{Path: path}, nil
}

// Release deletes the raster. A failed delete is only worth a warning.
func (t *TempRaster) Release() {
	if t == nil || t.Path == "" {
		return
	}
	if err := os.Remove(t.Path); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not delete temporary raster", "path", t.Path, "error", err)
	}
	t.Path = ""
}
