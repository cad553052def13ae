// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes rendered units to disk. Paths follow the template's
// structure mode, existing files are skipped unless overwriting is enabled,
// and a failed write is reported without stopping the batch.
package output

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdiddy/marginalia/internal/render"
)

// IOError attributes a write failure to the unit's output path.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrCollision marks a unit whose path was already claimed by an earlier unit
// of the same batch.
var ErrCollision = errors.New("path already claimed in this run")

// CollisionError names the unit that claimed the path first.
type CollisionError struct {
	Path  string
	First string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s: also produced by %s", ErrCollision, e.First)
}

func (e *CollisionError) Is(target error) bool { return target == ErrCollision }

// Writer writes units under Dir.
type Writer struct {
	Dir       string
	Overwrite bool

	// Report receives one line per unit; nil discards them.
	Report io.Writer

	// Progress, when set, is advanced once per unit.
	Progress *Progress

	Log *slog.Logger
}

// Path returns the output path of u under the writer's directory.
func (w *Writer) Path(u render.Unit) string {
	return filepath.Join(w.Dir, RelPath(u))
}

// RelPath returns the path of u relative to the output directory:
//
//	flat            filename
//	flat-grouped    group/filename
//	nested          directory/filename
//	nested-grouped  group/directory/filename
func RelPath(u render.Unit) string {
	parts := make([]string, 0, 3)
	if u.Structure.Grouped() {
		parts = append(parts, u.Group)
	}
	if u.Structure.Nested() {
		parts = append(parts, u.Directory)
	}
	parts = append(parts, u.Filename)
	return filepath.Join(parts...)
}

// Write writes every unit, recording Path, Outcome and Err on each, and
// returns the tally. A unit whose path an earlier unit of the same batch
// already claimed fails with a CollisionError instead of being skipped or
// overwriting the earlier file.
func (w *Writer) Write(units []render.Unit) Summary {
	report := w.Report
	if report == nil {
		report = io.Discard
	}
	log := w.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w.Progress.Start(len(units))
	defer w.Progress.Close()

	var s Summary
	claimed := make(map[string]string, len(units))
	for i := range units {
		u := &units[i]
		u.Path = w.Path(*u)
		key := filepath.Clean(u.Path)
		if first, ok := claimed[key]; ok {
			u.Outcome = render.Failed
			u.Err = &IOError{Path: u.Path, Err: &CollisionError{Path: u.Path, First: first}}
		} else {
			claimed[key] = u.Label()
			u.Outcome, u.Err = w.writeUnit(u.Path, u.Text)
		}

		switch u.Outcome {
		case render.Written:
			s.Written++
			fmt.Fprintf(report, "written: %s\n", u.Path)
			log.Debug("wrote file", "path", u.Path, "template", u.Template)
		case render.Skipped:
			s.Skipped++
			fmt.Fprintf(report, "skipped: %s (already exists)\n", u.Path)
		case render.Failed:
			s.Failed++
			fmt.Fprintf(report, "failed:  %s [%s] (%v)\n", u.Path, u.Label(), u.Err)
			log.Error("write failed", "path", u.Path, "unit", u.Label(), "error", u.Err)
		}
		w.Progress.Advance(filepath.Base(u.Path))
	}
	return s
}

func (w *Writer) writeUnit(path, text string) (render.Outcome, error) {
	if !w.Overwrite {
		_, err := os.Stat(path)
		if err == nil {
			return render.Skipped, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return render.Failed, &IOError{Path: path, Err: err}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return render.Failed, &IOError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return render.Failed, &IOError{Path: path, Err: err}
	}
	return render.Written, nil
}
