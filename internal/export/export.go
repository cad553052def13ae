// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes the filtered records as JSON, one directory per book:
//
//	<output>/<directory name>/data/book.json
//	<output>/<directory name>/data/annotations.json
//	<output>/<directory name>/resources/.gitkeep
//
// Directory names come from a name-expression rendered against the book and
// sanitized like template output names. Existing files are skipped unless
// overwriting is enabled.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/pdiddy/marginalia/internal/catalog"
	"github.com/pdiddy/marginalia/internal/engine"
	"github.com/pdiddy/marginalia/internal/filter"
	"github.com/pdiddy/marginalia/internal/logger"
	"github.com/pdiddy/marginalia/internal/output"
	"github.com/pdiddy/marginalia/internal/pipeline"
	"github.com/pdiddy/marginalia/internal/render"
	"github.com/pdiddy/marginalia/internal/source"
	"github.com/pdiddy/marginalia/pkg/types"
)

// Unit template label used in reports.
const unitTemplate = "export"

var (
	bookFile        = filepath.Join("data", "book.json")
	annotationsFile = filepath.Join("data", "annotations.json")
	keepFile        = filepath.Join("resources", ".gitkeep")
)

// Options configures an export.
type Options struct {
	Config types.ExportConfig

	// Reader overrides the reader selected by Config.Source.
	Reader source.Reader

	// Confirm is asked only when filters were given.
	Confirm pipeline.ConfirmFunc

	Report   io.Writer
	Progress *output.Progress
	Log      *slog.Logger
}

// Result describes a finished export.
type Result struct {
	Summary output.Summary
	Units   []render.Unit

	// BookErrors holds books whose directory name could not be rendered.
	// They are counted as failed in Summary.
	BookErrors []error

	Declined bool
}

// Run exports the records selected by opts.
func Run(ctx context.Context, opts Options) (Result, error) {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	report := opts.Report
	if report == nil {
		report = io.Discard
	}

	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}
	exprs, err := filter.ParseAll(cfg.Filters)
	if err != nil {
		return Result{}, err
	}

	expr := cfg.DirectoryTemplate
	if expr == "" {
		expr = catalog.DefaultDirectoryName
	}
	eng := engine.New(log)
	if err := eng.CheckString(expr); err != nil {
		return Result{}, fmt.Errorf("directory template: %w", err)
	}

	reader := opts.Reader
	if reader == nil {
		if reader, err = source.New(cfg.Source); err != nil {
			return Result{}, err
		}
	}
	confirm := opts.Confirm
	if cfg.AutoConfirm {
		confirm = nil
	}
	filtered, ok, err := pipeline.Records(ctx, reader, cfg.PreProcess, exprs, confirm, log)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Declined: true}, nil
	}

	var res Result
	units, errs := Units(render.NewResolver(eng), expr, filtered.Entries)
	for _, err := range errs {
		log.Warn("skipping book", "error", err)
		fmt.Fprintf(report, "failed:  %v\n", err)
	}

	w := &output.Writer{
		Dir:       cfg.OutputDir,
		Overwrite: cfg.Overwrite,
		Report:    report,
		Progress:  opts.Progress,
		Log:       log,
	}
	res.Summary = w.Write(units)
	res.Summary.Failed += len(errs)
	res.Units = units
	res.BookErrors = errs
	return res, nil
}

// Units builds the three files of every entry. Annotations are written in
// creation order. A book whose directory name fails to render is returned as
// an error and produces no units.
func Units(r *render.Resolver, directory string, entries []types.Entry) ([]render.Unit, []error) {
	var (
		units []render.Unit
		errs  []error
	)
	for _, e := range entries {
		e = e.Clone()
		e.SortAnnotations()

		dir, err := r.Directory(directory, e.Book)
		if err != nil {
			errs = append(errs, fmt.Errorf("book %s: %w", e.Book.ID, err))
			continue
		}

		book, err := marshal(e.Book)
		if err != nil {
			errs = append(errs, fmt.Errorf("book %s: %w", e.Book.ID, err))
			continue
		}
		annotations := e.Annotations
		if annotations == nil {
			annotations = []types.Annotation{}
		}
		notes, err := marshal(annotations)
		if err != nil {
			errs = append(errs, fmt.Errorf("book %s: %w", e.Book.ID, err))
			continue
		}

		for _, f := range []struct{ name, text string }{
			{bookFile, book},
			{annotationsFile, notes},
			{keepFile, ""},
		} {
			units = append(units, render.Unit{
				Template:  unitTemplate,
				Structure: catalog.StructureNested,
				BookID:    e.Book.ID,
				Directory: dir,
				Filename:  f.name,
				Text:      f.text,
			})
		}
	}
	return units, errs
}

func marshal(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding json: %w", err)
	}
	return string(data) + "\n", nil
}
