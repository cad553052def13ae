// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one render invocation end to end: parse filters,
// build the template catalog, load records, pre-process, filter, confirm,
// render, post-process and write. Bad filters and unknown template groups
// abort the run before any records are loaded or files written.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdiddy/marginalia/internal/catalog"
	"github.com/pdiddy/marginalia/internal/engine"
	"github.com/pdiddy/marginalia/internal/filter"
	"github.com/pdiddy/marginalia/internal/logger"
	"github.com/pdiddy/marginalia/internal/output"
	"github.com/pdiddy/marginalia/internal/process"
	"github.com/pdiddy/marginalia/internal/render"
	"github.com/pdiddy/marginalia/internal/source"
	"github.com/pdiddy/marginalia/pkg/types"
)

// ConfirmFunc is asked whether to continue after filtering with the
// surviving counts. Returning false
// ends the run without writing anything.
type ConfirmFunc func(books, annotations int) (bool, error)

// Options configures a run.
type Options struct {
	Config types.RenderConfig

	// Reader overrides the reader selected by Config.Source.
	Reader source.Reader

	// Confirm is asked only when filters were given. It is skipped when
	// nil or when Config.AutoConfirm is set.
	Confirm ConfirmFunc

	// Report receives per-unit and per-template lines; nil discards them.
	Report io.Writer

	Progress *output.Progress
	Log      *slog.Logger
}

// Result describes a finished run.
type Result struct {
	Summary output.Summary
	Units   []render.Unit

	// TemplateErrors holds every configuration and engine error.
	TemplateErrors []error

	// Declined is set when the confirmation step said no.
	Declined bool
}

// Run executes the pipeline.
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

	cat, err := loadCatalog(cfg.TemplatesDir, log)
	if err != nil {
		return Result{}, err
	}
	cat, err = cat.Select(cfg.TemplateGroups)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.TemplateErrors = append(res.TemplateErrors, cat.Errors()...)
	renderer, errs := render.Prepare(cat, engine.New(log), log)
	res.TemplateErrors = append(res.TemplateErrors, errs...)
	if len(renderer.Templates()) == 0 {
		if len(res.TemplateErrors) == 0 {
			return res, errors.New("no templates found")
		}
		res.finish(report)
		return res, nil
	}

	reader := opts.Reader
	if reader == nil {
		if reader, err = source.New(cfg.Source); err != nil {
			return res, err
		}
	}
	confirm := opts.Confirm
	if cfg.AutoConfirm {
		confirm = nil
	}
	filtered, ok, err := Records(ctx, reader, cfg.PreProcess, exprs, confirm, log)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Declined = true
		return res, nil
	}

	rendered := renderer.Render(filtered.Entries)
	res.TemplateErrors = append(res.TemplateErrors, rendered.Failures...)
	for i := range rendered.Units {
		rendered.Units[i].Text = process.Post(rendered.Units[i].Text, cfg.PostProcess)
	}

	w := &output.Writer{
		Dir:       cfg.OutputDir,
		Overwrite: cfg.Overwrite,
		Report:    report,
		Progress:  opts.Progress,
		Log:       log,
	}
	res.Summary = w.Write(rendered.Units)
	res.Units = rendered.Units
	res.finish(report)
	return res, nil
}

// finish reports template-level failures and counts them in the summary.
// Records loads the records from reader, pre-processes them and keeps what
// matches every expression. When filters were given and confirm is not nil,
// confirm is asked about the survivors; ok is false when it declined.
func Records(ctx context.Context, reader source.Reader, pre types.PreProcessConfig,
	exprs []filter.Expression, confirm ConfirmFunc, log *slog.Logger) (filter.Result, bool, error) {
	entries, err := reader.Load(ctx)
	if err != nil {
		return filter.Result{}, false, fmt.Errorf("loading records: %w", err)
	}
	books, annotations := types.Counts(entries)
	log.Info("loaded records", "books", books, "annotations", annotations)

	entries = process.Pre(entries, pre)
	filtered := filter.Apply(exprs, entries)
	log.Info("filtered records", "books", filtered.Books(), "annotations", filtered.Annotations())

	if len(exprs) > 0 && confirm != nil {
		ok, err := confirm(filtered.Books(), filtered.Annotations())
		if err != nil {
			return filter.Result{}, false, fmt.Errorf("confirmation: %w", err)
		}
		if !ok {
			log.Info("run declined, nothing written")
			return filter.Result{}, false, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return filter.Result{}, false, err
	}
	return filtered, true, nil
}

func (r *Result) finish(report io.Writer) {
	for _, err := range r.TemplateErrors {
		fmt.Fprintf(report, "failed:  %v\n", err)
	}
	r.Summary.TemplatesFailed = len(r.TemplateErrors)
}

func loadCatalog(dir string, log *slog.Logger) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Default(log)
	}
	return catalog.Load(dir, log)
}
