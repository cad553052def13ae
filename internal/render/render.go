// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render drives template execution over the filtered record set.
// For every template it resolves output names per book, builds one context
// per book or per annotation, validates the template against all of them and
// only then renders. A failing template is reported and skipped as a whole.
package render

import (
	"fmt"
	"log/slog"

	"github.com/pdiddy/marginalia/internal/catalog"
	"github.com/pdiddy/marginalia/internal/engine"
	"github.com/pdiddy/marginalia/pkg/types"
)

// Outcome is the write status of a rendered unit.
type Outcome int

const (
	Pending Outcome = iota
	Written
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Written:
		return "written"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Unit is one rendered output file. Path, Outcome and Err are filled in by
// the output writer.
type Unit struct {
	Template  string
	Group     string
	Structure catalog.StructureMode

	BookID string

	// AnnotationID is empty for book-context templates.
	AnnotationID string

	// Directory is the per-book directory name for nested structures.
	Directory string

	// Filename is the sanitized name including the extension. Export units
	// prefix it with a fixed subdirectory such as data/.
	Filename string

	Text string

	Path    string
	Outcome Outcome
	Err     error
}

// Label names the unit in reports: the template plus the book or annotation
// it was rendered for.
func (u Unit) Label() string {
	if u.AnnotationID != "" {
		return fmt.Sprintf("%s (annotation %s of book %s)", u.Template, u.AnnotationID, u.BookID)
	}
	return fmt.Sprintf("%s (book %s)", u.Template, u.BookID)
}

// Result collects the units rendered in one run and the templates that were
// skipped because of an error.
type Result struct {
	Units    []Unit
	Failures []error
}

// Renderer renders the templates of a catalog.
type Renderer struct {
	engine    *engine.Engine
	resolver  *Resolver
	templates []catalog.Descriptor
	log       *slog.Logger
}

// Prepare registers the catalog's partials and templates with eng. Templates
// whose body or name-expressions fail to parse are excluded and returned as
// errors; the remaining templates are ready to render.
func Prepare(cat *catalog.Catalog, eng *engine.Engine, log *slog.Logger) (*Renderer, []error) {
	var errs []error
	for _, p := range cat.Partials() {
		if err := eng.RegisterPartial(p.ID, p.Body); err != nil {
			log.Warn("skipping partial", "template", p.ID, "error", err)
			errs = append(errs, err)
		}
	}

	r := &Renderer{engine: eng, resolver: NewResolver(eng), log: log}
	for _, desc := range cat.Templates() {
		if err := register(eng, desc); err != nil {
			log.Warn("skipping template", "template", desc.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		r.templates = append(r.templates, desc)
	}
	return r, errs
}

func register(eng *engine.Engine, desc catalog.Descriptor) error {
	for _, expr := range []string{desc.Names.Book, desc.Names.Annotation, desc.Names.Directory} {
		if err := eng.CheckString(expr); err != nil {
			return &engine.Error{Template: desc.ID, Op: "names", Err: err}
		}
	}
	return eng.Register(desc.ID, desc.Body)
}

// Templates returns the templates that registered successfully.
func (r *Renderer) Templates() []catalog.Descriptor {
	return append([]catalog.Descriptor(nil), r.templates...)
}

// Render renders every registered template against entries. Annotations are
// visited in creation order regardless of the input order.
func (r *Renderer) Render(entries []types.Entry) Result {
	sorted := sortEntries(entries)

	var res Result
	for _, desc := range r.templates {
		units, err := r.renderTemplate(desc, sorted)
		if err != nil {
			r.log.Warn("skipping template", "template", desc.ID, "error", err)
			res.Failures = append(res.Failures, err)
			continue
		}
		r.log.Debug("rendered template", "template", desc.ID, "units", len(units))
		res.Units = append(res.Units, units...)
	}
	return res
}

// Validate runs the validation pass of every template without rendering.
func (r *Renderer) Validate(entries []types.Entry) []error {
	sorted := sortEntries(entries)

	var errs []error
	for _, desc := range r.templates {
		if _, err := r.contexts(desc, sorted); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func sortEntries(entries []types.Entry) []types.Entry {
	sorted := make([]types.Entry, len(entries))
	for i, e := range entries {
		sorted[i] = e.Clone()
		sorted[i].SortAnnotations()
	}
	return sorted
}

type job struct {
	ctx  Context
	unit Unit
}

func (r *Renderer) renderTemplate(desc catalog.Descriptor, entries []types.Entry) ([]Unit, error) {
	jobs, err := r.contexts(desc, entries)
	if err != nil {
		return nil, err
	}

	units := make([]Unit, 0, len(jobs))
	for _, j := range jobs {
		text, err := r.engine.Render(desc.ID, j.ctx.Map())
		if err != nil {
			return nil, err
		}
		j.unit.Text = text
		units = append(units, j.unit)
	}
	return units, nil
}

// contexts builds every context for desc and validates the template against
// each of them.
func (r *Renderer) contexts(desc catalog.Descriptor, entries []types.Entry) ([]job, error) {
	var jobs []job
	for _, e := range entries {
		names, err := r.resolver.Resolve(desc, e.Book, e.Annotations)
		if err != nil {
			return nil, &engine.Error{Template: desc.ID, Op: "names", Err: fmt.Errorf("book %s: %w", e.Book.ID, err)}
		}
		base := Unit{
			Template:  desc.ID,
			Group:     desc.Group,
			Structure: desc.Structure,
			BookID:    e.Book.ID,
			Directory: names.Directory,
		}

		switch desc.Context {
		case catalog.ContextBook:
			u := base
			u.Filename = names.Book
			jobs = append(jobs, job{
				ctx:  BookContext{Book: e.Book, Annotations: e.Annotations, Names: names},
				unit: u,
			})
		case catalog.ContextAnnotation:
			for i, a := range e.Annotations {
				u := base
				u.AnnotationID = a.ID
				u.Filename = names.Annotations[i].Filename
				jobs = append(jobs, job{
					ctx:  AnnotationContext{Book: e.Book, Annotation: a, Names: names},
					unit: u,
				})
			}
		}
	}

	for _, j := range jobs {
		if err := r.engine.Validate(desc.ID, j.ctx.Map()); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}
