// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/marginalia/internal/catalog"
	"github.com/pdiddy/marginalia/internal/engine"
	"github.com/pdiddy/marginalia/internal/sanitize"
	"github.com/pdiddy/marginalia/pkg/types"
)

// AnnotationName is the rendered filename of one annotation plus the fields
// templates commonly sort backlinks by.
type AnnotationName struct {
	ID       string
	Filename string
	Created  time.Time
	Modified time.Time
	Location string
}

// Names holds the sanitized output names for one book under one template.
// These are the exact strings the output writer uses on disk.
type Names struct {
	// Book is the book filename including the extension.
	Book string

	// Annotations is ordered like the book's annotations.
	Annotations []AnnotationName

	// Directory is set only for nested structure modes.
	Directory string
}

// Annotation returns the filename rendered for the annotation id.
func (n Names) Annotation(id string) (string, bool) {
	for _, a := range n.Annotations {
		if a.ID == id {
			return a.Filename, true
		}
	}
	return "", false
}

// Map converts the names to the engine representation. The directory key is
// present only when a directory name was resolved.
func (n Names) Map() map[string]any {
	annotations := make([]map[string]any, len(n.Annotations))
	for i, a := range n.Annotations {
		annotations[i] = map[string]any{
			"id":       a.ID,
			"filename": a.Filename,
			"created":  a.Created,
			"modified": a.Modified,
			"location": a.Location,
		}
	}
	m := map[string]any{
		"book":        n.Book,
		"annotations": annotations,
	}
	if n.Directory != "" {
		m["directory"] = n.Directory
	}
	return m
}

// Resolver renders name-expressions through the engine and sanitizes the
// results.
type Resolver struct {
	engine *engine.Engine
}

// NewResolver returns a resolver backed by e.
func NewResolver(e *engine.Engine) *Resolver {
	return &Resolver{engine: e}
}

// Resolve builds the Names for one book under desc. The book and directory
// names see only the book; each annotation name sees the book and that
// annotation.
func (r *Resolver) Resolve(desc catalog.Descriptor, book types.Book, annotations []types.Annotation) (Names, error) {
	bookCtx := map[string]any{"book": bookMap(book)}

	stem, err := r.render(desc.Names.Book, bookCtx)
	if err != nil {
		return Names{}, fmt.Errorf("book name: %w", err)
	}
	names := Names{
		Book:        sanitize.Filename(stem, desc.Extension),
		Annotations: make([]AnnotationName, 0, len(annotations)),
	}

	for _, a := range annotations {
		stem, err := r.render(desc.Names.Annotation, map[string]any{
			"book":       bookCtx["book"],
			"annotation": annotationMap(a),
		})
		if err != nil {
			return Names{}, fmt.Errorf("annotation name for %s: %w", a.ID, err)
		}
		names.Annotations = append(names.Annotations, AnnotationName{
			ID:       a.ID,
			Filename: sanitize.Filename(stem, desc.Extension),
			Created:  a.Created,
			Modified: a.Modified,
			Location: a.Location,
		})
	}

	if desc.Structure.Nested() {
		dir, err := r.Directory(desc.Names.Directory, book)
		if err != nil {
			return Names{}, err
		}
		names.Directory = dir
	}
	return names, nil
}

// Directory renders a directory name-expression against the book alone and
// sanitizes the result.
func (r *Resolver) Directory(expr string, book types.Book) (string, error) {
	dir, err := r.render(expr, map[string]any{"book": bookMap(book)})
	if err != nil {
		return "", fmt.Errorf("directory name: %w", err)
	}
	return sanitize.Name(dir), nil
}

func (r *Resolver) render(expr string, ctx map[string]any) (string, error) {
	out, err := r.engine.RenderString(expr, ctx)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("expression %q rendered an empty name", expr)
	}
	return out, nil
}
