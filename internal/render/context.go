// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"github.com/pdiddy/marginalia/internal/catalog"
	"github.com/pdiddy/marginalia/internal/sanitize"
	"github.com/pdiddy/marginalia/pkg/types"
)

// Context is the data one template invocation sees. It is either a
// BookContext or an AnnotationContext and is converted to the engine's map
// representation only by Map.
type Context interface {
	Mode() catalog.ContextMode
	Map() map[string]any
}

// BookContext renders a book with all of its surviving annotations.
type BookContext struct {
	Book        types.Book
	Annotations []types.Annotation
	Names       Names
}

func (BookContext) Mode() catalog.ContextMode { return catalog.ContextBook }

func (c BookContext) Map() map[string]any {
	annotations := make([]map[string]any, len(c.Annotations))
	for i, a := range c.Annotations {
		annotations[i] = annotationMap(a)
	}
	return map[string]any{
		"book":        bookMap(c.Book),
		"annotations": annotations,
		"names":       c.Names.Map(),
	}
}

// AnnotationContext renders a single annotation with its book.
type AnnotationContext struct {
	Book       types.Book
	Annotation types.Annotation
	Names      Names
}

func (AnnotationContext) Mode() catalog.ContextMode { return catalog.ContextAnnotation }

func (c AnnotationContext) Map() map[string]any {
	return map[string]any{
		"book":       bookMap(c.Book),
		"annotation": annotationMap(c.Annotation),
		"names":      c.Names.Map(),
	}
}

func bookMap(b types.Book) map[string]any {
	return map[string]any{
		"title":       b.Title,
		"author":      b.Author,
		"id":          b.ID,
		"last_opened": b.LastOpened,
		"tags":        tagList(b.Tags),
		"slugs": map[string]any{
			"title":       sanitize.Slug(b.Title, true),
			"author":      sanitize.Slug(b.Author, true),
			"last_opened": sanitize.Date(b.LastOpened),
		},
	}
}

func annotationMap(a types.Annotation) map[string]any {
	return map[string]any{
		"body":     a.Body,
		"style":    a.Style,
		"notes":    a.Notes,
		"tags":     tagList(a.Tags),
		"id":       a.ID,
		"book_id":  a.BookID,
		"created":  a.Created,
		"modified": a.Modified,
		"location": a.Location,
		"slugs": map[string]any{
			"created":  sanitize.Date(a.Created),
			"modified": sanitize.Date(a.Modified),
		},
	}
}

func tagList(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
