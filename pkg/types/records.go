// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"time"
)

// Book holds the metadata of one book as supplied by a source reader.
type Book struct {
	// Title is the book title.
	Title string `json:"title" yaml:"title"`

	// Author is the book author as a single display string.
	Author string `json:"author" yaml:"author"`

	// ID uniquely identifies the book within the source library.
	ID string `json:"id" yaml:"id"`

	// LastOpened is when the book was last opened in the source application.
	LastOpened time.Time `json:"last_opened" yaml:"last_opened"`

	// Tags is the sorted, deduplicated union of the tags of the book's annotations.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Annotation holds one highlight and its notes.
type Annotation struct {
	// Body is the highlighted passage.
	Body string `json:"body" yaml:"body"`

	// Style is the highlight style (e.g. "yellow", "underline").
	Style string `json:"style" yaml:"style"`

	// Notes is the free-form text the reader attached to the highlight.
	Notes string `json:"notes" yaml:"notes"`

	// Tags is a sorted, deduplicated set of #tags.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// ID uniquely identifies the annotation.
	ID string `json:"id" yaml:"id"`

	// BookID references the owning Book.ID.
	BookID string `json:"book_id" yaml:"book_id"`

	Created  time.Time `json:"created" yaml:"created"`
	Modified time.Time `json:"modified" yaml:"modified"`

	// Location is a sortable positional key computed by the source reader.
	Location string `json:"location" yaml:"location"`
}

// Entry pairs a Book with its annotations.
type Entry struct {
	Book        Book         `json:"book" yaml:"book"`
	Annotations []Annotation `json:"annotations" yaml:"annotations"`
}

// SortAnnotations orders the entry's annotations by creation time ascending.
// Ties are broken by ID so the order is reproducible across runs.
func (e *Entry) SortAnnotations() {
	sort.SliceStable(e.Annotations, func(i, j int) bool {
		a, b := e.Annotations[i], e.Annotations[j]
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
		return a.ID < b.ID
	})
}

// Clone returns a deep copy of the entry so pipeline stages can mutate
// records without touching the caller's data.
func (e Entry) Clone() Entry {
	out := Entry{Book: e.Book}
	out.Book.Tags = append([]string(nil), e.Book.Tags...)
	out.Annotations = make([]Annotation, len(e.Annotations))
	for i, a := range e.Annotations {
		a.Tags = append([]string(nil), a.Tags...)
		out.Annotations[i] = a
	}
	return out
}

// Counts returns the number of entries and annotations in the set.
func Counts(entries []Entry) (books, annotations int) {
	for _, e := range entries {
		books++
		annotations += len(e.Annotations)
	}
	return books, annotations
}

// MergeTags adds tags to a sorted set, keeping it sorted and deduplicated.
// An empty set is returned as nil.
func MergeTags(set []string, tags ...string) []string {
	seen := make(map[string]struct{}, len(set)+len(tags))
	out := make([]string, 0, len(set)+len(tags))
	for _, t := range append(append([]string(nil), set...), tags...) {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
