// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter parses and evaluates `[op]field:query` expressions against
// books and annotations.
//
// Operators: `?` any term matches (default), `*` all terms match, `=` the
// whole query matches exactly. Fields: title, author, tag (alias tags).
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/marginalia/pkg/types"
)

// Operator selects how query terms are combined.
type Operator int

const (
	Any Operator = iota
	All
	Exact
)

// String returns the operator symbol.
func (o Operator) String() string {
	switch o {
	case All:
		return "*"
	case Exact:
		return "="
	default:
		return "?"
	}
}

// Field selects the record attribute a filter reads.
type Field int

const (
	Title Field = iota
	Author
	Tag
)

// String returns the field name.
func (f Field) String() string {
	switch f {
	case Author:
		return "author"
	case Tag:
		return "tag"
	default:
		return "title"
	}
}

// ErrSyntax is matched by every SyntaxError via errors.Is.
var ErrSyntax = errors.New("invalid filter")

// SyntaxError reports a filter expression that does not follow the grammar.
type SyntaxError struct {
	Input  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s (filters must follow the format '[op]field:query')", e.Input, e.Reason)
}

// Is makes errors.Is(err, ErrSyntax) true for any SyntaxError.
func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

var filterPattern = regexp.MustCompile(`^(?P<operator>[?*=]?)(?P<field>\w*):(?P<query>.*)$`)

// Expression is a parsed filter. It is immutable once returned by Parse.
type Expression struct {
	op    Operator
	field Field
	query string
	terms []string
}

// Operator returns the expression's operator.
func (e Expression) Operator() Operator { return e.op }

// Field returns the expression's field.
func (e Expression) Field() Field { return e.field }

// Terms returns a copy of the whitespace-split, lowercased query terms.
func (e Expression) Terms() []string { return append([]string(nil), e.terms...) }

// String renders the expression back into its textual form.
func (e Expression) String() string {
	return fmt.Sprintf("%s%s:%s", e.op, e.field, e.query)
}

// Parse reads a `[op]field:query` expression.
func Parse(s string) (Expression, error) {
	m := filterPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Expression{}, &SyntaxError{Input: s, Reason: "missing ':' separator"}
	}

	var op Operator
	switch m[1] {
	case "", "?":
		op = Any
	case "*":
		op = All
	case "=":
		op = Exact
	}

	var field Field
	switch strings.ToLower(m[2]) {
	case "title":
		field = Title
	case "author":
		field = Author
	case "tag", "tags":
		field = Tag
	default:
		return Expression{}, &SyntaxError{Input: s, Reason: fmt.Sprintf("unknown field %q", m[2])}
	}

	query := strings.ToLower(strings.TrimSpace(m[3]))
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return Expression{}, &SyntaxError{Input: s, Reason: "empty query"}
	}

	return Expression{op: op, field: field, query: query, terms: terms}, nil
}

// ParseAll parses every expression, failing on the first invalid one.
func ParseAll(inputs []string) ([]Expression, error) {
	exprs := make([]Expression, 0, len(inputs))
	for _, in := range inputs {
		e, err := Parse(in)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

// Evaluate applies the expression to one book and its annotations and returns
// the annotations that survive. A nil result means the book is filtered out.
func (e Expression) Evaluate(book types.Book, annotations []types.Annotation) []types.Annotation {
	switch e.field {
	case Title:
		if !e.matchText(book.Title) {
			return nil
		}
		return annotations
	case Author:
		if !e.matchText(book.Author) {
			return nil
		}
		return annotations
	}

	var kept []types.Annotation
	for _, a := range annotations {
		if e.matchTags(a.Tags) {
			kept = append(kept, a)
		}
	}
	return kept
}

func (e Expression) matchText(value string) bool {
	value = strings.ToLower(value)
	switch e.op {
	case All:
		for _, t := range e.terms {
			if !strings.Contains(value, t) {
				return false
			}
		}
		return true
	case Exact:
		return value == e.query
	default:
		for _, t := range e.terms {
			if strings.Contains(value, t) {
				return true
			}
		}
		return false
	}
}

// matchTags matches terms against the annotation's tags. Any and All test
// each term as a substring of some tag; Exact is an unordered set equality
// between the terms and the tags.
func (e Expression) matchTags(tags []string) bool {
	lowered := make([]string, len(tags))
	for i, t := range tags {
		lowered[i] = strings.ToLower(t)
	}
	switch e.op {
	case All:
		for _, t := range e.terms {
			if !containsTerm(lowered, t) {
				return false
			}
		}
		return true
	case Exact:
		return sameSet(lowered, e.terms)
	default:
		for _, t := range e.terms {
			if containsTerm(lowered, t) {
				return true
			}
		}
		return false
	}
}

func containsTerm(tags []string, term string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, term) {
			return true
		}
	}
	return false
}

func sameSet(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for s := range setB {
		if _, ok := setA[s]; !ok {
			return false
		}
	}
	return true
}

// Result is the outcome of applying a filter set to the working records.
type Result struct {
	Entries []types.Entry
}

// Books returns the number of surviving books.
func (r Result) Books() int { return len(r.Entries) }

// Annotations returns the number of surviving annotations.
func (r Result) Annotations() int {
	_, n := types.Counts(r.Entries)
	return n
}

// Apply evaluates every expression against every entry, combining them with
// logical AND. Entries left without annotations are dropped. The input slice
// is not modified.
func Apply(exprs []Expression, entries []types.Entry) Result {
	var out []types.Entry
	for _, entry := range entries {
		annotations := entry.Annotations
		for _, e := range exprs {
			annotations = e.Evaluate(entry.Book, annotations)
			if len(annotations) == 0 {
				break
			}
		}
		if len(annotations) == 0 {
			continue
		}
		kept := entry
		kept.Annotations = append([]types.Annotation(nil), annotations...)
		out = append(out, kept)
	}
	return Result{Entries: out}
}
