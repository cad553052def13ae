// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/marginalia/pkg/types"
)

// File reads entries from a YAML or JSON document holding a list of
// {book, annotations} objects. Files ending in .json are decoded as JSON so
// quoted RFC 3339 timestamps are accepted; everything else is YAML.
type File struct {
	Path string
}

// Load reads and checks the records file.
func (f *File) Load(_ context.Context) ([]types.Entry, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}

	var entries []types.Entry
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(f.Path), ".json") {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing records file %s: %w", f.Path, err)
	}
	if err := link(entries); err != nil {
		return nil, fmt.Errorf("records file %s: %w", f.Path, err)
	}
	return entries, nil
}

// link fills in missing annotation book ids and rejects annotations that
// claim a different book than the one they are listed under.
func link(entries []types.Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		book := entries[i].Book
		if book.ID == "" {
			return fmt.Errorf("book %d (%q) has no id", i, book.Title)
		}
		if _, ok := seen[book.ID]; ok {
			return fmt.Errorf("duplicate book id %s", book.ID)
		}
		seen[book.ID] = struct{}{}

		for j := range entries[i].Annotations {
			a := &entries[i].Annotations[j]
			if a.BookID == "" {
				a.BookID = book.ID
			}
			if a.BookID != book.ID {
				return fmt.Errorf("annotation %s references book %s but is listed under %s", a.ID, a.BookID, book.ID)
			}
		}
	}
	return nil
}
