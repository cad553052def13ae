// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package process implements the text transformations applied to records
// before rendering and to rendered text afterwards. Every transformation is
// idempotent: applying it to its own output changes nothing.
package process

import (
	"github.com/pdiddy/marginalia/pkg/types"
)

// Pre applies the enabled pre-process transformations to copies of entries
// and returns them. Transformations run in a fixed order: tag extraction,
// whitespace normalization, full ASCII transliteration, symbol
// transliteration. Annotations are sorted by creation time and each book's
// tag set is rebuilt from its annotations.
func Pre(entries []types.Entry, cfg types.PreProcessConfig) []types.Entry {
	out := make([]types.Entry, len(entries))
	for i, entry := range entries {
		entry = entry.Clone()
		entry.SortAnnotations()

		for j := range entry.Annotations {
			a := &entry.Annotations[j]
			if cfg.ExtractTags {
				a.Tags = types.MergeTags(a.Tags, ExtractTags(a.Notes)...)
				a.Notes = RemoveTags(a.Notes)
			}
			if cfg.NormalizeWhitespace {
				a.Body = NormalizeWhitespace(a.Body)
				a.Notes = NormalizeWhitespace(a.Notes)
			}
			if cfg.ASCIIAll {
				a.Body = ASCIIAll(a.Body)
				a.Notes = ASCIIAll(a.Notes)
			}
			if cfg.ASCIISymbols {
				a.Body = ASCIISymbols(a.Body)
				a.Notes = ASCIISymbols(a.Notes)
			}
			entry.Book.Tags = types.MergeTags(entry.Book.Tags, a.Tags...)
		}

		if cfg.ASCIIAll {
			entry.Book.Title = ASCIIAll(entry.Book.Title)
			entry.Book.Author = ASCIIAll(entry.Book.Author)
		}
		if cfg.ASCIISymbols {
			entry.Book.Title = ASCIISymbols(entry.Book.Title)
			entry.Book.Author = ASCIISymbols(entry.Book.Author)
		}

		out[i] = entry
	}
	return out
}
