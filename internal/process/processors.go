// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/marginalia/pkg/types"
)

var (
	// tagPattern captures a #tag: a hash, a letter, then anything up to the
	// next whitespace or hash. One trailing whitespace character is consumed
	// so removing a tag does not leave a double space behind.
	tagPattern = regexp.MustCompile(`#[a-zA-Z][^\s#]+\s?`)

	blockPattern = regexp.MustCompile(`\n{3,}`)

	// blankRunPattern matches three or more line breaks separated only by
	// spaces or tabs.
	blankRunPattern = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// symbolReplacer maps "smart" typographic symbols to ASCII.
var symbolReplacer = strings.NewReplacer(
	"\u201c", `"`,
	"\u201d", `"`,
	"\u201e", `"`,
	"\u2018", "'",
	"\u2019", "'",
	"\u201a", "'",
	"\u00ab", "<<",
	"\u00bb", ">>",
	"\u2039", "<",
	"\u203a", ">",
	"\u2026", "...",
	"\u2013", "-",
	"\u2014", "--",
)

// ExtractTags returns the sorted, deduplicated #tags found in s, including
// tags that only become visible once surrounding tags are removed.
func ExtractTags(s string) []string {
	var tags []string
	for {
		matches := tagPattern.FindAllString(s, -1)
		if len(matches) == 0 {
			break
		}
		for _, m := range matches {
			tags = append(tags, strings.TrimSpace(m))
		}
		s = tagPattern.ReplaceAllString(s, "")
	}
	return types.MergeTags(nil, tags...)
}

// RemoveTags strips every #tag from s and trims the result. Removal repeats
// until no tag is left, so text glued together by a removal cannot form a
// new tag on the next pass.
func RemoveTags(s string) string {
	for {
		next := tagPattern.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

// NormalizeWhitespace trims the whole string and collapses three or more
// consecutive line breaks, including blank lines holding only spaces or tabs,
// into exactly two. Indentation inside the text is kept.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ASCIIAll transliterates every non-ASCII character. Combining marks are
// stripped after canonical decomposition first so accented Latin letters
// keep their base letter, and the remainder goes through a transliteration
// table.
func ASCIIAll(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	decomposed, _, err := transform.String(t, s)
	if err != nil {
		decomposed = s
	}
	return unidecode.Unidecode(decomposed)
}

// ASCIISymbols replaces curly quotes, angle quotes, ellipses and dashes with
// their ASCII equivalents and leaves everything else untouched.
func ASCIISymbols(s string) string {
	return symbolReplacer.Replace(s)
}

// TrimBlocks collapses runs of three or more line breaks into two and leaves
// exactly one trailing line break. It does not understand template
// structure; it only normalizes the rendered text.
func TrimBlocks(s string) string {
	s = blockPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimRight(s, " \t\r\n") + "\n"
}

// WrapText greedily wraps s at width columns. Words longer than width are
// never split; existing hyphens are allowed as break points. A width below
// one returns s unchanged.
func WrapText(s string, width int) string {
	if width < 1 {
		return s
	}
	return ansi.Wordwrap(s, width, "")
}
