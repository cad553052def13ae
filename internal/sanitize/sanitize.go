// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sanitize turns arbitrary strings into safe path segments and slugs.
package sanitize

import (
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
)

// DateLayout is the layout used for date slugs.
const DateLayout = "2006-01-02-150405"

// removed are dropped outright; replaced become an underscore.
var pathReplacer = strings.NewReplacer(
	"\n", "",
	"\r", "",
	"\x00", "",
	"/", "_",
	":", "_",
)

// Name strips characters that cannot appear in a file or directory name.
// The output never contains a line break, NUL, slash or colon, and is never
// one of the relative path elements "." or "..".
func Name(s string) string {
	s = pathReplacer.Replace(s)
	if s == "." || s == ".." {
		return strings.Repeat("_", len(s))
	}
	return s
}

// Filename joins a stem and an extension and sanitizes the result. The
// extension is appended rather than substituted so stems containing dots
// survive intact.
func Filename(stem, extension string) string {
	if extension == "" {
		return Name(stem)
	}
	return Name(stem + "." + extension)
}

// Slug converts s to an ASCII slug: letters and digits are kept, every other
// run of characters becomes a single dash, and leading or trailing dashes are
// trimmed. Non-ASCII characters are transliterated first.
func Slug(s string, lowercase bool) string {
	var b strings.Builder
	b.Grow(len(s))

	prevDash := true
	for _, r := range unidecode.Unidecode(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		case r >= 'A' && r <= 'Z':
			if lowercase {
				r += 'a' - 'A'
			}
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Date formats t as a slug. The zero time yields an empty string.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
