// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAndRemoveTags(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantRemoved string
		wantTags    []string
	}{
		{name: "no tags", input: "Lorem ipsum.", wantRemoved: "Lorem ipsum.", wantTags: nil},
		{name: "tags at end", input: "Lorem ipsum. #tag01 #tag02", wantRemoved: "Lorem ipsum.", wantTags: []string{"#tag01", "#tag02"}},
		{name: "tags in middle", input: "Lorem ipsum. #tag01 #tag02 Adipisicing culpa.", wantRemoved: "Lorem ipsum. Adipisicing culpa.", wantTags: []string{"#tag01", "#tag02"}},
		{name: "tags at start", input: "#tag01 #tag02 Lorem ipsum. Adipisicing culpa.", wantRemoved: "Lorem ipsum. Adipisicing culpa.", wantTags: []string{"#tag01", "#tag02"}},
		{name: "extra whitespace", input: "Lorem ipsum.  #tag01  #tag02  ", wantRemoved: "Lorem ipsum.", wantTags: []string{"#tag01", "#tag02"}},
		{name: "no spacing", input: "Lorem ipsum.#tag01#tag02", wantRemoved: "Lorem ipsum.", wantTags: []string{"#tag01", "#tag02"}},
		{name: "must start with letter", input: "#tag01 #TAG01 #Tag01 #1 #999", wantRemoved: "#1 #999", wantTags: []string{"#TAG01", "#Tag01", "#tag01"}},
		{name: "only tags", input: "#tag01 #tag02", wantRemoved: "", wantTags: []string{"#tag01", "#tag02"}},
		{name: "deduplicated", input: "#tag01 #tag01 #tag01", wantRemoved: "", wantTags: []string{"#tag01"}},
		{name: "extra hashes", input: "###tag01##tag02", wantRemoved: "###", wantTags: []string{"#tag01", "#tag02"}},
		{name: "tag revealed by removal", input: "#a#bc d", wantRemoved: "", wantTags: []string{"#ad", "#bc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTags, ExtractTags(tt.input))
			assert.Equal(t, tt.wantRemoved, RemoveTags(tt.input))
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trims", in: "  body  ", want: "body"},
		{name: "keeps single break", in: "a\nb", want: "a\nb"},
		{name: "keeps double break", in: "a\n\nb", want: "a\n\nb"},
		{name: "collapses three", in: "a\n\n\nb", want: "a\n\nb"},
		{name: "collapses many with blanks", in: "a\n  \n\t\n\n b", want: "a\n\n b"},
		{name: "keeps indentation", in: "verse:\n    line one\n\tline two", want: "verse:\n    line one\n\tline two"},
		{name: "keeps whitespace-only line between two breaks", in: "a\n  \nb", want: "a\n  \nb"},
		{name: "crlf", in: "a\r\n\r\n\r\nb", want: "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWhitespace(tt.in))
		})
	}
}

func TestASCIIAll(t *testing.T) {
	assert.Equal(t, "Lorem & Ipsum. AEdipisicing", ASCIIAll("Lorem & Ipsúm. Ædipisicing"))
	assert.Equal(t, "cafe", ASCIIAll("café"))
	assert.Equal(t, "plain ascii", ASCIIAll("plain ascii"))
}

func TestASCIISymbols(t *testing.T) {
	in := "“Quoted” ‘single’ «angle» ‹a› wait… 1–2 a—b café"
	want := `"Quoted" 'single' <<angle>> <a> wait... 1-2 a--b caf` + "é"
	assert.Equal(t, want, ASCIISymbols(in))
}

func TestTrimBlocks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "adds trailing break", in: "text", want: "text\n"},
		{name: "collapses trailing breaks", in: "text\n\n\n\n", want: "text\n"},
		{name: "collapses inner blocks", in: "a\n\n\n\nb\n", want: "a\n\nb\n"},
		{name: "keeps paragraph break", in: "a\n\nb", want: "a\n\nb\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimBlocks(tt.in))
		})
	}
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "the quick\nbrown fox", WrapText("the quick brown fox", 10))
	assert.Equal(t, "supercalifragilistic\nword", WrapText("supercalifragilistic word", 8), "long words are not split")
	assert.Equal(t, "unchanged text", WrapText("unchanged text", 0))
}

func TestTransformsAreIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"  Lorem ipsum.  #tag01  #tag02  ",
		"a\n\n\n\nb\n\n\n",
		"“Smart” … quotes — and café Æ ß",
		"###tag01##tag02 #a #bb",
		"line one\n \n \n line two\r\n",
	}
	transforms := map[string]func(string) string{
		"RemoveTags":          RemoveTags,
		"NormalizeWhitespace": NormalizeWhitespace,
		"ASCIIAll":            ASCIIAll,
		"ASCIISymbols":        ASCIISymbols,
		"TrimBlocks":          TrimBlocks,
	}

	for name, fn := range transforms {
		for _, in := range inputs {
			once := fn(in)
			assert.Equal(t, once, fn(once), "%s is not idempotent for %q", name, in)
		}
	}
}

func TestWrapTextIsIdempotentOnWrappedOutput(t *testing.T) {
	once := WrapText("the quick brown fox jumps over the lazy dog", 10)
	assert.Equal(t, once, WrapText(once, 10))
}
