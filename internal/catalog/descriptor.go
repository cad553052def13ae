// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"errors"
	"fmt"
	"io"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/marginalia/internal/sanitize"
)

// Config block delimiters. The opening tag must be followed by a line break
// and the closing tag must start its own line.
const (
	configOpen  = "<!-- marginalia"
	configClose = "-->"
)

// PartialPrefix marks a file as a partial template.
const PartialPrefix = "_"

// ContextMode selects whether a template renders once per book or once per
// annotation.
type ContextMode string

const (
	ContextBook       ContextMode = "book"
	ContextAnnotation ContextMode = "annotation"
)

// StructureMode controls the directory layout of rendered files.
type StructureMode string

const (
	StructureFlat          StructureMode = "flat"
	StructureFlatGrouped   StructureMode = "flat-grouped"
	StructureNested        StructureMode = "nested"
	StructureNestedGrouped StructureMode = "nested-grouped"
)

// Grouped reports whether output is placed under a group directory.
func (s StructureMode) Grouped() bool {
	return s == StructureFlatGrouped || s == StructureNestedGrouped
}

// Nested reports whether output is placed under a per-book directory.
func (s StructureMode) Nested() bool {
	return s == StructureNested || s == StructureNestedGrouped
}

// Default name-expressions used when a template omits them.
const (
	DefaultBookName       = "{{ .book.author }} - {{ .book.title }}"
	DefaultAnnotationName = "{{ .annotation.slugs.created }}-{{ .book.slugs.title }}"
	DefaultDirectoryName  = "{{ .book.author }} - {{ .book.title }}"
)

// Names holds the three name-expressions of a template.
type Names struct {
	Book       string `yaml:"book"`
	Annotation string `yaml:"annotation"`
	Directory  string `yaml:"directory"`
}

func (n Names) withDefaults() Names {
	if strings.TrimSpace(n.Book) == "" {
		n.Book = DefaultBookName
	}
	if strings.TrimSpace(n.Annotation) == "" {
		n.Annotation = DefaultAnnotationName
	}
	if strings.TrimSpace(n.Directory) == "" {
		n.Directory = DefaultDirectoryName
	}
	return n
}

// Descriptor is a fully configured template. It is immutable once parsed.
type Descriptor struct {
	// ID is the template path relative to the catalog root, slash separated.
	ID string

	// Group is the sanitized group name.
	Group string

	Context   ContextMode
	Structure StructureMode

	// Extension is the output file extension without a leading dot.
	Extension string

	// Names always holds all three expressions; omitted ones carry defaults.
	Names Names

	// Body is the template source with the config block removed.
	Body string
}

// Partial is a template fragment without configuration, included by name.
type Partial struct {
	ID   string
	Body string
}

type rawConfig struct {
	Group     string `yaml:"group"`
	Context   string `yaml:"context"`
	Structure string `yaml:"structure"`
	Extension string `yaml:"extension"`
	Names     Names  `yaml:"names"`
}

func (c *rawConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Group, validation.Required),
		validation.Field(&c.Context, validation.Required,
			validation.In(string(ContextBook), string(ContextAnnotation))),
		validation.Field(&c.Structure, validation.Required,
			validation.In(string(StructureFlat), string(StructureFlatGrouped),
				string(StructureNested), string(StructureNestedGrouped))),
		validation.Field(&c.Extension, validation.Required),
	)
}

// ParseDescriptor splits src into its config block and body, decodes the
// config and validates it. Every failure is returned as a *ConfigError.
func ParseDescriptor(id, src string) (Descriptor, error) {
	config, body, err := splitConfig(src)
	if err != nil {
		return Descriptor{}, &ConfigError{Path: id, Err: err}
	}

	var raw rawConfig
	dec := yaml.NewDecoder(strings.NewReader(config))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty configuration block")
		}
		return Descriptor{}, &ConfigError{Path: id, Err: err}
	}
	raw.Group = sanitize.Name(strings.TrimSpace(raw.Group))
	raw.Extension = strings.TrimPrefix(strings.TrimSpace(raw.Extension), ".")
	if err := raw.Validate(); err != nil {
		return Descriptor{}, &ConfigError{Path: id, Err: err}
	}

	return Descriptor{
		ID:        id,
		Group:     raw.Group,
		Context:   ContextMode(raw.Context),
		Structure: StructureMode(raw.Structure),
		Extension: raw.Extension,
		Names:     raw.Names.withDefaults(),
		Body:      body,
	}, nil
}

// splitConfig returns the YAML between the delimiters and the renderable body.
// Only whitespace may precede the opening tag. The line break that ends the
// closing tag line belongs to the delimiter; one further line break, if
// present, is consumed as well.
func splitConfig(src string) (config, body string, err error) {
	rest := strings.TrimLeft(src, " \t\r\n")
	if !strings.HasPrefix(rest, configOpen) {
		return "", "", errors.New("template does not start with a " + configOpen + " block")
	}
	rest = strings.TrimLeft(rest[len(configOpen):], " \t")
	rest, ok := cutLineBreak(rest)
	if !ok {
		return "", "", fmt.Errorf("expected a line break after %q", configOpen)
	}

	end := closingLine(rest)
	if end < 0 {
		return "", "", fmt.Errorf("unterminated configuration block: missing %q line", configClose)
	}
	config = rest[:end]
	rest = strings.TrimLeft(rest[end+len(configClose):], " \t")

	if rest != "" {
		var ok bool
		if rest, ok = cutLineBreak(rest); !ok {
			return "", "", fmt.Errorf("expected a line break after %q", configClose)
		}
		rest, _ = cutLineBreak(rest)
	}
	return config, rest, nil
}

// closingLine returns the offset of the first line that starts with the
// closing tag, or -1.
func closingLine(s string) int {
	offset := 0
	for {
		if strings.HasPrefix(s[offset:], configClose) {
			return offset
		}
		i := strings.IndexByte(s[offset:], '\n')
		if i < 0 {
			return -1
		}
		offset += i + 1
	}
}

func cutLineBreak(s string) (string, bool) {
	if rest, ok := strings.CutPrefix(s, "\r\n"); ok {
		return rest, true
	}
	return strings.CutPrefix(s, "\n")
}
