// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SourceKind selects the reader that supplies books and annotations.
type SourceKind string

const (
	SourceFile       SourceKind = "file"
	SourceAppleBooks SourceKind = "applebooks"
)

// SourceConfig holds settings for loading records.
type SourceConfig struct {
	// Kind selects the reader: file or applebooks.
	Kind SourceKind `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Path is a records file (kind=file) or a databases directory
	// containing BKLibrary/ and AEAnnotation/ (kind=applebooks).
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Validate checks that the source is fully specified.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(SourceFile, SourceAppleBooks)),
		validation.Field(&c.Path, validation.Required),
	)
}

// PreProcessConfig toggles the transformations applied to raw records.
type PreProcessConfig struct {
	ExtractTags         bool `json:"extract_tags" yaml:"extract_tags" mapstructure:"extract_tags"`
	NormalizeWhitespace bool `json:"normalize_whitespace" yaml:"normalize_whitespace" mapstructure:"normalize_whitespace"`
	ASCIIAll            bool `json:"ascii_all" yaml:"ascii_all" mapstructure:"ascii_all"`
	ASCIISymbols        bool `json:"ascii_symbols" yaml:"ascii_symbols" mapstructure:"ascii_symbols"`
}

// PostProcessConfig toggles the transformations applied to rendered text.
type PostProcessConfig struct {
	TrimBlocks bool `json:"trim_blocks" yaml:"trim_blocks" mapstructure:"trim_blocks"`

	// WrapText is the maximum line width; zero disables wrapping.
	WrapText int `json:"wrap_text" yaml:"wrap_text" mapstructure:"wrap_text"`
}

// Validate rejects negative wrap widths.
func (c *PostProcessConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WrapText, validation.Min(0)),
	)
}

// RenderConfig groups everything the render command needs.
type RenderConfig struct {
	Source SourceConfig `json:"source" yaml:"source" mapstructure:"source"`

	// TemplatesDir is the root of the template catalog. Empty selects the
	// built-in default template.
	TemplatesDir string `json:"templates_dir" yaml:"templates_dir" mapstructure:"templates_dir"`

	// TemplateGroups restricts rendering to the named groups.
	TemplateGroups []string `json:"template_groups" yaml:"template_groups" mapstructure:"template_groups"`

	// OutputDir is the root under which rendered files are written.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Overwrite replaces existing files instead of skipping them.
	Overwrite bool `json:"overwrite" yaml:"overwrite" mapstructure:"overwrite"`

	// Filters are filter expressions combined with logical AND.
	Filters []string `json:"filters" yaml:"filters" mapstructure:"filters"`

	// AutoConfirm skips the confirmation prompt.
	AutoConfirm bool `json:"auto_confirm" yaml:"auto_confirm" mapstructure:"auto_confirm"`

	PreProcess  PreProcessConfig  `json:"pre_process" yaml:"pre_process" mapstructure:"pre_process"`
	PostProcess PostProcessConfig `json:"post_process" yaml:"post_process" mapstructure:"post_process"`
}

// Validate checks the render configuration.
func (c *RenderConfig) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.PostProcess.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputDir, validation.Required),
	)
}

// ExportConfig groups everything the export command needs.
type ExportConfig struct {
	Source SourceConfig `json:"source" yaml:"source" mapstructure:"source"`

	// OutputDir is the root under which one directory per book is written.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// DirectoryTemplate names each book's directory. Empty selects
	// "{{ .book.author }} - {{ .book.title }}".
	DirectoryTemplate string `json:"directory_template" yaml:"directory_template" mapstructure:"directory_template"`

	Overwrite   bool     `json:"overwrite" yaml:"overwrite" mapstructure:"overwrite"`
	Filters     []string `json:"filters" yaml:"filters" mapstructure:"filters"`
	AutoConfirm bool     `json:"auto_confirm" yaml:"auto_confirm" mapstructure:"auto_confirm"`

	PreProcess PreProcessConfig `json:"pre_process" yaml:"pre_process" mapstructure:"pre_process"`
}

// Validate checks the export configuration.
func (c *ExportConfig) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputDir, validation.Required),
	)
}
