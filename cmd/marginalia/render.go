// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/marginalia/internal/output"
	"github.com/pdiddy/marginalia/internal/pipeline"
	"github.com/pdiddy/marginalia/pkg/types"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render annotations through templates into an output directory",
	Long: `Render loads books and annotations from the configured source, applies
the enabled pre-processors, keeps what matches every --filter, renders each
template once per book or once per annotation and writes the results.

Filters have the form [op]field:query where op is ? (any term, default),
* (all terms) or = (exact), and field is title, author or tag. For example:

  marginalia render --filter '=title:the art spirit' --filter 'tag:#star'

Existing files are left untouched unless --overwrite is given.`,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.String("source", string(types.SourceFile), "record source: file or applebooks")
	f.String("source-path", "", "records file (source=file) or Apple Books databases directory (source=applebooks)")
	f.String("templates", "", "templates directory (default: built-in template)")
	f.StringArray("template-group", nil, "render only this template group (repeatable)")
	f.StringP("output", "o", "output", "output directory")
	f.Bool("overwrite", false, "overwrite existing files")
	f.StringArray("filter", nil, "filter expression (repeatable, combined with AND)")
	f.BoolP("auto-confirm", "y", false, "skip the confirmation prompt shown after filtering")
	f.Bool("extract-tags", false, "move #tags from notes into the tag set")
	f.Bool("normalize-whitespace", false, "trim text and collapse runs of blank lines")
	f.Bool("ascii-all", false, "transliterate all text to ASCII")
	f.Bool("ascii-symbols", false, "transliterate typographic symbols to ASCII")
	f.Bool("trim-blocks", false, "collapse blank lines in rendered output")
	f.Int("wrap-text", 0, "wrap rendered output at this width (0 disables)")

	bindings := map[string]string{
		"source.kind":                      "source",
		"source.path":                      "source-path",
		"templates_dir":                    "templates",
		"template_groups":                  "template-group",
		"output_dir":                       "output",
		"overwrite":                        "overwrite",
		"filters":                          "filter",
		"auto_confirm":                     "auto-confirm",
		"pre_process.extract_tags":         "extract-tags",
		"pre_process.normalize_whitespace": "normalize-whitespace",
		"pre_process.ascii_all":            "ascii-all",
		"pre_process.ascii_symbols":        "ascii-symbols",
		"post_process.trim_blocks":         "trim-blocks",
		"post_process.wrap_text":           "wrap-text",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	var cfg types.RenderConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}
	// viper splits array flags on commas; filters may contain them.
	if cmd.Flags().Changed("filter") {
		cfg.Filters, _ = cmd.Flags().GetStringArray("filter")
	}
	if cmd.Flags().Changed("template-group") {
		cfg.TemplateGroups, _ = cmd.Flags().GetStringArray("template-group")
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.Options{
		Config:   cfg,
		Confirm:  confirmRun,
		Report:   os.Stdout,
		Progress: output.NewProgress(os.Stderr),
		Log:      appLog,
	})
	if err != nil {
		return err
	}
	if res.Declined {
		fmt.Fprintln(os.Stderr, "Aborted; nothing was written.")
		return nil
	}

	res.Summary.Print(os.Stdout)
	if res.Summary.HasFailures() {
		return fmt.Errorf("%d file(s) and %d template(s) failed", res.Summary.Failed, res.Summary.TemplatesFailed)
	}
	return nil
}
