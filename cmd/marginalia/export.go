// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/marginalia/internal/export"
	"github.com/pdiddy/marginalia/internal/output"
	"github.com/pdiddy/marginalia/pkg/types"
)

// exportViper keeps export settings apart from render's: both commands own
// flags named output, filter and overwrite.
var exportViper = viper.New()

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export books and annotations as JSON",
	Long: `Export writes one directory per book holding data/book.json,
data/annotations.json and an empty resources/ directory. Directory names are
rendered from --directory-template, by default

  {{ .book.author }} - {{ .book.title }}

Filters and pre-processors work as in render. Existing files are left
untouched unless --overwrite is given.`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.String("source", string(types.SourceFile), "record source: file or applebooks")
	f.String("source-path", "", "records file (source=file) or Apple Books databases directory (source=applebooks)")
	f.StringP("output", "o", "export", "output directory")
	f.String("directory-template", "", "name-expression for each book's directory")
	f.Bool("overwrite", false, "overwrite existing files")
	f.StringArray("filter", nil, "filter expression (repeatable, combined with AND)")
	f.BoolP("auto-confirm", "y", false, "skip the confirmation prompt shown after filtering")
	f.Bool("extract-tags", false, "move #tags from notes into the tag set")
	f.Bool("normalize-whitespace", false, "trim text and collapse runs of blank lines")
	f.Bool("ascii-all", false, "transliterate all text to ASCII")
	f.Bool("ascii-symbols", false, "transliterate typographic symbols to ASCII")

	bindings := map[string]string{
		"source.kind":                      "source",
		"source.path":                      "source-path",
		"output_dir":                       "output",
		"directory_template":               "directory-template",
		"overwrite":                        "overwrite",
		"filters":                          "filter",
		"auto_confirm":                     "auto-confirm",
		"pre_process.extract_tags":         "extract-tags",
		"pre_process.normalize_whitespace": "normalize-whitespace",
		"pre_process.ascii_all":            "ascii-all",
		"pre_process.ascii_symbols":        "ascii-symbols",
	}
	for key, flag := range bindings {
		_ = exportViper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := exportViper.MergeConfigMap(sharedSettings()); err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}
	var cfg types.ExportConfig
	if err := exportViper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}
	if cmd.Flags().Changed("filter") {
		cfg.Filters, _ = cmd.Flags().GetStringArray("filter")
	}

	res, err := export.Run(cmd.Context(), export.Options{
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
		return fmt.Errorf("%d file(s) failed", res.Summary.Failed)
	}
	return nil
}

// sharedSettings picks the source and pre_process sections of the global
// configuration plus everything under its export section. Flags take
// precedence over all of them.
func sharedSettings() map[string]any {
	all := viper.AllSettings()
	out := make(map[string]any)
	for _, key := range []string{"source", "pre_process"} {
		if v, ok := all[key]; ok {
			out[key] = v
		}
	}
	if section, ok := all["export"].(map[string]any); ok {
		for k, v := range section {
			out[k] = v
		}
	}
	return out
}
