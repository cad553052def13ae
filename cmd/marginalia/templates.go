// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/marginalia/internal/catalog"
	"github.com/pdiddy/marginalia/internal/engine"
	"github.com/pdiddy/marginalia/internal/process"
	"github.com/pdiddy/marginalia/internal/render"
	"github.com/pdiddy/marginalia/internal/source"
	"github.com/pdiddy/marginalia/pkg/types"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect a templates directory (list, check)",
	Long: `Templates inspects the template catalog without rendering anything.
Files starting with "." are ignored and files starting with "_" are partials.`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list [template]",
	Short: "List templates with their group, context, structure and extension",
	Long: `List prints one line per template. Given a template path relative to the
templates directory, it prints that template's configuration and
name-expressions instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemplatesList,
}

var templatesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report configuration and template errors",
	Long: `Check parses every template and its name-expressions. With --source-path
it also validates each template against the loaded records. Exits nonzero if
any template is invalid.`,
	RunE: runTemplatesCheck,
}

func templatesCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	dir, _ := cmd.Flags().GetString("templates")
	if dir == "" {
		dir = viper.GetString("templates_dir")
	}
	if dir == "" {
		return catalog.Default(appLog)
	}
	return catalog.Load(dir, appLog)
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	cat, err := templatesCatalog(cmd)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		t, ok := cat.Lookup(args[0])
		if !ok {
			return fmt.Errorf("no valid template %q", args[0])
		}
		fmt.Fprintf(os.Stdout, "template:   %s\ngroup:      %s\ncontext:    %s\nstructure:  %s\nextension:  %s\n",
			t.ID, t.Group, t.Context, t.Structure, t.Extension)
		fmt.Fprintf(os.Stdout, "names:\n  book:       %s\n  annotation: %s\n  directory:  %s\n",
			t.Names.Book, t.Names.Annotation, t.Names.Directory)
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-40s  %-16s  %-10s  %-14s  %s\n",
		"Template", "Group", "Context", "Structure", "Extension")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 96))
	for _, t := range cat.Templates() {
		fmt.Fprintf(os.Stdout, "%-40s  %-16s  %-10s  %-14s  %s\n",
			t.ID, t.Group, t.Context, t.Structure, t.Extension)
	}
	for _, p := range cat.Partials() {
		fmt.Fprintf(os.Stdout, "%-40s  (partial)\n", p.ID)
	}
	for _, err := range cat.Errors() {
		fmt.Fprintf(os.Stdout, "invalid: %v\n", err)
	}

	fmt.Fprintf(os.Stdout, "\n%d templates, %d partials, %d invalid\n",
		len(cat.Templates()), len(cat.Partials()), len(cat.Errors()))
	return nil
}

func runTemplatesCheck(cmd *cobra.Command, args []string) error {
	cat, err := templatesCatalog(cmd)
	if err != nil {
		return err
	}

	errs := cat.Errors()
	renderer, prepErrs := render.Prepare(cat, engine.New(appLog), appLog)
	errs = append(errs, prepErrs...)

	path, _ := cmd.Flags().GetString("source-path")
	if path != "" {
		kind, _ := cmd.Flags().GetString("source")
		reader, err := source.New(types.SourceConfig{Kind: types.SourceKind(kind), Path: path})
		if err != nil {
			return err
		}
		entries, err := reader.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading records: %w", err)
		}
		entries = process.Pre(entries, types.PreProcessConfig{ExtractTags: true})
		errs = append(errs, renderer.Validate(entries)...)
	}

	failed := make(map[string]bool)
	for _, err := range errs {
		var engErr *engine.Error
		if errors.As(err, &engErr) {
			failed[engErr.Template] = true
		}
	}
	for _, t := range renderer.Templates() {
		if !failed[t.ID] {
			fmt.Fprintf(os.Stdout, "ok:      %s\n", t.ID)
		}
	}
	for _, err := range errs {
		fmt.Fprintf(os.Stdout, "failed:  %v\n", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d template(s) invalid", len(errs))
	}
	return nil
}

func init() {
	templatesCmd.PersistentFlags().String("templates", "", "templates directory (default: built-in template)")
	templatesCheckCmd.Flags().String("source", string(types.SourceFile), "record source: file or applebooks")
	templatesCheckCmd.Flags().String("source-path", "", "validate templates against these records")

	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesCheckCmd)
	rootCmd.AddCommand(templatesCmd)
}
