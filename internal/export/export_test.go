// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/marginalia/internal/catalog"
	"github.com/pdiddy/marginalia/internal/engine"
	"github.com/pdiddy/marginalia/internal/filter"
	"github.com/pdiddy/marginalia/internal/logger"
	"github.com/pdiddy/marginalia/internal/output"
	"github.com/pdiddy/marginalia/internal/render"
	"github.com/pdiddy/marginalia/pkg/types"
)

type staticReader struct {
	entries []types.Entry
}

func (r *staticReader) Load(context.Context) ([]types.Entry, error) {
	return r.entries, nil
}

func at(d int) time.Time {
	return time.Date(2021, time.March, d, 9, 30, 0, 0, time.UTC)
}

func corpus() []types.Entry {
	return []types.Entry{
		{
			Book: types.Book{ID: "B1", Title: "The Art Spirit", Author: "Robert Henri"},
			Annotations: []types.Annotation{
				{ID: "A2", BookID: "B1", Body: "second", Notes: "#star", Created: at(2)},
				{ID: "A1", BookID: "B1", Body: "first", Created: at(1)},
			},
		},
		{
			Book: types.Book{ID: "B2", Title: "Part 1/2", Author: "Someone"},
			Annotations: []types.Annotation{
				{ID: "A3", BookID: "B2", Body: "other", Created: at(3)},
			},
		},
	}
}

func config(t *testing.T) types.ExportConfig {
	return types.ExportConfig{
		Source:      types.SourceConfig{Kind: types.SourceFile, Path: "unused.yaml"},
		OutputDir:   t.TempDir(),
		AutoConfirm: true,
	}
}

func TestRunLayout(t *testing.T) {
	cfg := config(t)
	var report bytes.Buffer

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}, Report: &report})
	require.NoError(t, err)
	assert.Equal(t, output.Summary{Written: 6}, res.Summary)

	root := filepath.Join(cfg.OutputDir, "Robert Henri - The Art Spirit")
	data, err := os.ReadFile(filepath.Join(root, "data", "book.json"))
	require.NoError(t, err)
	var book types.Book
	require.NoError(t, json.Unmarshal(data, &book))
	assert.Equal(t, "The Art Spirit", book.Title)

	data, err = os.ReadFile(filepath.Join(root, "data", "annotations.json"))
	require.NoError(t, err)
	var annotations []types.Annotation
	require.NoError(t, json.Unmarshal(data, &annotations))
	require.Len(t, annotations, 2)
	assert.Equal(t, "A1", annotations[0].ID)
	assert.Equal(t, "A2", annotations[1].ID)

	info, err := os.Stat(filepath.Join(root, "resources", ".gitkeep"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "Someone - Part 1_2", "data", "book.json"))
	assert.NoError(t, err)
	assert.Contains(t, report.String(), "written: "+filepath.Join(root, "data", "book.json"))
}

func TestRunSkipsExisting(t *testing.T) {
	cfg := config(t)
	path := filepath.Join(cfg.OutputDir, "Robert Henri - The Art Spirit", "data", "book.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	var report bytes.Buffer
	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}, Report: &report})
	require.NoError(t, err)
	assert.Equal(t, output.Summary{Written: 5, Skipped: 1}, res.Summary)
	assert.Contains(t, report.String(), "skipped: "+path+" (already exists)")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestRunOverwrite(t *testing.T) {
	cfg := config(t)
	cfg.Overwrite = true
	path := filepath.Join(cfg.OutputDir, "Robert Henri - The Art Spirit", "data", "book.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}})
	require.NoError(t, err)
	assert.Equal(t, output.Summary{Written: 6}, res.Summary)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "The Art Spirit"`)
}

func TestRunFiltersAndPreProcess(t *testing.T) {
	cfg := config(t)
	cfg.Filters = []string{"tag:#star"}
	cfg.PreProcess.ExtractTags = true
	cfg.DirectoryTemplate = "{{ .book.slugs.title }}"

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}})
	require.NoError(t, err)
	assert.Equal(t, output.Summary{Written: 3}, res.Summary)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "the-art-spirit", "data", "annotations.json"))
	require.NoError(t, err)
	var annotations []types.Annotation
	require.NoError(t, json.Unmarshal(data, &annotations))
	require.Len(t, annotations, 1)
	assert.Equal(t, []string{"#star"}, annotations[0].Tags)
	assert.Empty(t, annotations[0].Notes)
}

func TestRunConfirmation(t *testing.T) {
	cfg := config(t)
	cfg.AutoConfirm = false

	asked := false
	confirm := func(books, annotations int) (bool, error) {
		asked = true
		return false, nil
	}

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}, Confirm: confirm})
	require.NoError(t, err)
	assert.False(t, asked)
	assert.Equal(t, 6, res.Summary.Written)

	cfg.OutputDir = t.TempDir()
	cfg.Filters = []string{"author:henri"}
	res, err = Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}, Confirm: confirm})
	require.NoError(t, err)
	assert.True(t, asked)
	assert.True(t, res.Declined)

	files, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.ExportConfig)
		is     error
	}{
		{name: "bad filter", mutate: func(c *types.ExportConfig) { c.Filters = []string{"nope:x"} }, is: filter.ErrSyntax},
		{name: "bad directory template", mutate: func(c *types.ExportConfig) { c.DirectoryTemplate = "{{ .book.title" }},
		{name: "missing output", mutate: func(c *types.ExportConfig) { c.OutputDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config(t)
			tt.mutate(&cfg)
			_, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}})
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestUnitsIsolatesBookFailures(t *testing.T) {
	r := render.NewResolver(engine.New(logger.Discard()))
	entries := corpus()
	entries[0].Book.Title = ""
	entries[0].Book.Author = ""

	units, errs := Units(r, "{{ .book.author }}{{ .book.title }}", entries)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "book B1")
	require.Len(t, units, 3)
	for _, u := range units {
		assert.Equal(t, "B2", u.BookID)
		assert.Equal(t, catalog.StructureNested, u.Structure)
		assert.Equal(t, "Someone - Part 1_2", filepath.Dir(filepath.Dir(output.RelPath(u))))
	}
	assert.Equal(t, "export (book B2)", units[0].Label())
}

func TestUnitsEmptyAnnotations(t *testing.T) {
	r := render.NewResolver(engine.New(logger.Discard()))
	units, errs := Units(r, catalog.DefaultDirectoryName, []types.Entry{{Book: types.Book{ID: "B", Title: "T", Author: "A"}}})
	require.Empty(t, errs)
	require.Len(t, units, 3)
	assert.Equal(t, "[]\n", units[1].Text)
}
