// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/marginalia/internal/catalog"
	"github.com/pdiddy/marginalia/internal/engine"
	"github.com/pdiddy/marginalia/internal/filter"
	"github.com/pdiddy/marginalia/internal/logger"
	"github.com/pdiddy/marginalia/internal/render"
	"github.com/pdiddy/marginalia/pkg/types"
)

// staticReader serves fixed entries and records whether it was called.
type staticReader struct {
	entries []types.Entry
	loaded  bool
}

func (r *staticReader) Load(context.Context) ([]types.Entry, error) {
	r.loaded = true
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
				{ID: "A4", BookID: "B1", Body: "fourth", Notes: "#star", Created: at(4)},
				{ID: "A1", BookID: "B1", Body: "first", Notes: "#star lovely", Created: at(1)},
				{ID: "A2", BookID: "B1", Body: "second", Notes: "plain", Created: at(2)},
				{ID: "A3", BookID: "B1", Body: "third", Created: at(3)},
			},
		},
		{
			Book: types.Book{ID: "B2", Title: "The Art Spirit Revisited", Author: "Someone"},
			Annotations: []types.Annotation{
				{ID: "A5", BookID: "B2", Body: "other", Notes: "#star", Created: at(5)},
			},
		},
	}
}

func writeTemplate(t *testing.T, dir, name, context, structure, body string) {
	t.Helper()
	src := "<!-- marginalia\ngroup: main\ncontext: " + context + "\nstructure: " + structure +
		"\nextension: md\n-->\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func baseConfig(t *testing.T, templates string) types.RenderConfig {
	return types.RenderConfig{
		Source:       types.SourceConfig{Kind: types.SourceFile, Path: "unused.yaml"},
		TemplatesDir: templates,
		OutputDir:    t.TempDir(),
		AutoConfirm:  true,
	}
}

func TestRunBookTemplate(t *testing.T) {
	templates := t.TempDir()
	writeTemplate(t, templates, "book.md", "book", "flat", "{{ range .annotations }}{{ .body }}\n{{ end }}")

	cfg := baseConfig(t, templates)
	cfg.Filters = []string{"=title:the art spirit"}
	var report bytes.Buffer

	res, err := Run(context.Background(), Options{
		Config: cfg,
		Reader: &staticReader{entries: corpus()},
		Report: &report,
		Log:    logger.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Written)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "Robert Henri - The Art Spirit.md"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nthird\nfourth\n", string(data))
	assert.Contains(t, report.String(), "written: ")
}

func TestRunAnnotationTemplate(t *testing.T) {
	templates := t.TempDir()
	writeTemplate(t, templates, "note.md", "annotation", "flat", "{{ .annotation.body }}")

	cfg := baseConfig(t, templates)
	cfg.Filters = []string{"=title:the art spirit"}

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Summary.Written)

	files, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, files, 4)
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "2021-03-01-093000-the-art-spirit.md"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestRunFilterAfterTagExtraction(t *testing.T) {
	templates := t.TempDir()
	writeTemplate(t, templates, "book.md", "book", "flat",
		"{{ range .annotations }}{{ .body }}[{{ .notes }}]{{ .tags | join \",\" }}\n{{ end }}")

	cfg := baseConfig(t, templates)
	cfg.Filters = []string{"=title:the art spirit", "tag:#star"}
	cfg.PreProcess.ExtractTags = true

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}})
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "B1", res.Units[0].BookID)

	data, err := os.ReadFile(res.Units[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "first[lovely]#star\nfourth[]#star\n", string(data))
}

func TestRunGroupNotFound(t *testing.T) {
	templates := t.TempDir()
	writeTemplate(t, templates, "book.md", "book", "flat", "{{ .book.title }}")

	cfg := baseConfig(t, templates)
	cfg.TemplateGroups = []string{"missing-group"}
	reader := &staticReader{entries: corpus()}

	_, err := Run(context.Background(), Options{Config: cfg, Reader: reader})
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrGroupNotFound))
	assert.False(t, reader.loaded, "records must not be loaded")

	files, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRunBadFilter(t *testing.T) {
	cfg := baseConfig(t, "")
	cfg.Filters = []string{"colour:red"}
	reader := &staticReader{entries: corpus()}

	_, err := Run(context.Background(), Options{Config: cfg, Reader: reader})
	assert.True(t, errors.Is(err, filter.ErrSyntax))
	assert.False(t, reader.loaded)
}

func TestRunSkipsExisting(t *testing.T) {
	templates := t.TempDir()
	writeTemplate(t, templates, "book.md", "book", "flat", "{{ .book.title }}")
	cfg := baseConfig(t, templates)
	cfg.Filters = []string{"=title:the art spirit"}

	existing := filepath.Join(cfg.OutputDir, "Robert Henri - The Art Spirit.md")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Skipped)
	assert.Equal(t, render.Skipped, res.Units[0].Outcome)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestRunDeclined(t *testing.T) {
	cfg := baseConfig(t, "")
	cfg.AutoConfirm = false
	cfg.Filters = []string{"author:e"}

	var asked [2]int
	res, err := Run(context.Background(), Options{
		Config: cfg,
		Reader: &staticReader{entries: corpus()},
		Confirm: func(books, annotations int) (bool, error) {
			asked = [2]int{books, annotations}
			return false, nil
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Declined)
	assert.Equal(t, [2]int{2, 5}, asked)

	files, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRunWithoutFiltersDoesNotConfirm(t *testing.T) {
	cfg := baseConfig(t, "")
	cfg.AutoConfirm = false

	asked := false
	res, err := Run(context.Background(), Options{
		Config: cfg,
		Reader: &staticReader{entries: corpus()},
		Confirm: func(books, annotations int) (bool, error) {
			asked = true
			return false, errors.New("no terminal")
		},
	})
	require.NoError(t, err)
	assert.False(t, asked)
	assert.False(t, res.Declined)
	assert.Equal(t, 2, res.Summary.Written)
}

func TestRunConfirmsFilteredRecords(t *testing.T) {
	cfg := baseConfig(t, "")
	cfg.AutoConfirm = false
	cfg.Filters = []string{"=author:robert henri"}

	var asked [2]int
	res, err := Run(context.Background(), Options{
		Config: cfg,
		Reader: &staticReader{entries: corpus()},
		Confirm: func(books, annotations int) (bool, error) {
			asked = [2]int{books, annotations}
			return true, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 4}, asked)
	assert.Equal(t, 1, res.Summary.Written)
}

func TestRunAutoConfirmSkipsPrompt(t *testing.T) {
	cfg := baseConfig(t, "")
	cfg.Filters = []string{"=author:robert henri"}

	res, err := Run(context.Background(), Options{
		Config: cfg,
		Reader: &staticReader{entries: corpus()},
		Confirm: func(books, annotations int) (bool, error) {
			t.Fatal("confirmation asked despite auto-confirm")
			return false, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Written)
}

func TestRunTemplateFailuresAreIsolated(t *testing.T) {
	templates := t.TempDir()
	writeTemplate(t, templates, "a-broken.md", "book", "flat", "{{ .book.nope }}")
	writeTemplate(t, templates, "b-good.md", "book", "flat-grouped", "{{ .book.title }}")
	require.NoError(t, os.WriteFile(filepath.Join(templates, "c-no-config.md"), []byte("hi"), 0o644))

	cfg := baseConfig(t, templates)
	var report bytes.Buffer
	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}, Report: &report})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.Written)
	assert.Equal(t, 2, res.Summary.TemplatesFailed)
	assert.True(t, res.Summary.HasFailures())

	var engErr *engine.Error
	var cfgErr *catalog.ConfigError
	var sawEngine, sawConfig bool
	for _, err := range res.TemplateErrors {
		sawEngine = sawEngine || errors.As(err, &engErr)
		sawConfig = sawConfig || errors.As(err, &cfgErr)
	}
	assert.True(t, sawEngine)
	assert.True(t, sawConfig)
	assert.Equal(t, 2, strings.Count(report.String(), "failed:  template"))
}

func TestRunDefaultTemplateWithPostProcess(t *testing.T) {
	cfg := baseConfig(t, "")
	cfg.Filters = []string{"=author:robert henri"}
	cfg.PostProcess = types.PostProcessConfig{TrimBlocks: true, WrapText: 40}

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: corpus()}})
	require.NoError(t, err)
	require.Len(t, res.Units, 1)

	data, err := os.ReadFile(res.Units[0].Path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasSuffix(text, "\n"))
	assert.NotContains(t, text, "\n\n\n")
	for _, line := range strings.Split(text, "\n") {
		assert.LessOrEqual(t, len(line), 40)
	}
}

func TestRunNameRoundTrip(t *testing.T) {
	templates := t.TempDir()
	writeTemplate(t, templates, "book.md", "book", "flat", "{{ .names.book }}")

	cfg := baseConfig(t, templates)
	entries := corpus()
	entries[1].Book.Title = "Part 1/2: The Return"

	res, err := Run(context.Background(), Options{Config: cfg, Reader: &staticReader{entries: entries}})
	require.NoError(t, err)
	require.Len(t, res.Units, 2)

	for _, u := range res.Units {
		data, err := os.ReadFile(u.Path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Base(u.Path), string(data))
	}
}

func TestRunInvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{Config: types.RenderConfig{}})
	assert.Error(t, err)
}
