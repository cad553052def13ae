// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog discovers templates under a directory, parses their
// configuration blocks and groups them. A Catalog is built once per run and
// never modified afterwards; Select returns a restricted copy.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pdiddy/marginalia/internal/sanitize"
)

//go:embed defaults/*.md
var defaultTemplates embed.FS

// Catalog is the set of templates and partials available to a run, plus the
// configuration errors found while loading it.
type Catalog struct {
	templates []Descriptor
	partials  []Partial
	errs      []error
}

// Load scans root recursively. Only I/O failures are returned as an error;
// invalid templates are recorded and reported by Errors.
func Load(root string, log *slog.Logger) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening templates directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates path %s is not a directory", root)
	}
	return LoadFS(os.DirFS(root), log)
}

// Default returns the catalog holding the built-in template.
func Default(log *slog.Logger) (*Catalog, error) {
	sub, err := fs.Sub(defaultTemplates, "defaults")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub, log)
}

// LoadFS builds a catalog from fsys. Entries whose name starts with "." are
// ignored, files whose name starts with "_" become partials. Templates are
// visited in lexical path order.
func LoadFS(fsys fs.FS, log *slog.Logger) (*Catalog, error) {
	c := &Catalog{}
	names := make(map[string]Descriptor)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}

		if strings.HasPrefix(d.Name(), PartialPrefix) {
			c.partials = append(c.partials, Partial{ID: p, Body: string(data)})
			log.Debug("found partial", "template", p)
			return nil
		}

		desc, err := ParseDescriptor(p, string(data))
		if err != nil {
			log.Warn("skipping template", "template", p, "error", err)
			c.errs = append(c.errs, err)
			return nil
		}

		if first, ok := names[desc.Group]; ok && first.Names != desc.Names {
			err := &ConfigError{
				Path: p,
				Err: fmt.Errorf("names differ from %s in group %q; templates in one group must share name-expressions",
					first.ID, desc.Group),
			}
			log.Warn("skipping template", "template", p, "error", err)
			c.errs = append(c.errs, err)
			return nil
		}
		if _, ok := names[desc.Group]; !ok {
			names[desc.Group] = desc
		}

		c.templates = append(c.templates, desc)
		log.Debug("found template", "template", p, "group", desc.Group,
			"context", desc.Context, "structure", desc.Structure)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning templates: %w", err)
	}
	return c, nil
}

// Templates returns the valid templates in path order.
func (c *Catalog) Templates() []Descriptor {
	return append([]Descriptor(nil), c.templates...)
}

// Partials returns the partial templates in path order.
func (c *Catalog) Partials() []Partial {
	return append([]Partial(nil), c.partials...)
}

// Errors returns the configuration errors found while loading.
func (c *Catalog) Errors() []error {
	return append([]error(nil), c.errs...)
}

// Groups returns the sorted set of group names declared by valid templates.
func (c *Catalog) Groups() []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, t := range c.templates {
		if _, ok := seen[t.Group]; ok {
			continue
		}
		seen[t.Group] = struct{}{}
		groups = append(groups, t.Group)
	}
	sort.Strings(groups)
	return groups
}

// Select returns a catalog restricted to the requested groups. An empty
// request returns c unchanged. Every requested group must be declared by at
// least one template, otherwise a *GroupNotFoundError is returned.
func (c *Catalog) Select(groups []string) (*Catalog, error) {
	if len(groups) == 0 {
		return c, nil
	}

	declared := make(map[string]struct{})
	for _, g := range c.Groups() {
		declared[g] = struct{}{}
	}
	wanted := make(map[string]struct{})
	var missing []string
	for _, g := range groups {
		name := sanitize.Name(strings.TrimSpace(g))
		if _, ok := declared[name]; !ok {
			missing = append(missing, g)
		}
		wanted[name] = struct{}{}
	}
	if len(missing) > 0 {
		return nil, &GroupNotFoundError{Missing: missing, Available: c.Groups()}
	}

	out := &Catalog{partials: c.partials, errs: c.errs}
	for _, t := range c.templates {
		if _, ok := wanted[t.Group]; ok {
			out.templates = append(out.templates, t)
		}
	}
	return out, nil
}

// Lookup returns the template with the given id.
func (c *Catalog) Lookup(id string) (Descriptor, bool) {
	id = path.Clean(id)
	for _, t := range c.templates {
		if t.ID == id {
			return t, true
		}
	}
	return Descriptor{}, false
}
