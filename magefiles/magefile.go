//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main contains Mage build targets for marginalia developer tooling.
package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "marginalia"
	cmdPkg  = "./cmd/marginalia"
)

// starterTemplate seeds a new templates directory with one nested template
// and a shared partial.
const starterTemplate = `<!-- marginalia
group: notes
context: annotation
structure: nested
extension: md
names:
  directory: '{{ .book.author }} - {{ .book.title }}'
  annotation: '{{ .annotation.slugs.created }}-{{ .annotation.id | trunc 8 }}'
-->
{{ template "_quote.md" .annotation }}
`

const starterPartial = `> {{ .body }}
{{- if .notes }}

{{ .notes }}
{{- end }}
`

// Init scaffolds a templates directory with a starter template and partial.
func Init() error {
	files := map[string]string{
		filepath.Join("templates", "notes", "annotation.md"): starterTemplate,
		filepath.Join("templates", "_quote.md"):              starterPartial,
	}
	for path, body := range files {
		if _, err := os.Stat(path); err == nil {
			fmt.Println("   exists", path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Println("  ", path)
	}
	fmt.Println("Templates directory initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Property runs the gopter property tests.
func Property() error {
	return sh.RunV("go", "test", "-tags", "property", "./...")
}

// All builds the binary and runs every test suite.
func All() {
	mg.SerialDeps(Build, Test, Property)
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	var prod, tests, words int
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".go":
			n, err := countLines(path)
			if err != nil {
				return err
			}
			if strings.HasSuffix(path, "_test.go") {
				tests += n
			} else {
				prod += n
			}
		case ".md", ".yaml", ".yml":
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			words += len(strings.Fields(string(data)))
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", tests)
	fmt.Printf("Words (documentation):           %d\n", words)
	return nil
}

// countLines counts the non-blank lines of a file.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}
