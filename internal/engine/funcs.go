// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/marginalia/internal/epubcfi"
	"github.com/pdiddy/marginalia/internal/sanitize"
)

// Funcs returns the filter set available to every template: the sprig text
// functions plus a few overrides tuned for annotation records.
//
// join and date come from sprig and take the piped value last:
//
//	{{ .book.tags | join ", " }}
//	{{ .annotation.created | date "2006-01-02" }}
func Funcs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["sortBy"] = sortBy
	funcs["slugify"] = func(s string) string { return sanitize.Slug(s, true) }
	funcs["strip"] = strings.TrimSpace
	funcs["title"] = func(s string) string { return cases.Title(language.Und).String(s) }
	return funcs
}

// sortBy returns a copy of list ordered by the value stored under key in each
// element. Elements must be maps keyed by string. The sort is stable.
// Location keys compare step by step so 6.4.10 follows 6.4.9.
func sortBy(key string, list any) ([]map[string]any, error) {
	items, err := toMaps(list)
	if err != nil {
		return nil, err
	}
	out := append([]map[string]any(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if key == "location" {
			a, _ := out[i][key].(string)
			b, _ := out[j][key].(string)
			return epubcfi.Compare(a, b) < 0
		}
		return less(out[i][key], out[j][key])
	})
	return out, nil
}

func toMaps(list any) ([]map[string]any, error) {
	switch v := list.(type) {
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("sortBy: element %d is %T, not a map", i, item)
			}
			out = append(out, m)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("sortBy: cannot sort %s", reflect.TypeOf(list))
	}
}

func less(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return x < y
		}
	case int:
		if y, ok := b.(int); ok {
			return x < y
		}
	case float64:
		if y, ok := b.(float64); ok {
			return x < y
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
