// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package epubcfi turns EPUB canonical fragment identifiers into sortable
// location keys.
package epubcfi

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	cfiStep       = regexp.MustCompile(`/[0-9]+`)
	cfiAssertion  = regexp.MustCompile(`\[[^\[\]]*\]`)
	cfiCharOffset = regexp.MustCompile(`:[0-9]+$`)
	cfiTemporal   = regexp.MustCompile(`~[0-9]+\.[0-9]+`)
	cfiSpatial    = regexp.MustCompile(`@[0-9.]+:[0-9.]+`)
)

// Location converts an EPUB CFI such as
//
//	epubcfi(/6/4[chap01ref]!/4[body01]/10[para05],/2/1:1,/3:4)
//
// into a dotted location key such as 6.4.4.10.2.1:1. Assertions, temporal
// and spatial offsets are dropped; for ranges only the parent path and the
// range start are kept. Anything that is not a CFI yields "".
func Location(cfi string) string {
	if !strings.HasPrefix(cfi, "epubcfi(") || !strings.HasSuffix(cfi, ")") {
		return ""
	}
	s := cfi[len("epubcfi(") : len(cfi)-1]
	s = cfiAssertion.ReplaceAllString(s, "")
	s = cfiTemporal.ReplaceAllString(s, "")
	s = cfiSpatial.ReplaceAllString(s, "")

	if parts := strings.Split(s, ","); len(parts) == 3 {
		s = parts[0] + parts[1]
	} else {
		s = strings.Join(parts, "")
	}

	steps := cfiStep.FindAllString(s, -1)
	if len(steps) == 0 {
		return ""
	}
	for i, step := range steps {
		steps[i] = step[1:]
	}
	return strings.Join(steps, ".") + cfiCharOffset.FindString(s)
}

// Compare orders two location keys step by step, numerically, so
// 6.4.10 sorts after 6.4.9. It returns -1, 0 or 1.
func Compare(a, b string) int {
	as, ao := splitLocation(a)
	bs, bo := splitLocation(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareInt(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return compareInt(ao, bo)
}

func splitLocation(loc string) (steps []int, offset int) {
	path, off, _ := strings.Cut(loc, ":")
	if path != "" {
		for _, p := range strings.Split(path, ".") {
			n, _ := strconv.Atoi(p)
			steps = append(steps, n)
		}
	}
	offset, _ = strconv.Atoi(off)
	return steps, offset
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
