// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"
)

// Progress draws a single-line progress bar while units are written. A nil
// *Progress is valid and draws nothing.
type Progress struct {
	out             io.Writer
	enabled         bool
	total           int
	current         int
	lastRenderWidth int
	bar             progress.Model
}

// NewProgress returns a bar drawing to out. It is enabled only when out is a
// terminal.
func NewProgress(out io.Writer) *Progress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 36
	if cols, err := strconv.Atoi(strings.TrimSpace(os.Getenv("COLUMNS"))); err == nil && cols > 0 {
		bar.Width = min(max(cols-40, 16), 64)
	}
	return &Progress{out: out, enabled: isTerminal(out), bar: bar}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start resets the bar for a batch of total units.
func (p *Progress) Start(total int) {
	if p == nil {
		return
	}
	p.total = max(total, 1)
	p.current = 0
}

// Advance moves the bar one unit forward.
func (p *Progress) Advance(label string) {
	if p == nil || !p.enabled {
		return
	}
	p.current = min(p.current+1, p.total)
	p.render(label)
}

// Close ends the bar's line.
func (p *Progress) Close() {
	if p == nil || !p.enabled || p.lastRenderWidth == 0 {
		return
	}
	fmt.Fprint(p.out, "\n")
	p.lastRenderWidth = 0
}

func (p *Progress) render(label string) {
	percent := float64(p.current) / float64(p.total)
	line := fmt.Sprintf("%s %3.0f%% %d/%d %s", p.bar.ViewAs(percent), percent*100, p.current, p.total, label)
	pad := ""
	if p.lastRenderWidth > len(line) {
		pad = strings.Repeat(" ", p.lastRenderWidth-len(line))
	}
	fmt.Fprintf(p.out, "\r%s%s", line, pad)
	p.lastRenderWidth = len(line)
}
