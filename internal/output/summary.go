// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Summary tallies the outcome of a run.
type Summary struct {
	Written int
	Skipped int
	Failed  int

	// TemplatesFailed counts templates skipped for configuration or
	// rendering errors. They produce no units and are not in Total.
	TemplatesFailed int
}

// Total returns the number of units processed.
func (s Summary) Total() int {
	return s.Written + s.Skipped + s.Failed
}

// HasFailures reports whether any unit or template failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0 || s.TemplatesFailed > 0
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Print writes the summary lines to w. Colors are applied only when the
// terminal supports them.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nSummary: %s, %s, %s (total: %d)\n",
		count(okStyle, s.Written, "written"),
		count(warnStyle, s.Skipped, "skipped"),
		count(failStyle, s.Failed, "failed"),
		s.Total())
	if s.TemplatesFailed > 0 {
		fmt.Fprintf(w, "Templates failed: %s\n", failStyle.Render(fmt.Sprint(s.TemplatesFailed)))
	}
}

func count(style lipgloss.Style, n int, label string) string {
	text := fmt.Sprintf("%d %s", n, label)
	if n == 0 {
		return text
	}
	return style.Render(text)
}
