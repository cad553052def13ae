// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var promptStyle = lipgloss.NewStyle().Bold(true)

// confirmModel is a one-key yes/no prompt. Anything but y or Y declines.
type confirmModel struct {
	question string
	answer   bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer = true
	}
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return promptStyle.Render(m.question) + " [y/N] "
}

// confirmRun asks whether to render the filtered records.
func confirmRun(books, annotations int) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false, errors.New("stdin is not a terminal; pass --auto-confirm to render without prompting")
	}
	m := confirmModel{
		question: fmt.Sprintf("Render %d annotation(s) from %d book(s)?", annotations, books),
	}
	final, err := tea.NewProgram(m, tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return false, err
	}
	return final.(confirmModel).answer, nil
}
