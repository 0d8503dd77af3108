package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/codechange.go/cli"
	"github.com/sokinpui/codechange.go/codechange"
	"github.com/sokinpui/codechange.go/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))            // Blue
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// --- Messages ---
type summaryMsg struct {
	model.Summary
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

type progressMsg struct {
	current, total int
}

// --- Model ---
type Model struct {
	app      *codechange.App
	cfg      *cli.Config
	spinner  spinner.Model
	progress progress.Model
	current  int
	total    int
	state    state
	summary  summaryMsg
	err      error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

func New(app *codechange.App, cfg *cli.Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		app:      app,
		cfg:      cfg,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		state:    stateProcessing,
	}
}

// SetProgram routes the app's progress reports into p.
func (m Model) SetProgram(p *tea.Program) {
	m.app.SetProgressCallback(func(current, total int) {
		p.Send(progressMsg{current: current, total: total})
	})
}

// Summary returns the result shown once the app has finished.
func (m Model) Summary() model.Summary {
	return m.summary.Summary
}

// Err returns the error the app stopped with, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case progressMsg:
		m.current, m.total = msg.current, msg.total
		return m, nil

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.total > 0 {
			percent := float64(m.current) / float64(m.total)
			return fmt.Sprintf("%s %s %d/%d files\n", m.spinner.View(), m.progress.ViewAs(percent), m.current, m.total)
		}
		return fmt.Sprintf("%s Processing...\n", m.spinner.View())
	case stateError:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Preview != "" {
		b.WriteString(renderDiff(m.summary.Preview))
		b.WriteString("\n")
	}

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n\n")
	}

	hasContent := false
	section := func(title string, style lipgloss.Style, items []string) {
		if len(items) == 0 {
			return
		}
		hasContent = true
		b.WriteString(style.Render(title))
		b.WriteString("\n")
		for _, item := range items {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(item)))
		}
	}

	section("Created:", successStyle, m.summary.Created)
	section("Modified:", successStyle, m.summary.Modified)
	section("Deleted:", successStyle, m.summary.Deleted)
	section("Already absent:", warningStyle, m.summary.Missing)
	section("Failed:", errorStyle, m.summary.Failed)
	section("Warnings:", warningStyle, m.summary.Warnings)
	section("Additional steps:", headerStyle, m.summary.Steps)
	section("Verification:", headerStyle, m.summary.Verification)

	if !hasContent && m.summary.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}

	return b.String()
}

func renderDiff(diff string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(headerStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(hunkStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(successStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(errorStyle.Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) runApp() tea.Msg {
	summary, err := m.app.Execute()
	if err != nil {
		var detailed *codechange.DetailedError
		if errors.As(err, &detailed) {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{
		Summary: summary,
	}
}
