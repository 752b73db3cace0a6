package tui

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/gitpulse/internal/dashboard"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/report"
	"github.com/waabox/gitpulse/internal/stats"
)

const (
	// refreshInterval is the auto-refresh period while nothing is running.
	refreshInterval = 2 * time.Minute
	// activeRefreshInterval is used while any latest run is still in flight.
	activeRefreshInterval = 30 * time.Second
)

// Source produces the reports shown by the browser.
type Source interface {
	Build(ctx context.Context, req dashboard.Request) (dashboard.CIReport, error)
	Inspect(ctx context.Context, req dashboard.Request, query string) (dashboard.Inspection, error)
}

// ReportLoadedMsg is sent when a CI report has been built.
// It is exported so that tests can inject it directly into AppModel.Update.
type ReportLoadedMsg struct {
	Report dashboard.CIReport
	Err    error
}

// InspectionLoadedMsg is sent when a workflow inspection has been built.
// It is exported so that tests can inject it directly into AppModel.Update.
type InspectionLoadedMsg struct {
	Inspection dashboard.Inspection
	Err        error
}

// tickMsg is sent by the auto-refresh ticker.
type tickMsg struct{}

// viewState indicates the current navigation level.
type viewState int

const (
	viewWorkflows viewState = iota
	viewFailures
	viewSnippets
	viewText
)

// AppModel is the root Bubbletea model for gitpulse.
type AppModel struct {
	repo   domain.Repository
	source Source
	req    dashboard.Request
	// Navigation
	view viewState
	// Workflow level
	list   WorkflowListModel
	report dashboard.CIReport
	// Failure level
	failures   FailureListModel
	inspection dashboard.Inspection
	inspecting bool
	// Snippet level
	snippets    SnippetListModel
	selectedJob FailureRow
	// General state
	loading bool
	err     error
	width   int
	height  int
	// Text viewer state
	textTitle  string
	textBody   string
	textOffset int
	textReturn viewState
}

// NewAppModel creates the root application model.
func NewAppModel(repo domain.Repository, source Source, req dashboard.Request) AppModel {
	return AppModel{
		repo:     repo,
		source:   source,
		req:      req,
		list:     NewWorkflowListModel(nil),
		failures: NewFailureListModel(nil),
		loading:  true,
	}
}

// Init triggers the initial report load.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadReport(), tickEvery(refreshInterval))
}

func (m AppModel) loadReport() tea.Cmd {
	return func() tea.Msg {
		r, err := m.source.Build(context.Background(), m.req)
		return ReportLoadedMsg{Report: r, Err: err}
	}
}

func (m AppModel) loadInspection(name string) tea.Cmd {
	return func() tea.Msg {
		ins, err := m.source.Inspect(context.Background(), m.req, name)
		return InspectionLoadedMsg{Inspection: ins, Err: err}
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ReportLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.report = msg.Report
		rows := RowsFromReport(msg.Report)
		if len(m.list.Rows()) == 0 {
			m.list = NewWorkflowListModel(rows)
		} else {
			m.list = m.list.UpdateRows(rows)
		}

	case InspectionLoadedMsg:
		m.inspecting = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.inspection = msg.Inspection
		m.failures = NewFailureListModel(RowsFromInspection(msg.Inspection))
		m.view = viewFailures

	case tickMsg:
		interval := refreshInterval
		if anyInFlight(m.list.Rows()) {
			interval = activeRefreshInterval
		}
		return m, tea.Batch(m.loadReport(), tickEvery(interval))

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "ctrl+r":
			m.loading = true
			m.err = nil
			return m, m.loadReport()
		}
		if m.inspecting {
			return m, nil
		}
		switch m.view {
		case viewWorkflows:
			return m.updateWorkflows(msg)
		case viewFailures:
			return m.updateFailures(msg)
		case viewSnippets:
			return m.updateSnippets(msg)
		case viewText:
			return m.updateText(msg)
		}
	}
	return m, nil
}

func (m AppModel) updateWorkflows(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.list = m.list.MoveDown()
	case "up":
		m.list = m.list.MoveUp()
	case "enter":
		if len(m.list.Rows()) > 0 {
			m.inspecting = true
			m.err = nil
			return m, m.loadInspection(m.list.Selected().Stats.Name)
		}
	case "s":
		return m.openText("summary", render(func(t *report.Text) error { return t.CI(m.report) }), viewWorkflows), nil
	}
	return m, nil
}

func (m AppModel) updateFailures(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.failures = m.failures.MoveDown()
	case "up":
		m.failures = m.failures.MoveUp()
	case "enter":
		rows := m.failures.Rows()
		if len(rows) > 0 && rows[m.failures.Cursor()].Job.LogFound {
			m.selectedJob = rows[m.failures.Cursor()]
			m.snippets = NewSnippetListModel(m.selectedJob.Job.Snippets)
			m.view = viewSnippets
		}
	case "i":
		return m.openText(m.inspection.Query, render(func(t *report.Text) error { return t.Inspection(m.inspection) }), viewFailures), nil
	case "esc":
		m.view = viewWorkflows
	}
	return m, nil
}

func (m AppModel) updateSnippets(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.snippets = m.snippets.MoveDown()
	case "up":
		m.snippets = m.snippets.MoveUp()
	case "enter", "l":
		snips := m.snippets.Snippets()
		if len(snips) > 0 {
			return m.openText(m.selectedJob.Job.Name, snips[m.snippets.Cursor()].Text(), viewSnippets), nil
		}
	case "esc":
		m.view = viewFailures
	}
	return m, nil
}

func (m AppModel) updateText(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	maxOffset := strings.Count(m.textBody, "\n")
	switch msg.String() {
	case "down":
		if m.textOffset < maxOffset {
			m.textOffset++
		}
	case "up":
		if m.textOffset > 0 {
			m.textOffset--
		}
	case "pgup":
		m.textOffset -= m.visibleLines()
		if m.textOffset < 0 {
			m.textOffset = 0
		}
	case "pgdown":
		m.textOffset += m.visibleLines()
		if m.textOffset > maxOffset {
			m.textOffset = maxOffset
		}
	case "g":
		m.textOffset = 0
	case "G":
		m.textOffset = maxOffset
	case "esc":
		m.view = m.textReturn
		m.textBody = ""
		m.textOffset = 0
	}
	return m, nil
}

func (m AppModel) openText(title, body string, from viewState) AppModel {
	m.textTitle = title
	m.textBody = body
	m.textOffset = 0
	m.textReturn = from
	m.view = viewText
	return m
}

// render captures text output. The buffer is not a terminal, so no colour
// codes are emitted.
func render(fn func(t *report.Text) error) string {
	var buf bytes.Buffer
	if err := fn(report.NewText(&buf)); err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// View renders the full TUI.
func (m AppModel) View() string {
	if m.inspecting {
		return fmt.Sprintf("Inspecting %s...\n", m.list.Selected().Stats.Name)
	}
	if m.view == viewText {
		return m.renderTextView()
	}
	if m.loading {
		return "Loading CI report...\n"
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress 'ctrl+r' to retry or 'q' to quit.\n", m.err)
	}

	header := fmt.Sprintf(" gitpulse | %s | %s\n", m.repo.FullName(), m.report.Window.Label)
	separator := "────────────────────────────────────────────────────────────\n"

	switch m.view {
	case viewWorkflows:
		return m.renderWorkflowsView(header, separator)
	case viewFailures:
		return m.renderFailuresView(header, separator)
	case viewSnippets:
		return m.renderSnippetsView(header, separator)
	default:
		return header
	}
}

func (m AppModel) renderWorkflowsView(header, separator string) string {
	title := " Workflows\n"
	listView := m.list.View()
	s := m.report.Summary
	statusBar := fmt.Sprintf(" Overall %.1f%% (%s) over %d runs   %d warning(s)\n",
		s.Overall.SuccessRate, s.Health, s.Overall.Total, len(m.report.Warnings))
	if s.Overall.Total == 0 {
		statusBar = fmt.Sprintf(" Overall: %s   %d warning(s)\n", stats.HealthNoData, len(m.report.Warnings))
	}
	footer := " ↑/↓: navigate   enter: inspect   s: summary   ctrl+r: refresh   q: quit\n"
	return header + separator + title + listView + "\n" + separator + statusBar + separator + footer
}

func (m AppModel) renderFailuresView(header, separator string) string {
	ins := m.inspection
	var title string
	if ins.Found {
		title = fmt.Sprintf(" Recent failures of %s (%s): %.1f%% over %d runs\n",
			ins.Query, ins.Source, ins.Stats.SuccessRate, ins.Stats.Total)
	} else {
		title = fmt.Sprintf(" No workflow matching %q\n", ins.Query)
	}
	footer := " ↑/↓: navigate   enter: snippets   i: full inspection   esc: back   q: quit\n"
	return header + separator + title + m.failures.View() + "\n" + separator + footer
}

func (m AppModel) renderSnippetsView(header, separator string) string {
	title := fmt.Sprintf(" Error snippets for job: %s\n", m.selectedJob.Job.Name)
	footer := " ↑/↓: navigate   enter: open   esc: back   q: quit\n"
	return header + separator + title + m.snippets.View() + "\n" + separator + footer
}

// Run starts the Bubbletea program. Exits on error.
func Run(repo domain.Repository, source Source, req dashboard.Request) {
	p := tea.NewProgram(NewAppModel(repo, source, req), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "gitpulse error: %v\n", err)
		os.Exit(1)
	}
}

// visibleLines returns the number of text lines visible in the current terminal height.
func (m AppModel) visibleLines() int {
	lines := m.height - 4 // account for header, separator, and footer
	if lines < 10 {
		return 10
	}
	return lines
}

// renderTextView renders the fullscreen text viewer.
func (m AppModel) renderTextView() string {
	header := fmt.Sprintf(" gitpulse  %s  [%s]\n", m.repo.FullName(), m.textTitle)
	separator := "────────────────────────────────────────────────────────────\n"
	footer := " ↑/↓: scroll   PgUp/PgDn: page   g/G: top/bottom   esc: back\n"

	lines := strings.Split(m.textBody, "\n")
	start := m.textOffset
	if start >= len(lines) {
		start = len(lines) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + m.visibleLines()
	if end > len(lines) {
		end = len(lines)
	}

	body := strings.Join(lines[start:end], "\n")
	return header + separator + body + "\n" + separator + footer
}
