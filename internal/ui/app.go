package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/feedcluster/internal/emoji"
	"github.com/yildizm/feedcluster/internal/sweep"
)

// ReportMsg replaces the report shown by the viewer
type ReportMsg struct {
	Report *sweep.Report
}

// updatesClosedMsg is sent once the live report channel is drained
type updatesClosedMsg struct{}

// SweepModel lists the rows of a sweep report in grid order and shows the
// summary of the selected row
type SweepModel struct {
	report   *sweep.Report
	updates  <-chan *sweep.Report
	styles   *Styles
	selected int
	width    int
	height   int
	ready    bool
	quitting bool
	help     bool
	reruns   int
}

// NewSweepModel creates a viewer for report
func NewSweepModel(report *sweep.Report) *SweepModel {
	return &SweepModel{
		report: report,
		styles: GetStyles(),
	}
}

// Init initializes the model
func (m *SweepModel) Init() tea.Cmd {
	return m.waitForReport()
}

// Update handles messages
func (m *SweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case ReportMsg:
		return m.handleReport(msg)
	case updatesClosedMsg:
		m.updates = nil
	}
	return m, nil
}

// Selected returns the index of the highlighted row
func (m *SweepModel) Selected() int {
	return m.selected
}

// handleWindowResize handles window resize events
func (m *SweepModel) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	return m, nil
}

// handleKeyPress handles keyboard input
func (m *SweepModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < m.rowCount()-1 {
			m.selected++
		}
	case "home", "g":
		m.selected = 0
	case "end", "G":
		if n := m.rowCount(); n > 0 {
			m.selected = n - 1
		}
	case "h", "?":
		m.help = !m.help
	}
	return m, nil
}

// handleReport swaps in a new report, keeping the selection in range
func (m *SweepModel) handleReport(msg ReportMsg) (tea.Model, tea.Cmd) {
	if msg.Report != nil {
		m.report = msg.Report
		m.reruns++
		if n := m.rowCount(); m.selected >= n {
			m.selected = max(0, n-1)
		}
	}
	return m, m.waitForReport()
}

// waitForReport blocks on the live channel, if any
func (m *SweepModel) waitForReport() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		report, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return ReportMsg{Report: report}
	}
}

func (m *SweepModel) rowCount() int {
	if m.report == nil {
		return 0
	}
	return len(m.report.Results)
}

// View renders the model
func (m *SweepModel) View() string {
	if m.quitting {
		return emoji.GetEmoji("door") + " Bye!\n"
	}
	if !m.ready {
		return "Initializing..."
	}
	if m.report == nil {
		return "No sweep report available\n\nPress 'q' to quit"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader() + "\n\n")
	b.WriteString(m.renderRows() + "\n")
	b.WriteString(m.renderDetail() + "\n")
	if m.help {
		b.WriteString(m.renderHelp() + "\n")
	}
	b.WriteString(m.styles.Muted.Render("↑/↓ select • ? help • q quit"))
	return b.String()
}

func (m *SweepModel) renderHeader() string {
	title := fmt.Sprintf("%s Clustering sweep", emoji.GetEmoji("sweep"))
	info := fmt.Sprintf("%d records × %d dims • backend %s • %d runs",
		m.report.Records, m.report.Dims, m.report.Backend, len(m.report.Results))
	if m.report.InputFile != "" {
		info = m.report.InputFile + " • " + info
	}
	if m.reruns > 0 {
		info += fmt.Sprintf(" • refreshed %d×", m.reruns)
	}
	return m.styles.Title.Render(title) + "\n" + m.styles.Muted.Render(" "+info)
}

// renderRows lists every run; only a window around the selection is shown
// on short terminals
func (m *SweepModel) renderRows() string {
	rows := m.report.Results
	if len(rows) == 0 {
		return m.styles.Warning.Render("  No runs in this sweep")
	}

	start, end := 0, len(rows)
	if visible := m.height - 14; visible > 0 && visible < len(rows) {
		start = max(0, m.selected-visible/2)
		end = min(len(rows), start+visible)
		start = max(0, end-visible)
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render(fmt.Sprintf("  %-3s %-14s %-40s %9s %9s", "#", "algorithm", "params", "clusters", "outliers")) + "\n")
	for i := start; i < end; i++ {
		r := rows[i]
		line := fmt.Sprintf("%-3d %-14s %-40s %9d %9d", i+1, r.Algorithm.DisplayName(), truncate(r.Params, 40), r.NClusters, r.NOutliers)
		if i == m.selected {
			b.WriteString(m.styles.ListSelected.Render(line))
		} else {
			b.WriteString(m.styles.ListItem.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderDetail shows the summary of the selected row
func (m *SweepModel) renderDetail() string {
	if m.rowCount() == 0 {
		return ""
	}
	r := m.report.Results[m.selected]

	outliers := m.styles.Success.Render(fmt.Sprintf("%d", r.NOutliers))
	if m.report.Records > 0 && r.NOutliers*2 > m.report.Records {
		outliers = m.styles.Warning.Render(fmt.Sprintf("%d", r.NOutliers))
	}

	lines := []string{
		m.styles.Header.Render(fmt.Sprintf("%s %s", emoji.GetEmoji("target"), r.Algorithm.DisplayName())),
		fmt.Sprintf("params:                     %s", r.Params),
		fmt.Sprintf("%s clusters:                %d", emoji.GetEmoji("cluster"), r.NClusters),
		fmt.Sprintf("%s outliers:                %s", emoji.GetEmoji("outlier"), outliers),
		fmt.Sprintf("%s customers (union):       %d", emoji.GetEmoji("customers"), r.NIdentitiesUnion),
		fmt.Sprintf("avg customers per cluster:  %.2f", r.AvgIdentitiesPerCluster),
		fmt.Sprintf("duration:                   %s", r.Duration.String()),
	}

	box := m.styles.Box
	if m.width > 4 {
		box = box.Width(min(m.width-4, 80))
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *SweepModel) renderHelp() string {
	return m.styles.Muted.Render(strings.Join([]string{
		"  ↑/k, ↓/j   move selection",
		"  g/G        first / last run",
		"  ?          toggle help",
		"  q, esc     quit",
	}, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run shows report until the user quits
func Run(report *sweep.Report) error {
	model := NewSweepModel(report)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RunLive shows report and replaces it with every report received on
// updates
func RunLive(report *sweep.Report, updates <-chan *sweep.Report) error {
	model := NewSweepModel(report)
	model.updates = updates
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
