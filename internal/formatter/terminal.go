package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/feedcluster/internal/sweep"
)

// SummaryHeader opens every text sweep report
const SummaryHeader = "===== CLUSTERING SUMMARY ====="

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = true
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(report *sweep.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("no sweep report to format")
	}

	var b strings.Builder
	f.writeRunInfo(&b, report)

	b.WriteString(SummaryHeader + "\n")
	if len(report.Results) == 0 {
		b.WriteString("(no runs)\n")
		return []byte(b.String()), nil
	}
	b.WriteString(f.renderTable(report) + "\n")

	return []byte(b.String()), nil
}

// writeRunInfo writes the sweep metadata as a go-termfmt tree
func (f *terminalFormatter) writeRunInfo(b *strings.Builder, report *sweep.Report) {
	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " Sweep\n")

	items := make([]termfmt.TreeItem, 0, 6)
	if report.InputFile != "" {
		items = append(items, termfmt.TreeItem{Label: "Input", Value: report.InputFile})
	}
	items = append(items,
		termfmt.TreeItem{Label: "Records", Value: formatNumber(report.Records)},
		termfmt.TreeItem{Label: "Dimensions", Value: formatNumber(report.Dims)},
		termfmt.TreeItem{Label: "Backend", Value: report.Backend},
		termfmt.TreeItem{Label: "Runs", Value: formatNumber(len(report.Results))},
		termfmt.TreeItem{Label: "Duration", Value: formatDuration(report.Duration), Last: true},
	)

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}

// renderTable lays the result rows out in aligned columns
func (f *terminalFormatter) renderTable(report *sweep.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, r := range report.Results {
		rows = append(rows, cells(r))
	}
	return borderlessTable(columns, rows, f.opts.Color)
}

// borderlessTable renders a lipgloss table without borders, header in bold
func borderlessTable(headers []string, rows [][]string, color bool) string {
	cell := lipgloss.NewStyle().PaddingRight(2)
	header := cell
	if color {
		header = header.Bold(true).Foreground(lipgloss.Color("12"))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}
