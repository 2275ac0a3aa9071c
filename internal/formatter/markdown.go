package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/feedcluster/internal/sweep"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(report *sweep.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("no sweep report to format")
	}

	var b strings.Builder

	b.WriteString("# Clustering Summary\n\n")
	if ts := formatTimestamp(report.StartedAt); ts != "" {
		fmt.Fprintf(&b, "Generated: %s\n\n", ts)
	}

	f.writeRunTable(&b, report)
	f.writeResultTable(&b, report)

	return []byte(b.String()), nil
}

// writeRunTable writes the sweep metadata
func (f *markdownFormatter) writeRunTable(b *strings.Builder, report *sweep.Report) {
	b.WriteString("## Run\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	if report.InputFile != "" {
		fmt.Fprintf(b, "| Input | `%s` |\n", escapeMarkdown(report.InputFile))
	}
	fmt.Fprintf(b, "| Records | %s |\n", formatNumber(report.Records))
	fmt.Fprintf(b, "| Dimensions | %s |\n", formatNumber(report.Dims))
	fmt.Fprintf(b, "| Backend | %s |\n", escapeMarkdown(report.Backend))
	fmt.Fprintf(b, "| Duration | %s |\n\n", formatDuration(report.Duration))
}

// writeResultTable writes one table row per sweep entry
func (f *markdownFormatter) writeResultTable(b *strings.Builder, report *sweep.Report) {
	b.WriteString("## Results\n\n")
	if len(report.Results) == 0 {
		b.WriteString("_No runs._\n")
		return
	}

	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(columns)) + "\n")
	for _, r := range report.Results {
		row := cells(r)
		for i := range row {
			row[i] = escapeMarkdown(row[i])
		}
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
}

// escapeMarkdown keeps cell content from breaking the table
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
