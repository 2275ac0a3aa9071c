package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/feedcluster/internal/sweep"
)

// Formatter defines the interface for sweep report formatting
type Formatter interface {
	Format(report *sweep.Report) ([]byte, error)
}

// Output formats accepted by New
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Formats lists the supported output formats
var Formats = []string{FormatText, FormatJSON, FormatMarkdown, FormatCSV}

// New returns the formatter for the named format
func New(format string, color bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatText, "terminal":
		return NewTerminal(color), nil
	case FormatJSON:
		return NewJSON(), nil
	case FormatMarkdown, "md":
		return NewMarkdown(), nil
	case FormatCSV:
		return NewCSV(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// columns shared by the tabular formats
var columns = []string{
	"algorithm",
	"params",
	"n_clusters",
	"n_outliers",
	"n_customers_union",
	"avg_customers_per_cluster",
}

// cells renders one result row in column order
func cells(r sweep.RunResult) []string {
	return []string{
		r.Algorithm.DisplayName(),
		r.Params,
		fmt.Sprintf("%d", r.NClusters),
		fmt.Sprintf("%d", r.NOutliers),
		fmt.Sprintf("%d", r.NIdentitiesUnion),
		fmt.Sprintf("%.2f", r.AvgIdentitiesPerCluster),
	}
}
