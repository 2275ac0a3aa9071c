package formatter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yildizm/feedcluster/internal/sweep"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

func (f *jsonFormatter) Format(report *sweep.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("no sweep report to format")
	}
	output := &JSONOutput{
		InputFile: report.InputFile,
		Records:   report.Records,
		Dims:      report.Dims,
		Backend:   report.Backend,
		StartedAt: report.StartedAt,
		Duration:  report.Duration.String(),
		Results:   make([]*JSONResult, 0, len(report.Results)),
	}
	for _, r := range report.Results {
		output.Results = append(output.Results, &JSONResult{
			Algorithm:              string(r.Algorithm),
			Params:                 r.Params,
			NClusters:              r.NClusters,
			NOutliers:              r.NOutliers,
			NCustomersUnion:        r.NIdentitiesUnion,
			AvgCustomersPerCluster: r.AvgIdentitiesPerCluster,
			DurationMs:             r.Duration.Milliseconds(),
		})
	}

	return json.MarshalIndent(output, "", "  ")
}

// JSONOutput represents the JSON report structure
type JSONOutput struct {
	InputFile string        `json:"input_file,omitempty"`
	Records   int           `json:"records"`
	Dims      int           `json:"dims"`
	Backend   string        `json:"backend"`
	StartedAt time.Time     `json:"started_at"`
	Duration  string        `json:"duration"`
	Results   []*JSONResult `json:"results"`
}

// JSONResult represents one sweep row
type JSONResult struct {
	Algorithm              string  `json:"algorithm"`
	Params                 string  `json:"params"`
	NClusters              int     `json:"n_clusters"`
	NOutliers              int     `json:"n_outliers"`
	NCustomersUnion        int     `json:"n_customers_union"`
	AvgCustomersPerCluster float64 `json:"avg_customers_per_cluster"`
	DurationMs             int64   `json:"duration_ms"`
}
