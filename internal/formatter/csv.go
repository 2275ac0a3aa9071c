package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/yildizm/feedcluster/internal/sweep"
)

// csvFormatter formats sweep rows as CSV
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

func (f *csvFormatter) Format(report *sweep.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("no sweep report to format")
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	headers := append(append([]string{}, columns...), "duration_ms")
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range report.Results {
		row := append(cells(r), fmt.Sprintf("%d", r.Duration.Milliseconds()))
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return b.Bytes(), nil
}
