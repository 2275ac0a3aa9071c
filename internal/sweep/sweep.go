// Package sweep evaluates a grid of clustering configurations on one
// embedding matrix and collects one summary row per configuration.
package sweep

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/logger"
	"github.com/yildizm/feedcluster/internal/matrix"
	"github.com/yildizm/feedcluster/internal/stats"
)

// RunResult is one row of a sweep report
type RunResult struct {
	Algorithm cluster.Algorithm `json:"algorithm"`
	Params    string            `json:"params"`
	stats.Summary
	Duration time.Duration `json:"duration_ns"`
}

// Report holds the rows of a sweep in grid order
type Report struct {
	InputFile string        `json:"input_file,omitempty"`
	Records   int           `json:"records"`
	Dims      int           `json:"dims"`
	Backend   string        `json:"backend"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Results   []RunResult   `json:"results"`
}

// Runner executes sweeps
type Runner struct {
	Backend cluster.Backend
	// Workers above 1 run entries concurrently. Row order does not change.
	Workers int
	Logger  *logger.Logger
}

// Run validates the whole grid, then clusters m once per entry. Every run
// only reads m and writes its own row.
func (r *Runner) Run(ctx context.Context, m *matrix.Matrix, identities []string, grid Grid) (*Report, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if len(identities) != m.Rows() {
		return nil, fmt.Errorf("%d identities for %d records", len(identities), m.Rows())
	}

	report := &Report{
		Records:   m.Rows(),
		Dims:      m.Dims(),
		Backend:   r.Backend.Name(),
		StartedAt: time.Now(),
		Results:   make([]RunResult, len(grid)),
	}

	if r.Workers <= 1 {
		for i, entry := range grid {
			row, err := r.runOne(ctx, m, identities, i, entry)
			if err != nil {
				return nil, err
			}
			report.Results[i] = row
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.Workers)
		for i, entry := range grid {
			g.Go(func() error {
				row, err := r.runOne(gctx, m, identities, i, entry)
				if err != nil {
					return err
				}
				report.Results[i] = row
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, m *matrix.Matrix, identities []string, i int, entry Entry) (RunResult, error) {
	start := time.Now()
	p := entry.Params

	assignment, err := cluster.Fit(ctx, r.Backend, m, p)
	if err != nil {
		return RunResult{}, fmt.Errorf("sweep entry %d (%s %s): %w", i, p.Algorithm(), p.Describe(), err)
	}
	summary, err := stats.Summarize(assignment, identities)
	if err != nil {
		return RunResult{}, err
	}

	row := RunResult{
		Algorithm: p.Algorithm(),
		Params:    p.Describe(),
		Summary:   summary,
		Duration:  time.Since(start),
	}
	r.Logger.InfoWithFields("run finished", []logger.Field{
		logger.F("entry", i),
		logger.F("algorithm", p.Algorithm()),
		logger.F("params", row.Params),
		logger.F("clusters", summary.NClusters),
		logger.F("outliers", summary.NOutliers),
		logger.Duration(row.Duration),
	})
	return row, nil
}
