package formatter

import (
	"strconv"
	"strings"

	"github.com/yildizm/feedcluster/internal/history"
)

var runColumns = []string{"id", "started", "input", "records", "dims", "backend", "runs", "duration"}

// RunList renders recorded sweeps, newest first as stored
func RunList(runs []history.Run, color bool) string {
	if len(runs) == 0 {
		return "No recorded sweeps.\n"
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			formatTimestamp(r.StartedAt),
			r.InputFile,
			formatNumber(r.Records),
			formatNumber(r.Dims),
			r.Backend,
			strconv.Itoa(r.Results),
			formatDuration(r.Duration),
		})
	}

	var b strings.Builder
	b.WriteString(borderlessTable(runColumns, rows, color))
	b.WriteString("\n")
	return b.String()
}
