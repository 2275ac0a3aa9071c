package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/feedcluster/internal/export"
)

// ClusterLines renders the per-cluster console report, one line per label
func ClusterLines(lines []export.ClusterLine) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "Cluster %d: %d items, %d unique customers\n", l.ID, l.Count, l.UniqueIdentities)
	}
	return b.String()
}

// WrittenMessage is printed after the annotated records are saved
func WrittenMessage(n int, path string) string {
	return fmt.Sprintf("Wrote %d records to '%s'. Embeddings removed.", n, path)
}

// Themes renders labeled groups as a go-termfmt tree. Groups without a theme
// are skipped.
func Themes(groups []export.Group, color bool) string {
	opts := termfmt.DefaultOptions()
	opts.Color = color

	labeled := make([]export.Group, 0, len(groups))
	for _, g := range groups {
		if g.Theme != "" {
			labeled = append(labeled, g)
		}
	}
	if len(labeled) == 0 {
		return ""
	}

	items := make([]termfmt.TreeItem, 0, len(labeled))
	for i, g := range labeled {
		var children []termfmt.TreeItem
		children = append(children, termfmt.TreeItem{
			Label: "Size",
			Value: fmt.Sprintf("%d feedbacks, %d customers", g.SimilarFeedbacks, g.DistinctCustomers),
		})
		if g.Summary != "" {
			children = append(children, termfmt.TreeItem{Label: "Summary", Value: g.Summary})
		}
		children[len(children)-1].Last = true

		items = append(items, termfmt.TreeItem{
			Label:    fmt.Sprintf("Cluster %d", g.ClusterID),
			Value:    g.Theme,
			Children: children,
			Last:     i == len(labeled)-1,
		})
	}

	symbol := termfmt.GetEmoji("insights", opts)
	return symbol + " Themes\n" + termfmt.TreeViewWithOptions(items, opts) + "\n"
}
