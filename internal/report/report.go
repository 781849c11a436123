// Package report renders evaluation results for humans. The JSON
// shape consumed by external tooling comes straight from the resample
// and grid types; this package only owns the table views.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/kestrel/textreg/internal/grid"
	"github.com/kestrel/textreg/internal/resample"
)

// WriteReportTable renders a metric × fold table with an overall row.
func WriteReportTable(w io.Writer, r *resample.Report) {
	names := metricNames(r)

	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"fold"}, names...))

	for _, fr := range r.PerFold {
		row := []string{fmt.Sprintf("%d", fr.Fold)}
		for _, name := range names {
			row = append(row, fmt.Sprintf("%.4f", fr.Metrics[name]))
		}
		table.Append(row)
	}

	overall := []string{"overall"}
	for _, name := range names {
		for _, s := range r.Overall {
			if s.Metric == name {
				overall = append(overall, fmt.Sprintf("%.4f ± %.4f", s.Mean, s.StdErr))
			}
		}
	}
	table.Append(overall)
	table.Render()

	for _, ex := range r.Excluded {
		fmt.Fprintf(w, "excluded fold %d: %s\n", ex.Fold, ex.Reason)
	}
}

// WriteGridTable renders one row per configuration, sorted by the
// target metric's mean, with the selected configuration marked.
func WriteGridTable(w io.Writer, results []grid.Result, targetMetric, selected string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"config", "complexity", targetMetric, "std err", "folds", "selected"})

	rows := lo.Map(results, func(res grid.Result, _ int) []string {
		var mean, stderr float64
		var folds int
		for _, s := range res.Report.Overall {
			if s.Metric == targetMetric {
				mean, stderr, folds = s.Mean, s.StdErr, s.Folds
			}
		}
		mark := ""
		if res.Config.Name == selected {
			mark = "*"
		}
		return []string{
			res.Config.Name,
			fmt.Sprintf("%.0f", res.Config.Complexity),
			fmt.Sprintf("%.4f", mean),
			fmt.Sprintf("%.4f", stderr),
			fmt.Sprintf("%d", folds),
			mark,
		}
	})
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

func metricNames(r *resample.Report) []string {
	seen := make(map[string]struct{})
	for _, fr := range r.PerFold {
		for name := range fr.Metrics {
			seen[name] = struct{}{}
		}
	}
	for _, s := range r.Overall {
		seen[s.Metric] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
