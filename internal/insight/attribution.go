package insight

import (
	"sort"

	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// DefaultConcentrationPercent is the cumulative-share target used for
// "top-N groups account for X% of cost" statements.
const DefaultConcentrationPercent = 80.0

// AttributeCosts groups cost facts by an arbitrary key and ranks the groups
// by total cost descending (ties broken by key for determinism). Each row
// carries its share of the grand total, and the report records the smallest
// leading prefix whose cumulative share first reaches or exceeds targetPct
// (inclusive: the group that tips the sum over the line is counted in).
//
// A non-positive grand total yields rows with zero percentages and no
// concentration point; shares of nothing are not meaningful.
func AttributeCosts(facts []model.MetricFact, dimension string, keyFn func(model.MetricFact) string, targetPct float64) model.AttributionReport {
	report := model.AttributionReport{
		Dimension:     dimension,
		TargetPercent: targetPct,
	}
	if len(facts) == 0 {
		return report
	}

	totals := make(map[string]float64)
	for _, f := range facts {
		totals[keyFn(f)] += f.Value
	}

	rows := make([]model.AttributionRow, 0, len(totals))
	var grand float64
	for key, total := range totals {
		rows = append(rows, model.AttributionRow{Key: key, Total: total})
		grand += total
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Key < rows[j].Key
	})

	report.GrandTotal = grand
	if grand <= 0 {
		report.Rows = rows
		return report
	}

	var cumulative float64
	for i := range rows {
		rows[i].PercentOfTotal = rows[i].Total / grand * 100
		if report.ConcentrationCount == 0 {
			cumulative += rows[i].PercentOfTotal
			if cumulative >= targetPct {
				report.ConcentrationCount = i + 1
				report.ConcentrationPercent = cumulative
			}
		}
	}
	report.Rows = rows

	return report
}
