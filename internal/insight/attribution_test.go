package insight

import (
	"math"
	"testing"
	"time"

	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

func warehouseFacts(totals map[string]float64) []model.MetricFact {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var facts []model.MetricFact
	for id, v := range totals {
		// Split each total across two days to exercise grouping.
		facts = append(facts,
			model.MetricFact{Timestamp: day, ResourceID: id, Value: v / 2},
			model.MetricFact{Timestamp: day.AddDate(0, 0, 1), ResourceID: id, Value: v / 2},
		)
	}
	return facts
}

func byResource(f model.MetricFact) string { return f.ResourceID }

func TestAttributeCosts(t *testing.T) {
	facts := warehouseFacts(map[string]float64{
		"ETL_WH":       50,
		"REPORTING_WH": 30,
		"DEV_WH":       15,
		"ADHOC_WH":     5,
	})

	report := AttributeCosts(facts, "warehouse", byResource, DefaultConcentrationPercent)

	if report.GrandTotal != 100 {
		t.Errorf("grand total = %v, want 100", report.GrandTotal)
	}

	wantOrder := []string{"ETL_WH", "REPORTING_WH", "DEV_WH", "ADHOC_WH"}
	wantPct := []float64{50, 30, 15, 5}
	if len(report.Rows) != len(wantOrder) {
		t.Fatalf("got %d rows, want %d", len(report.Rows), len(wantOrder))
	}
	for i, row := range report.Rows {
		if row.Key != wantOrder[i] {
			t.Errorf("row %d: key = %s, want %s", i, row.Key, wantOrder[i])
		}
		if math.Abs(row.PercentOfTotal-wantPct[i]) > 1e-9 {
			t.Errorf("row %d: percent = %v, want %v", i, row.PercentOfTotal, wantPct[i])
		}
	}

	// 50 + 30 reaches exactly 80%: the boundary group is counted in.
	if report.ConcentrationCount != 2 {
		t.Errorf("concentration count = %d, want 2", report.ConcentrationCount)
	}
	if math.Abs(report.ConcentrationPercent-80) > 1e-9 {
		t.Errorf("concentration percent = %v, want 80", report.ConcentrationPercent)
	}
}

func TestAttributeCostsTieBreaksByKey(t *testing.T) {
	facts := warehouseFacts(map[string]float64{
		"B_WH": 10,
		"A_WH": 10,
		"C_WH": 10,
	})

	report := AttributeCosts(facts, "warehouse", byResource, DefaultConcentrationPercent)
	want := []string{"A_WH", "B_WH", "C_WH"}
	for i, row := range report.Rows {
		if row.Key != want[i] {
			t.Errorf("row %d: key = %s, want %s", i, row.Key, want[i])
		}
	}
}

func TestAttributeCostsZeroGrandTotal(t *testing.T) {
	facts := warehouseFacts(map[string]float64{
		"IDLE_WH":  0,
		"OTHER_WH": 0,
	})

	report := AttributeCosts(facts, "warehouse", byResource, DefaultConcentrationPercent)
	if report.GrandTotal != 0 {
		t.Errorf("grand total = %v, want 0", report.GrandTotal)
	}
	if report.ConcentrationCount != 0 {
		t.Errorf("concentration count = %d, want 0", report.ConcentrationCount)
	}
	for i, row := range report.Rows {
		if row.PercentOfTotal != 0 {
			t.Errorf("row %d: percent = %v, want 0", i, row.PercentOfTotal)
		}
	}
}

func TestAttributeCostsEmpty(t *testing.T) {
	report := AttributeCosts(nil, "user", func(f model.MetricFact) string { return f.Dimension }, 80)
	if len(report.Rows) != 0 || report.GrandTotal != 0 {
		t.Errorf("empty input produced rows: %+v", report)
	}
	if report.Dimension != "user" {
		t.Errorf("dimension = %s, want user", report.Dimension)
	}
}
