package notifier

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// ConsoleNotifier prints reports to the console (useful for testing and the
// run-once mode).
type ConsoleNotifier struct {
	costs config.CostsConfig
}

// NewConsoleNotifier creates a new console notifier.
func NewConsoleNotifier(costs config.CostsConfig) *ConsoleNotifier {
	return &ConsoleNotifier{costs: costs}
}

// Name returns the notifier name.
func (c *ConsoleNotifier) Name() string {
	return "console"
}

// Send prints the report to the console.
func (c *ConsoleNotifier) Send(ctx context.Context, report *model.Report) error {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("═══════════════════════════════════════════════════════════════\n")
	sb.WriteString("                 WAREHOUSE SENTINEL REPORT                     \n")
	sb.WriteString("═══════════════════════════════════════════════════════════════\n")
	sb.WriteString(fmt.Sprintf("Report ID:    %s\n", report.ReqID))
	sb.WriteString(fmt.Sprintf("Timestamp:    %s\n", report.Timestamp.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Health Score: %d/100 (%s)\n", report.Summary.HealthScore, report.Summary.HealthStatus))
	sb.WriteString(fmt.Sprintf("Window:       %s ~ %s\n",
		report.Window.Start.Format("2006-01-02"),
		report.Window.End.Format("2006-01-02")))
	sb.WriteString("───────────────────────────────────────────────────────────────\n")

	sb.WriteString("\n📊 SUMMARY\n")
	sb.WriteString(fmt.Sprintf("  • Days Analyzed:     %d\n", report.Summary.DaysAnalyzed))
	sb.WriteString(fmt.Sprintf("  • Queries Analyzed:  %d\n", report.Summary.QueriesAnalyzed))
	sb.WriteString(fmt.Sprintf("  • Cost Anomalies:    %d critical, %d warning\n",
		report.Summary.CriticalAnomalies, report.Summary.WarningAnomalies))
	sb.WriteString(fmt.Sprintf("  • Sizing Actions:    %d\n", report.Summary.ActionableRecommendations))
	sb.WriteString(fmt.Sprintf("  • Issue Categories:  %d\n", report.Summary.IssueCategories))
	sb.WriteString(fmt.Sprintf("  • Window Spend:      %s (%.1f credits)\n",
		currency(report.WarehouseCosts.GrandTotal, c.costs), report.WarehouseCosts.GrandTotal))

	if projected, change, ok := forecastDelta(report); ok {
		sb.WriteString(fmt.Sprintf("  • Projected Spend:   %s over next %d days (%+.1f%%)\n",
			currency(projected, c.costs), len(report.Forecast), change))
	}

	if alerts := alertedAnomalies(report.Anomalies); len(alerts) > 0 {
		sb.WriteString("\n🚨 COST ANOMALIES\n")
		for i, a := range alerts {
			if i >= 10 {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(alerts)-10))
				break
			}
			sb.WriteString(fmt.Sprintf("  %s %s: %.1f credits (baseline %.1f, z=%.2f) [%s]\n",
				severityEmoji(a.Severity), a.Date.Format("2006-01-02"),
				a.Observed, a.BaselineMean, a.ZScore, a.Severity))
		}
	}

	if recs := actionable(report.Recommendations); len(recs) > 0 {
		sb.WriteString("\n🧭 SIZING RECOMMENDATIONS\n")
		for i, rec := range recs {
			sb.WriteString(fmt.Sprintf("  %d. %s → %s\n", i+1, rec.ResourceID, rec.Action))
			sb.WriteString(fmt.Sprintf("      %s\n", rec.Reason))
		}
	}

	if len(report.Issues) > 0 {
		sb.WriteString("\n🔍 QUERY ISSUES\n")
		for _, issue := range report.Issues {
			sb.WriteString(fmt.Sprintf("  • %-18s ×%-5d avg %.1fs, %s scanned\n",
				issue.Tag, issue.Count, issue.AvgElapsedSeconds, formatBytes(float64(issue.TotalBytesScanned))))
		}
	}

	if len(report.WarehouseCosts.Rows) > 0 {
		sb.WriteString("\n💰 COST ATTRIBUTION (by warehouse)\n")
		for i, row := range report.WarehouseCosts.Rows {
			if i >= 5 {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.WarehouseCosts.Rows)-5))
				break
			}
			sb.WriteString(fmt.Sprintf("  %d. %-24s %s (%.1f%%)\n",
				i+1, row.Key, currency(row.Total, c.costs), row.PercentOfTotal))
		}
		if report.WarehouseCosts.ConcentrationCount > 0 {
			sb.WriteString(fmt.Sprintf("  Top %d warehouses account for %.1f%% of spend\n",
				report.WarehouseCosts.ConcentrationCount, report.WarehouseCosts.ConcentrationPercent))
		}
	}

	if len(report.StorageByDB.Rows) > 0 {
		sb.WriteString("\n💾 STORAGE (by database)\n")
		for i, row := range report.StorageByDB.Rows {
			if i >= 5 {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.StorageByDB.Rows)-5))
				break
			}
			sb.WriteString(fmt.Sprintf("  %d. %-24s %s (~%s/mo)\n",
				i+1, row.Key, formatBytes(row.Total), storageCurrency(row.Total, c.costs)))
		}
	}

	sb.WriteString("\n═══════════════════════════════════════════════════════════════\n")

	log.Print(sb.String())
	return nil
}

func alertedAnomalies(points []model.AnomalyPoint) []model.AnomalyPoint {
	var out []model.AnomalyPoint
	for _, p := range points {
		if p.Severity != model.SeverityNormal {
			out = append(out, p)
		}
	}
	return out
}
