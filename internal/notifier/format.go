package notifier

import (
	"fmt"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// currency renders a credit amount as dollars at the configured rate.
func currency(credits float64, costs config.CostsConfig) string {
	return fmt.Sprintf("$%.2f", credits*costs.CreditCost)
}

// storageCurrency renders a byte footprint as monthly dollars at the
// configured per-terabyte rate.
func storageCurrency(bytes float64, costs config.CostsConfig) string {
	const tb = 1 << 40
	return fmt.Sprintf("$%.2f", bytes/tb*costs.StoragePerTB)
}

func formatBytes(bytes float64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
		tib = 1 << 40
	)
	switch {
	case bytes >= tib:
		return fmt.Sprintf("%.2f TiB", bytes/tib)
	case bytes >= gib:
		return fmt.Sprintf("%.2f GiB", bytes/gib)
	case bytes >= mib:
		return fmt.Sprintf("%.2f MiB", bytes/mib)
	case bytes >= kib:
		return fmt.Sprintf("%.2f KiB", bytes/kib)
	default:
		return fmt.Sprintf("%.0f B", bytes)
	}
}

func statusEmoji(status string) string {
	switch status {
	case "healthy":
		return "✅"
	case "warning":
		return "⚠️"
	case "degraded":
		return "🟠"
	default:
		return "🔴"
	}
}

func severityEmoji(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityWarning:
		return "🟡"
	default:
		return "🔵"
	}
}

// forecastDelta compares the projected spend over the forecast horizon with
// the observed spend in the analyzed window. The comparison is only
// meaningful when both totals are present and the observed total is nonzero.
func forecastDelta(report *model.Report) (projected, changePct float64, ok bool) {
	if len(report.Forecast) == 0 {
		return 0, 0, false
	}
	for _, p := range report.Forecast {
		projected += p.Predicted
	}
	observed := report.WarehouseCosts.GrandTotal
	if observed <= 0 {
		return projected, 0, false
	}
	return projected, (projected - observed) / observed * 100, true
}

// actionable filters out OPTIMAL recommendations.
func actionable(recs []model.Recommendation) []model.Recommendation {
	var out []model.Recommendation
	for _, rec := range recs {
		if rec.Action != model.ActionOptimal {
			out = append(out, rec)
		}
	}
	return out
}
