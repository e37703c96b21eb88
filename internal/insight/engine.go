// Package insight implements the analysis core: anomaly detection, trend
// forecasting, sizing advice, issue classification, and cost attribution,
// plus the engine that orchestrates them into a single report.
package insight

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// Attribution dimensions the engine reports on.
const (
	DimWarehouse = "warehouse"
	DimService   = "service"
	DimUser      = "user"
	DimDatabase  = "database"
)

// TelemetrySource supplies the raw usage telemetry the engine analyzes.
// Implementations must set the honesty flags on ResourceUsageSummary
// (QueryCountKnown, HasLoadData) according to what they actually observed.
type TelemetrySource interface {
	// DailyCredits returns the account-wide daily credit series for the last
	// days days, gap-filled with zero-cost days so indices are dense.
	DailyCredits(ctx context.Context, days int) ([]model.CostPoint, error)

	// WarehouseSummaries returns one usage rollup per known warehouse.
	WarehouseSummaries(ctx context.Context, days int) ([]model.ResourceUsageSummary, error)

	// QueryRecords returns the individual query executions in the window.
	QueryRecords(ctx context.Context, days int) ([]model.QueryRecord, error)

	// CostFacts returns per-group cost rows for the given dimension
	// (DimWarehouse, DimService, DimUser).
	CostFacts(ctx context.Context, days int, dimension string) ([]model.MetricFact, error)

	// StorageFacts returns current storage bytes per database.
	StorageFacts(ctx context.Context) ([]model.MetricFact, error)
}

// Engine runs the full analysis pipeline and assembles the report. Telemetry
// fetches are memoized in an in-process cache so repeated runs within the TTL
// do not hammer the usage database.
type Engine struct {
	cfg    *config.Config
	source TelemetrySource
	cache  *Cache
	ttl    time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewEngine creates an engine. The cache TTL comes from the configuration;
// Validate has already checked it parses.
func NewEngine(cfg *config.Config, source TelemetrySource) *Engine {
	ttl, err := cfg.Cache.TTLParsed()
	if err != nil {
		ttl = time.Hour
	}
	return &Engine{
		cfg:    cfg,
		source: source,
		cache:  NewCache(),
		ttl:    ttl,
		now:    time.Now,
	}
}

// InvalidateCache drops all memoized telemetry so the next analysis reads
// fresh data.
func (e *Engine) InvalidateCache() {
	e.cache.InvalidateAll()
}

// Analyze runs every analysis over the configured look-back window and
// returns the assembled report. A window too short for forecasting leaves
// the forecast empty rather than failing the run; every other error aborts.
func (e *Engine) Analyze(ctx context.Context, reportType string) (*model.Report, error) {
	days := e.cfg.Analysis.LookbackDays
	generatedAt := e.now()

	report := &model.Report{
		ReqID:      generateReqID(generatedAt),
		ReportType: reportType,
		Timestamp:  generatedAt,
		Window: model.TimeWindow{
			Start: generatedAt.AddDate(0, 0, -days),
			End:   generatedAt,
		},
	}

	costs, err := Fetch(e.cache, Key("daily_credits", days), e.ttl, func() ([]model.CostPoint, error) {
		return e.source.DailyCredits(ctx, days)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching daily credits: %w", err)
	}

	report.Anomalies = DetectAnomalies(costs, e.cfg.Thresholds.ZWarning, e.cfg.Thresholds.ZCritical)

	if len(costs) >= MinForecastPoints {
		forecast, err := ForecastCosts(costs, e.cfg.Analysis.ForecastHorizonDays)
		if err != nil {
			return nil, fmt.Errorf("forecasting costs: %w", err)
		}
		report.Forecast = forecast
	} else {
		log.Printf("engine: %d cost points in window, need %d for a forecast; skipping",
			len(costs), MinForecastPoints)
	}

	summaries, err := Fetch(e.cache, Key("warehouse_summaries", days), e.ttl, func() ([]model.ResourceUsageSummary, error) {
		return e.source.WarehouseSummaries(ctx, days)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching warehouse summaries: %w", err)
	}

	cutoff, err := e.cfg.Thresholds.SizeCutoff()
	if err != nil {
		return nil, fmt.Errorf("resolving size cutoff: %w", err)
	}
	report.Recommendations, err = AdviseAll(summaries, AdvisorConfig{
		QueueThresholdSeconds: e.cfg.Thresholds.QueueSeconds,
		LargeSizeCutoff:       cutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("advising on warehouse sizing: %w", err)
	}

	queries, err := Fetch(e.cache, Key("query_records", days), e.ttl, func() ([]model.QueryRecord, error) {
		return e.source.QueryRecords(ctx, days)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching query records: %w", err)
	}

	report.Issues, err = ClassifyQueries(queries)
	if err != nil {
		return nil, fmt.Errorf("classifying queries: %w", err)
	}

	target := e.cfg.Thresholds.ConcentrationPercent
	for _, dim := range []struct {
		name string
		dest *model.AttributionReport
	}{
		{DimWarehouse, &report.WarehouseCosts},
		{DimService, &report.ServiceCosts},
		{DimUser, &report.UserCosts},
	} {
		facts, err := Fetch(e.cache, Key("cost_facts", days, dim.name), e.ttl, func() ([]model.MetricFact, error) {
			return e.source.CostFacts(ctx, days, dim.name)
		})
		if err != nil {
			return nil, fmt.Errorf("fetching %s cost facts: %w", dim.name, err)
		}
		*dim.dest = AttributeCosts(facts, dim.name, attributionKey(dim.name), target)
	}

	storage, err := Fetch(e.cache, Key("storage_facts"), e.ttl, func() ([]model.MetricFact, error) {
		return e.source.StorageFacts(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching storage facts: %w", err)
	}
	report.StorageByDB = AttributeCosts(storage, DimDatabase, attributionKey(DimDatabase), target)

	report.Summary = buildSummary(report, len(costs), len(queries))

	return report, nil
}

// attributionKey returns the grouping key extractor for a dimension. The
// warehouse dimension groups by the resource itself; every other dimension
// groups by the fact's secondary key.
func attributionKey(dimension string) func(model.MetricFact) string {
	if dimension == DimWarehouse {
		return func(f model.MetricFact) string { return f.ResourceID }
	}
	return func(f model.MetricFact) string { return f.Dimension }
}

// buildSummary computes the report's health indicators. The score starts at
// 100 and takes capped deductions per finding class, so one noisy class
// cannot zero the score by itself.
func buildSummary(report *model.Report, days, queries int) model.ReportSummary {
	summary := model.ReportSummary{
		DaysAnalyzed:    days,
		QueriesAnalyzed: queries,
		IssueCategories: len(report.Issues),
	}

	for _, a := range report.Anomalies {
		switch a.Severity {
		case model.SeverityCritical:
			summary.CriticalAnomalies++
		case model.SeverityWarning:
			summary.WarningAnomalies++
		}
	}

	for _, rec := range report.Recommendations {
		if rec.Action != model.ActionOptimal {
			summary.ActionableRecommendations++
		}
	}

	score := 100
	score -= capped(summary.CriticalAnomalies*15, 30)
	score -= capped(summary.WarningAnomalies*5, 15)
	score -= capped(summary.ActionableRecommendations*10, 30)
	score -= capped(summary.IssueCategories*5, 20)
	if score < 0 {
		score = 0
	}
	summary.HealthScore = score

	switch {
	case score >= 90:
		summary.HealthStatus = "healthy"
	case score >= 70:
		summary.HealthStatus = "warning"
	case score >= 50:
		summary.HealthStatus = "degraded"
	default:
		summary.HealthStatus = "critical"
	}

	return summary
}

func capped(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func generateReqID(t time.Time) string {
	return fmt.Sprintf("run-%s", t.UTC().Format("20060102-150405.000"))
}
