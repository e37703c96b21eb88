package insight

import (
	"context"
	"testing"
	"time"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

type fakeSource struct {
	credits   []model.CostPoint
	summaries []model.ResourceUsageSummary
	queries   []model.QueryRecord
	costFacts map[string][]model.MetricFact
	storage   []model.MetricFact

	calls map[string]int
}

func newFakeSource() *fakeSource {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	credits := make([]model.CostPoint, 10)
	for i := range credits {
		credits[i] = model.CostPoint{Date: base.AddDate(0, 0, i), Cost: 100}
	}
	credits[9].Cost = 1000

	slow := model.QueryRecord{ID: "q1", ResourceID: "ETL_WH", ElapsedSeconds: 400, Status: model.StatusSuccess}

	return &fakeSource{
		credits: credits,
		summaries: []model.ResourceUsageSummary{
			{ResourceID: "ETL_WH", SizeClass: model.SizeLarge, AvgQueueDepth: 12, QueryCount: 100, QueryCountKnown: true, HasLoadData: true},
			{ResourceID: "DEV_WH", SizeClass: model.SizeSmall, QueryCount: 5, QueryCountKnown: true, HasLoadData: true, AvgConcurrentLoad: 0.5},
		},
		queries: []model.QueryRecord{slow},
		costFacts: map[string][]model.MetricFact{
			DimWarehouse: {
				{ResourceID: "ETL_WH", Value: 80},
				{ResourceID: "DEV_WH", Value: 20},
			},
			DimService: {
				{Dimension: "WAREHOUSE_METERING", Value: 90},
				{Dimension: "SERVERLESS_TASK", Value: 10},
			},
			DimUser: {
				{Dimension: "etl_bot", Value: 60},
				{Dimension: "analyst", Value: 40},
			},
		},
		storage: []model.MetricFact{
			{Dimension: "ANALYTICS", Value: 5 << 40},
			{Dimension: "RAW", Value: 1 << 40},
		},
		calls: make(map[string]int),
	}
}

func (f *fakeSource) DailyCredits(ctx context.Context, days int) ([]model.CostPoint, error) {
	f.calls["daily_credits"]++
	return f.credits, nil
}

func (f *fakeSource) WarehouseSummaries(ctx context.Context, days int) ([]model.ResourceUsageSummary, error) {
	f.calls["warehouse_summaries"]++
	return f.summaries, nil
}

func (f *fakeSource) QueryRecords(ctx context.Context, days int) ([]model.QueryRecord, error) {
	f.calls["query_records"]++
	return f.queries, nil
}

func (f *fakeSource) CostFacts(ctx context.Context, days int, dimension string) ([]model.MetricFact, error) {
	f.calls["cost_facts:"+dimension]++
	return f.costFacts[dimension], nil
}

func (f *fakeSource) StorageFacts(ctx context.Context) ([]model.MetricFact, error) {
	f.calls["storage_facts"]++
	return f.storage, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{LookbackDays: 30, ForecastHorizonDays: 30},
		Thresholds: config.ThresholdsConfig{
			QueueSeconds:         5,
			ZWarning:             2,
			ZCritical:            3,
			ConcentrationPercent: 80,
			LargeSizeCutoff:      "LARGE",
		},
		Cache: config.CacheConfig{TTL: "1h"},
	}
}

func TestEngineAnalyze(t *testing.T) {
	source := newFakeSource()
	engine := NewEngine(testConfig(), source)

	report, err := engine.Analyze(context.Background(), "adhoc")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.ReqID == "" || report.ReportType != "adhoc" {
		t.Errorf("report identity = %q/%q", report.ReqID, report.ReportType)
	}

	// The 10x spike on the last day sits exactly on the critical boundary.
	if len(report.Anomalies) != 10 {
		t.Fatalf("got %d anomaly points, want 10", len(report.Anomalies))
	}
	spike := report.Anomalies[9]
	if spike.Severity != model.SeverityCritical {
		t.Errorf("spike severity = %s, want CRITICAL (z=%v)", spike.Severity, spike.ZScore)
	}

	if len(report.Forecast) != 30 {
		t.Errorf("got %d forecast points, want 30", len(report.Forecast))
	}

	if len(report.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(report.Recommendations))
	}
	if report.Recommendations[0].Action != model.ActionUpsize {
		t.Errorf("ETL_WH action = %s, want UPSIZE", report.Recommendations[0].Action)
	}

	if len(report.Issues) != 1 || report.Issues[0].Tag != model.TagLongRunning {
		t.Errorf("issues = %+v, want one LONG_RUNNING group", report.Issues)
	}

	if report.WarehouseCosts.GrandTotal != 100 {
		t.Errorf("warehouse grand total = %v, want 100", report.WarehouseCosts.GrandTotal)
	}
	if report.UserCosts.Rows[0].Key != "etl_bot" {
		t.Errorf("top user = %s, want etl_bot", report.UserCosts.Rows[0].Key)
	}
	if report.StorageByDB.Rows[0].Key != "ANALYTICS" {
		t.Errorf("top database = %s, want ANALYTICS", report.StorageByDB.Rows[0].Key)
	}

	summary := report.Summary
	if summary.CriticalAnomalies != 1 {
		t.Errorf("critical anomalies = %d, want 1", summary.CriticalAnomalies)
	}
	if summary.ActionableRecommendations != 1 {
		t.Errorf("actionable recommendations = %d, want 1", summary.ActionableRecommendations)
	}
	if summary.HealthScore >= 100 {
		t.Errorf("health score = %d, want below 100", summary.HealthScore)
	}
	if summary.HealthStatus == "" {
		t.Error("health status is empty")
	}
}

func TestEngineAnalyzeCachesTelemetry(t *testing.T) {
	source := newFakeSource()
	engine := NewEngine(testConfig(), source)
	ctx := context.Background()

	if _, err := engine.Analyze(ctx, "scheduled"); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if _, err := engine.Analyze(ctx, "scheduled"); err != nil {
		t.Fatalf("second Analyze: %v", err)
	}

	for name, n := range source.calls {
		if n != 1 {
			t.Errorf("%s fetched %d times, want 1", name, n)
		}
	}

	engine.InvalidateCache()
	if _, err := engine.Analyze(ctx, "adhoc"); err != nil {
		t.Fatalf("post-invalidation Analyze: %v", err)
	}
	if source.calls["daily_credits"] != 2 {
		t.Errorf("daily credits fetched %d times after invalidation, want 2", source.calls["daily_credits"])
	}
}

func TestEngineAnalyzeShortWindowSkipsForecast(t *testing.T) {
	source := newFakeSource()
	source.credits = source.credits[:5]
	engine := NewEngine(testConfig(), source)

	report, err := engine.Analyze(context.Background(), "adhoc")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Forecast != nil {
		t.Errorf("got %d forecast points for a 5-day window, want none", len(report.Forecast))
	}
	if len(report.Anomalies) != 5 {
		t.Errorf("anomaly detection should still run: got %d points", len(report.Anomalies))
	}
}
