package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
	"github.com/warehouselens/warehouse-sentinel/internal/insight"
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// mockNotifier implements notifier.Notifier for testing
type mockNotifier struct {
	sentCount int
}

func (m *mockNotifier) Send(ctx context.Context, report *model.Report) error {
	m.sentCount++
	return nil
}

func (m *mockNotifier) Name() string {
	return "mock"
}

// emptySource returns no telemetry at all, which is a valid degenerate window.
type emptySource struct{}

func (emptySource) DailyCredits(ctx context.Context, days int) ([]model.CostPoint, error) {
	return nil, nil
}

func (emptySource) WarehouseSummaries(ctx context.Context, days int) ([]model.ResourceUsageSummary, error) {
	return nil, nil
}

func (emptySource) QueryRecords(ctx context.Context, days int) ([]model.QueryRecord, error) {
	return nil, nil
}

func (emptySource) CostFacts(ctx context.Context, days int, dimension string) ([]model.MetricFact, error) {
	return nil, nil
}

func (emptySource) StorageFacts(ctx context.Context) ([]model.MetricFact, error) {
	return nil, nil
}

func newTestScheduler() (*Scheduler, *mockNotifier) {
	cfg := &config.Config{
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
	eng := insight.NewEngine(cfg, emptySource{})
	notify := &mockNotifier{}
	return New(eng, notify, time.UTC), notify
}

func TestScheduler_StartStop(t *testing.T) {
	sched, _ := newTestScheduler()

	if sched.IsRunning() {
		t.Error("Scheduler should not be running initially")
	}

	sched.Start()
	if !sched.IsRunning() {
		t.Error("Scheduler should be running after Start()")
	}

	// Start again should be no-op
	sched.Start()
	if !sched.IsRunning() {
		t.Error("Scheduler should still be running")
	}

	ctx := sched.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Error("Stop context should be done")
	}

	if sched.IsRunning() {
		t.Error("Scheduler should not be running after Stop()")
	}
}

func TestScheduler_ScheduleRejectsBadExpression(t *testing.T) {
	sched, _ := newTestScheduler()

	if err := sched.Schedule("not a cron expression"); err == nil {
		t.Error("expected an error for an invalid cron expression")
	}
	if err := sched.Schedule("0 0 9 * * 1"); err != nil {
		t.Errorf("valid 6-field expression rejected: %v", err)
	}
}

func TestScheduler_RunNow(t *testing.T) {
	sched, notify := newTestScheduler()

	sched.RunNow()

	if notify.sentCount != 1 {
		t.Errorf("notifier invoked %d times, want 1", notify.sentCount)
	}
	if sched.IsAnalyzing() {
		t.Error("analysis flag still set after the run finished")
	}
}

func TestScheduler_TimeoutConfig(t *testing.T) {
	sched, _ := newTestScheduler()

	if sched.analysisTimeout != DefaultAnalysisTimeout {
		t.Errorf("Default timeout = %v, want %v", sched.analysisTimeout, DefaultAnalysisTimeout)
	}

	newTimeout := 10 * time.Second
	sched.SetAnalysisTimeout(newTimeout)
	if sched.analysisTimeout != newTimeout {
		t.Errorf("Timeout = %v, want %v", sched.analysisTimeout, newTimeout)
	}
}
