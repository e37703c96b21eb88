package insight

import (
	"fmt"

	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// DefaultQueueThresholdSeconds is the average queue time above which a
// warehouse is considered resource-constrained.
const DefaultQueueThresholdSeconds = 5.0

// Fixed recommendation reasons. The advisor emits these verbatim; wording
// belongs to the enum, not the call site.
const (
	ReasonQueueing       = "queueing observed - workload is resource-constrained"
	ReasonLowUtilization = "sustained low utilization at large size"
	ReasonNoActivity     = "no activity in window"
	ReasonOptimal        = "resource is appropriately sized"
)

// AdvisorConfig carries the advisor's policy knobs.
type AdvisorConfig struct {
	// QueueThresholdSeconds triggers UPSIZE when average queue time exceeds it.
	QueueThresholdSeconds float64

	// LargeSizeCutoff is the smallest size class considered "large" for the
	// downsize rule.
	LargeSizeCutoff model.SizeClass
}

// DefaultAdvisorConfig returns the stock policy: 5-second queue threshold,
// LARGE and above eligible for downsizing.
func DefaultAdvisorConfig() AdvisorConfig {
	return AdvisorConfig{
		QueueThresholdSeconds: DefaultQueueThresholdSeconds,
		LargeSizeCutoff:       model.SizeLarge,
	}
}

// Advise classifies one resource into a sizing action. Rules are evaluated
// in a fixed priority order and the first match wins, which resolves the
// case where several conditions hold at once:
//
//  1. queueing above threshold        -> UPSIZE
//  2. idle concurrency at large size  -> DOWNSIZE
//  3. zero queries in the window      -> SUSPEND_OR_DROP
//  4. otherwise                       -> OPTIMAL
//
// Rule 2 requires load-history data and rule 3 requires a known query count:
// a resource whose telemetry is merely missing must never be classified as
// abandoned. The telemetry source is responsible for setting HasLoadData and
// QueryCountKnown honestly.
func Advise(summary model.ResourceUsageSummary, cfg AdvisorConfig) (model.Recommendation, error) {
	if err := validateSummary(summary); err != nil {
		return model.Recommendation{}, err
	}

	rec := model.Recommendation{
		ResourceID: summary.ResourceID,
		Evidence:   summary,
	}

	switch {
	case summary.AvgQueueDepth > cfg.QueueThresholdSeconds:
		rec.Action = model.ActionUpsize
		rec.Reason = ReasonQueueing
	case summary.HasLoadData && summary.AvgConcurrentLoad < 1 && summary.SizeClass >= cfg.LargeSizeCutoff:
		rec.Action = model.ActionDownsize
		rec.Reason = ReasonLowUtilization
	case summary.QueryCountKnown && summary.QueryCount == 0:
		rec.Action = model.ActionSuspendOrDrop
		rec.Reason = ReasonNoActivity
	default:
		rec.Action = model.ActionOptimal
		rec.Reason = ReasonOptimal
	}

	return rec, nil
}

// AdviseAll classifies every resource, preserving input order. The first
// invalid summary aborts the run.
func AdviseAll(summaries []model.ResourceUsageSummary, cfg AdvisorConfig) ([]model.Recommendation, error) {
	if len(summaries) == 0 {
		return nil, nil
	}

	recommendations := make([]model.Recommendation, 0, len(summaries))
	for _, s := range summaries {
		rec, err := Advise(s, cfg)
		if err != nil {
			return nil, err
		}
		recommendations = append(recommendations, rec)
	}
	return recommendations, nil
}

func validateSummary(s model.ResourceUsageSummary) error {
	if s.AvgQueueDepth < 0 {
		return &InvalidRecordError{
			RecordID: s.ResourceID,
			Field:    "avg_queue_depth",
			Value:    fmt.Sprintf("%g", s.AvgQueueDepth),
			Reason:   "must not be negative",
		}
	}
	if s.AvgConcurrentLoad < 0 {
		return &InvalidRecordError{
			RecordID: s.ResourceID,
			Field:    "avg_concurrent_load",
			Value:    fmt.Sprintf("%g", s.AvgConcurrentLoad),
			Reason:   "must not be negative",
		}
	}
	if s.QueryCount < 0 {
		return &InvalidRecordError{
			RecordID: s.ResourceID,
			Field:    "query_count",
			Value:    fmt.Sprintf("%d", s.QueryCount),
			Reason:   "must not be negative",
		}
	}
	return nil
}
