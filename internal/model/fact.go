// Package model defines the core data structures used by warehouse-sentinel.
package model

import "time"

// Query execution status values as reported by the warehouse.
const (
	StatusSuccess = "SUCCESS"
)

// MetricFact is one row of aggregated usage telemetry: a numeric measure
// (credits, bytes, count) for a resource and an optional secondary dimension
// on a given day.
type MetricFact struct {
	// Timestamp is the day bucket the measure was aggregated into.
	Timestamp time.Time `json:"timestamp"`

	// ResourceID names the compute resource (e.g., a warehouse).
	ResourceID string `json:"resource_id"`

	// Dimension is an optional secondary grouping key (user, service, database).
	Dimension string `json:"dimension,omitempty"`

	// Value is the numeric measure.
	Value float64 `json:"value"`
}

// CostPoint is one day of total cost (in raw credit units) across the account.
type CostPoint struct {
	Date time.Time `json:"date"`
	Cost float64   `json:"cost"`
}

// QueryRecord describes a single executed query.
type QueryRecord struct {
	// ID is the warehouse-assigned query identifier.
	ID string `json:"id"`

	// ResourceID is the warehouse the query ran on.
	ResourceID string `json:"resource_id"`

	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	QueuedSeconds   float64 `json:"queued_seconds"`
	CompiledSeconds float64 `json:"compiled_seconds"`

	BytesScanned       int64 `json:"bytes_scanned"`
	BytesSpilledLocal  int64 `json:"bytes_spilled_local"`
	BytesSpilledRemote int64 `json:"bytes_spilled_remote"`

	// PartitionsTotal of zero means partition pruning is not applicable to
	// this query, not that every partition was pruned.
	PartitionsScanned int64 `json:"partitions_scanned"`
	PartitionsTotal   int64 `json:"partitions_total"`

	// Status is the execution status; anything other than StatusSuccess is
	// treated as a failure.
	Status string `json:"status"`
}

// Succeeded reports whether the query completed successfully.
func (q *QueryRecord) Succeeded() bool {
	return q.Status == StatusSuccess
}

// ResourceUsageSummary is the per-resource rollup the advisor works from.
// It is computed fresh for each analysis window and never persisted.
type ResourceUsageSummary struct {
	ResourceID string    `json:"resource_id"`
	SizeClass  SizeClass `json:"size_class"`

	// TotalValue is the total metered credits in the window.
	TotalValue float64 `json:"total_value"`

	// ActivePeriods is the number of distinct days with metered usage.
	ActivePeriods int `json:"active_periods"`

	// AvgConcurrentLoad is the mean number of concurrently running queries,
	// from the warehouse load history. Only meaningful when HasLoadData.
	AvgConcurrentLoad float64 `json:"avg_concurrent_load"`

	// AvgQueueDepth is the mean per-query queue time in seconds.
	AvgQueueDepth float64 `json:"avg_queue_depth"`

	// QueryCount is the number of queries in the window. The advisor only
	// trusts it when QueryCountKnown is set; a telemetry source that cannot
	// distinguish "no queries" from "no data" must leave it false.
	QueryCount      int64 `json:"query_count"`
	QueryCountKnown bool  `json:"query_count_known"`

	// HasLoadData reports whether load-history rows were observed for this
	// resource in the window. Utilization-based rules are skipped without it.
	HasLoadData bool `json:"has_load_data"`
}
