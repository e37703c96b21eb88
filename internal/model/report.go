package model

import "time"

// Severity classifies how unusual an observation is.
type Severity string

const (
	SeverityNormal   Severity = "NORMAL"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Action is the sizing recommendation for a compute resource.
type Action string

const (
	ActionUpsize        Action = "UPSIZE"
	ActionDownsize      Action = "DOWNSIZE"
	ActionSuspendOrDrop Action = "SUSPEND_OR_DROP"
	ActionOptimal       Action = "OPTIMAL"
)

// IssueTag is one entry of the closed query-problem vocabulary. A query can
// carry any number of tags.
type IssueTag string

const (
	TagLongRunning     IssueTag = "LONG_RUNNING"
	TagHighQueue       IssueTag = "HIGH_QUEUE"
	TagRemoteSpill     IssueTag = "REMOTE_SPILL"
	TagLocalSpill      IssueTag = "LOCAL_SPILL"
	TagCompileOverhead IssueTag = "COMPILE_OVERHEAD"
	TagFailed          IssueTag = "FAILED"
	TagExcessiveScan   IssueTag = "EXCESSIVE_SCAN"
	TagPoorPruning     IssueTag = "POOR_PRUNING"
)

// AnomalyPoint is the anomaly-detector verdict for one day of cost.
type AnomalyPoint struct {
	Date           time.Time `json:"date"`
	Observed       float64   `json:"observed_value"`
	BaselineMean   float64   `json:"baseline_mean"`
	BaselineStddev float64   `json:"baseline_stddev"`
	ZScore         float64   `json:"z_score"`
	Severity       Severity  `json:"severity"`
}

// ForecastPoint is one extrapolated future day of cost.
type ForecastPoint struct {
	// DayIndex continues the dense 0-based index of the fitted window.
	DayIndex int       `json:"day_index"`
	Date     time.Time `json:"date"`

	// Predicted is clamped to zero; costs cannot be negative.
	Predicted float64 `json:"predicted_value"`

	// RSquared is the goodness of fit of the underlying regression, reported
	// on every point so the consumer can judge confidence.
	RSquared float64 `json:"model_r_squared"`
}

// Recommendation is the advisor verdict for one compute resource.
type Recommendation struct {
	ResourceID string `json:"resource_id"`
	Action     Action `json:"action"`
	Reason     string `json:"reason"`

	// Evidence carries the usage summary the decision was made from.
	Evidence ResourceUsageSummary `json:"evidence"`
}

// IssueSummary aggregates all queries that received a given tag.
type IssueSummary struct {
	Tag               IssueTag `json:"tag"`
	Count             int      `json:"count"`
	AvgElapsedSeconds float64  `json:"avg_elapsed_seconds"`
	TotalBytesScanned int64    `json:"total_bytes_scanned"`
}

// AttributionRow is one group of the cost-attribution breakdown.
type AttributionRow struct {
	Key            string  `json:"key"`
	Total          float64 `json:"total"`
	PercentOfTotal float64 `json:"percent_of_total"`
}

// AttributionReport is a full attribution breakdown for one dimension,
// rows sorted descending by total.
type AttributionReport struct {
	// Dimension names the grouping key ("warehouse", "user", "service", ...).
	Dimension string `json:"dimension"`

	Rows       []AttributionRow `json:"rows"`
	GrandTotal float64          `json:"grand_total"`

	// ConcentrationCount is the smallest number of leading rows whose
	// cumulative percentage first reaches TargetPercent (inclusive), for
	// "top-N groups account for X% of cost" statements.
	ConcentrationCount   int     `json:"concentration_count"`
	ConcentrationPercent float64 `json:"concentration_percent"`
	TargetPercent        float64 `json:"target_percent"`
}

// TimeWindow represents a time range for analysis.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the duration of the time window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// ReportSummary provides high-level health indicators for a report.
type ReportSummary struct {
	DaysAnalyzed    int `json:"days_analyzed"`
	QueriesAnalyzed int `json:"queries_analyzed"`

	CriticalAnomalies int `json:"critical_anomalies"`
	WarningAnomalies  int `json:"warning_anomalies"`

	// ActionableRecommendations counts recommendations other than OPTIMAL.
	ActionableRecommendations int `json:"actionable_recommendations"`

	IssueCategories int `json:"issue_categories"`

	// HealthScore is an overall account health score from 0-100.
	HealthScore int `json:"health_score"`

	// HealthStatus is a human-readable status ("healthy", "warning",
	// "degraded", "critical").
	HealthStatus string `json:"health_status"`
}

// Report contains every insight produced by one engine invocation. All
// values are raw credit/byte units; currency conversion and formatting are
// the presentation layer's job.
type Report struct {
	// ReqID is a unique identifier for this analysis run.
	ReqID string `json:"req_id"`

	// ReportType describes how the run was triggered ("scheduled", "adhoc").
	ReportType string `json:"report_type"`

	// Timestamp is when this report was generated.
	Timestamp time.Time `json:"timestamp"`

	// Window is the look-back window analyzed.
	Window TimeWindow `json:"window"`

	Anomalies []AnomalyPoint `json:"anomalies,omitempty"`

	// Forecast is empty when the window held too few points to fit a trend.
	Forecast []ForecastPoint `json:"forecast,omitempty"`

	Recommendations []Recommendation `json:"recommendations,omitempty"`

	Issues []IssueSummary `json:"issues,omitempty"`

	WarehouseCosts AttributionReport `json:"warehouse_costs"`
	ServiceCosts   AttributionReport `json:"service_costs"`
	UserCosts      AttributionReport `json:"user_costs"`
	StorageByDB    AttributionReport `json:"storage_by_database"`

	Summary ReportSummary `json:"summary"`
}
