package insight

import "fmt"

// InsufficientDataError reports that an analysis was asked to run on fewer
// input points than its minimum. It is returned, never logged; the caller
// decides whether to surface it or quietly skip the analysis.
type InsufficientDataError struct {
	Op      string
	Points  int
	Minimum int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %d data points supplied, need at least %d", e.Op, e.Points, e.Minimum)
}

// InvalidRecordError reports an input row that violates a field invariant,
// naming the offending record, field and value.
type InvalidRecordError struct {
	RecordID string
	Field    string
	Value    string
	Reason   string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record %s: field %s = %s (%s)", e.RecordID, e.Field, e.Value, e.Reason)
}
