package insight

import (
	"fmt"
	"sort"

	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// Issue-classification thresholds. Each tag has exactly one scalar test.
const (
	LongRunningSeconds   = 300.0
	HighQueueSeconds     = 60.0
	LocalSpillBytes      = 1 << 30  // 1 GiB
	ExcessiveScanBytes   = 10 << 30 // 10 GiB
	CompileOverheadRatio = 0.3
	PruningMinPartitions = 100
	PruningScanRatio     = 0.8
)

// ClassifyQuery evaluates every tag predicate independently against a single
// query record and returns the tags that hold, in a fixed vocabulary order.
// This is a tagging pass, not a single-label classifier: a pathological query
// can carry many tags at once, and adding a tag never perturbs the others.
//
// Ratio predicates define their zero-denominator behavior explicitly:
// compile overhead is skipped when elapsed time is zero, and pruning is
// skipped when the partition total is absent (zero means "not applicable",
// not "fully pruned").
func ClassifyQuery(q model.QueryRecord) ([]model.IssueTag, error) {
	if q.PartitionsTotal > 0 && q.PartitionsScanned > q.PartitionsTotal {
		return nil, &InvalidRecordError{
			RecordID: q.ID,
			Field:    "partitions_scanned",
			Value:    fmt.Sprintf("%d", q.PartitionsScanned),
			Reason:   fmt.Sprintf("exceeds partitions_total %d", q.PartitionsTotal),
		}
	}

	var tags []model.IssueTag

	if q.ElapsedSeconds > LongRunningSeconds {
		tags = append(tags, model.TagLongRunning)
	}
	if q.QueuedSeconds > HighQueueSeconds {
		tags = append(tags, model.TagHighQueue)
	}
	if q.BytesSpilledRemote > 0 {
		tags = append(tags, model.TagRemoteSpill)
	}
	if q.BytesSpilledLocal > LocalSpillBytes {
		tags = append(tags, model.TagLocalSpill)
	}
	if q.ElapsedSeconds > 0 && q.CompiledSeconds/q.ElapsedSeconds > CompileOverheadRatio {
		tags = append(tags, model.TagCompileOverhead)
	}
	if !q.Succeeded() {
		tags = append(tags, model.TagFailed)
	}
	if q.BytesScanned > ExcessiveScanBytes {
		tags = append(tags, model.TagExcessiveScan)
	}
	if q.PartitionsTotal > PruningMinPartitions &&
		float64(q.PartitionsScanned)/float64(q.PartitionsTotal) > PruningScanRatio {
		tags = append(tags, model.TagPoorPruning)
	}

	return tags, nil
}

// ClassifyQueries tags every record and aggregates the tagged ones per tag:
// occurrence count, average elapsed seconds, and total bytes scanned.
// Records with zero tags contribute to no group; overall query totals are
// the caller's concern, not the classifier's. Groups come back sorted by
// count descending, ties broken by tag name for determinism.
func ClassifyQueries(records []model.QueryRecord) ([]model.IssueSummary, error) {
	if len(records) == 0 {
		return nil, nil
	}

	type accumulator struct {
		count        int
		totalElapsed float64
		totalScanned int64
	}
	groups := make(map[model.IssueTag]*accumulator)

	for _, q := range records {
		tags, err := ClassifyQuery(q)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			acc := groups[tag]
			if acc == nil {
				acc = &accumulator{}
				groups[tag] = acc
			}
			acc.count++
			acc.totalElapsed += q.ElapsedSeconds
			acc.totalScanned += q.BytesScanned
		}
	}

	summaries := make([]model.IssueSummary, 0, len(groups))
	for tag, acc := range groups {
		summaries = append(summaries, model.IssueSummary{
			Tag:               tag,
			Count:             acc.count,
			AvgElapsedSeconds: acc.totalElapsed / float64(acc.count),
			TotalBytesScanned: acc.totalScanned,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Count != summaries[j].Count {
			return summaries[i].Count > summaries[j].Count
		}
		return summaries[i].Tag < summaries[j].Tag
	})

	return summaries, nil
}
