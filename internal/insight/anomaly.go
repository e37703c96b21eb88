package insight

import (
	"math"

	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// Default z-score severity thresholds.
const (
	DefaultZWarning  = 2.0
	DefaultZCritical = 3.0
)

// DetectAnomalies scores every day of cost against the mean and population
// standard deviation of the whole window, the tested point included. This is
// intentionally a simple full-window outlier test, not leave-one-out:
// changing it would change alerting behavior.
//
// Fewer than 2 points cannot form a baseline, so every point comes back
// NORMAL with a zero z-score; that is a degenerate window, not an error.
// A zero-variance window likewise yields all-NORMAL.
//
// Severity: z >= critZ is CRITICAL (boundary inclusive, so a spike landing
// exactly on the threshold still alerts), critZ > z > warnZ is WARNING.
// Output order matches input order and the result is fully deterministic.
func DetectAnomalies(points []model.CostPoint, warnZ, critZ float64) []model.AnomalyPoint {
	if len(points) == 0 {
		return nil
	}

	results := make([]model.AnomalyPoint, len(points))

	if len(points) < 2 {
		for i, p := range points {
			results[i] = model.AnomalyPoint{
				Date:         p.Date,
				Observed:     p.Cost,
				BaselineMean: p.Cost,
				Severity:     model.SeverityNormal,
			}
		}
		return results
	}

	costs := make([]float64, len(points))
	for i, p := range points {
		costs[i] = p.Cost
	}

	m := mean(costs)
	sd := populationStdDev(costs, m)

	for i, p := range points {
		var z float64
		if sd > 0 {
			z = math.Abs(p.Cost-m) / sd
		}

		severity := model.SeverityNormal
		switch {
		case sd > 0 && z >= critZ:
			severity = model.SeverityCritical
		case sd > 0 && z > warnZ:
			severity = model.SeverityWarning
		}

		results[i] = model.AnomalyPoint{
			Date:           p.Date,
			Observed:       p.Cost,
			BaselineMean:   m,
			BaselineStddev: sd,
			ZScore:         z,
			Severity:       severity,
		}
	}

	return results
}
