package insight

import (
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// MinForecastPoints is the minimum number of daily observations required
// before a linear trend fit is attempted.
const MinForecastPoints = 7

// TrendFit holds the parameters of a fitted linear cost trend.
type TrendFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

// FitTrend runs an ordinary least-squares regression of values on their
// dense 0-based day index. The caller must have filled any missing days
// beforehand; the fit assumes consecutive indices.
//
// Fewer than MinForecastPoints values returns an InsufficientDataError
// rather than a meaningless fit.
func FitTrend(values []float64) (TrendFit, error) {
	if len(values) < MinForecastPoints {
		return TrendFit{}, &InsufficientDataError{
			Op:      "trend forecast",
			Points:  len(values),
			Minimum: MinForecastPoints,
		}
	}

	slope, intercept, r2 := olsFit(values)
	return TrendFit{Slope: slope, Intercept: intercept, RSquared: r2}, nil
}

// Extrapolate predicts horizon future points starting at day index from.
// Predictions are clamped at zero: costs and volumes cannot go negative.
// The fit's r² is stamped on every point so a consumer can judge confidence;
// suppressing low-confidence forecasts is the consumer's policy, not ours.
func (f TrendFit) Extrapolate(from, horizon int) []model.ForecastPoint {
	if horizon <= 0 {
		return nil
	}

	points := make([]model.ForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		idx := from + i
		predicted := f.Slope*float64(idx) + f.Intercept
		if predicted < 0 {
			predicted = 0
		}
		points[i] = model.ForecastPoint{
			DayIndex:  idx,
			Predicted: predicted,
			RSquared:  f.RSquared,
		}
	}
	return points
}

// ForecastCosts fits a trend to the daily cost series and extrapolates
// horizon days past the end of the window, stamping each prediction with
// its calendar date.
func ForecastCosts(points []model.CostPoint, horizon int) ([]model.ForecastPoint, error) {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Cost
	}

	fit, err := FitTrend(values)
	if err != nil {
		return nil, err
	}

	forecast := fit.Extrapolate(len(values), horizon)
	if len(points) > 0 {
		last := points[len(points)-1].Date
		for i := range forecast {
			forecast[i].Date = last.AddDate(0, 0, forecast[i].DayIndex-(len(points)-1))
		}
	}
	return forecast, nil
}
