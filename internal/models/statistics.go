// internal/models/statistics.go
package models

// StatKey identifies one category-level aggregate. Aggregates only combine
// amounts sharing the same category path, indicator key, and module code.
type StatKey struct {
	IndicatorKey string
	Module       string
}

// CategoryStatistic is a read-only aggregate computed by the offline ETL
// jobs over all products sharing a 3-level category path.
type CategoryStatistic struct {
	CategoryPath []string `json:"categoryPath"`
	IndicatorKey string   `json:"indicatorKey"`
	Module       string   `json:"module"`
	Mean         float64  `json:"mean"`
	StdDev       *float64 `json:"stdDev"`
	Min          float64  `json:"min"`
	Max          float64  `json:"max"`
	Unit         string   `json:"unit"`
	SampleCount  int      `json:"sampleCount"`
}

// SignificanceDirection marks which side of the category mean a value is on.
type SignificanceDirection string

const (
	DirectionHigh SignificanceDirection = "high"
	DirectionLow  SignificanceDirection = "low"
)

// IndicatorSignificance is derived per request and never persisted. The
// Percentile is deliberately unclamped: values outside the historical
// min/max range map outside [0,1].
type IndicatorSignificance struct {
	IndicatorKey string                `json:"indicatorKey"`
	Module       string                `json:"module"`
	Value        float64               `json:"value"`
	ZScore       float64               `json:"zScore"`
	Percentile   float64               `json:"percentile"`
	Direction    SignificanceDirection `json:"direction"`
}
