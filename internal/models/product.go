// internal/models/product.go
package models

// Product is reference data owned by the offline ETL jobs; read-only here.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CategoryPath []string `json:"categoryPath"` // up to 3 levels
	Materials    string   `json:"materials,omitempty"`
	Uses         string   `json:"uses,omitempty"`
}

// Indicator is the metadata for one environmental impact metric.
type Indicator struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	ShortDescription string `json:"shortDescription"`
	LongDescription  string `json:"longDescription"`
	Unit             string `json:"unit"`
}

// ModuleAmount is one indicator value scoped to a life-cycle module. The
// amount and unit are meaningless without the module code and must never be
// presented without it.
type ModuleAmount struct {
	ProductID    string   `json:"productId"`
	IndicatorKey string   `json:"indicatorKey"`
	Module       string   `json:"module"`
	Scenario     string   `json:"scenario,omitempty"`
	Amount       *float64 `json:"amount"`
	Unit         string   `json:"unit"`
}
