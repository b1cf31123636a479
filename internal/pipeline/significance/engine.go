// internal/pipeline/significance/engine.go
package significance

import (
	"context"
	"math"
	"sort"

	pipeerrors "epd-assistant/internal/common/errors"
	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/models"
)

// Store is the slice of the reference store the engine reads from.
type Store interface {
	GetProducts(ctx context.Context, ids []string) ([]models.Product, error)
	GetModuleAmounts(ctx context.Context, productID string) ([]models.ModuleAmount, error)
	GetCategoryStatistics(ctx context.Context, categoryPath []string) (map[models.StatKey]models.CategoryStatistic, error)
	GetIndicators(ctx context.Context, keys []string) ([]models.Indicator, error)
}

// IndicatorView is one indicator's values and significance for one product.
// Units are module-scoped; a value must never leave this struct without its
// module code.
type IndicatorView struct {
	Key          string
	Name         string
	Description  string
	Unit         string
	Selected     bool
	Modules      map[string]float64
	Significance map[string]models.IndicatorSignificance
}

// ProductView maps indicator keys to their views for one product.
type ProductView struct {
	ProductID  string
	Name       string
	Indicators map[string]*IndicatorView
}

// Result is keyed by product id. It is derived per request and never cached.
type Result map[string]*ProductView

// Engine computes which indicator values are statistically notable for a
// set of products, against the category-level aggregates. Caller-selected
// indicators are always included uncapped; everything else competes for at
// most maxResults slots per product, split between high and low outliers.
type Engine struct {
	store      Store
	maxResults int
	logger     logger.Logger
}

func New(st Store, maxResults int, log logger.Logger) *Engine {
	if maxResults <= 0 {
		maxResults = 8
	}
	return &Engine{
		store:      st,
		maxResults: maxResults,
		logger:     log.With(map[string]interface{}{"stage": "significance"}),
	}
}

// candidate is one scored (indicator, module) pair awaiting selection.
type candidate struct {
	indicatorKey string
	module       string
	unit         string
	sig          models.IndicatorSignificance
}

func (e *Engine) Compute(ctx context.Context, productIDs, selectedKeys []string) (Result, error) {
	products, err := e.store.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, pipeerrors.NewStoreQueryFailedError(err)
	}

	selected := make(map[string]struct{}, len(selectedKeys))
	for _, k := range selectedKeys {
		selected[k] = struct{}{}
	}

	result := make(Result, len(products))
	keysPresent := make(map[string]struct{})

	for _, product := range products {
		view, err := e.computeProduct(ctx, product, selected)
		if err != nil {
			return nil, err
		}
		result[product.ID] = view
		for key := range view.Indicators {
			keysPresent[key] = struct{}{}
		}
	}

	if err := e.attachMetadata(ctx, result, keysPresent); err != nil {
		return nil, err
	}

	return result, nil
}

func (e *Engine) computeProduct(ctx context.Context, product models.Product, selected map[string]struct{}) (*ProductView, error) {
	amounts, err := e.store.GetModuleAmounts(ctx, product.ID)
	if err != nil {
		return nil, pipeerrors.NewStoreQueryFailedError(err)
	}

	stats, err := e.store.GetCategoryStatistics(ctx, product.CategoryPath)
	if err != nil {
		return nil, pipeerrors.NewStoreQueryFailedError(err)
	}

	view := &ProductView{
		ProductID:  product.ID,
		Name:       product.Name,
		Indicators: make(map[string]*IndicatorView),
	}

	var candidates []candidate

	for _, ma := range amounts {
		if ma.Amount == nil {
			continue
		}
		value := *ma.Amount

		if _, isSelected := selected[ma.IndicatorKey]; isSelected {
			// Caller-selected indicators are included unfiltered and never
			// count against the cap.
			iv := view.indicator(ma.IndicatorKey, ma.Unit, true)
			iv.Modules[ma.Module] = value
			if sig, ok := score(value, stats, ma.IndicatorKey, ma.Module); ok {
				iv.Significance[ma.Module] = sig
			}
			continue
		}

		if value == 0 {
			continue
		}
		sig, ok := score(value, stats, ma.IndicatorKey, ma.Module)
		if !ok {
			// Missing statistic or unusable std-dev: no significance data,
			// silently skipped.
			continue
		}
		candidates = append(candidates, candidate{
			indicatorKey: ma.IndicatorKey,
			module:       ma.Module,
			unit:         ma.Unit,
			sig:          sig,
		})
	}

	for _, c := range pickOutliers(candidates, e.maxResults) {
		iv := view.indicator(c.indicatorKey, c.unit, false)
		iv.Modules[c.module] = c.sig.Value
		iv.Significance[c.module] = c.sig
	}

	return view, nil
}

// score computes the z-score and unclamped percentile-in-range for one
// value against its category statistic. Returns false when the statistic is
// absent or its std-dev is null or zero.
func score(value float64, stats map[models.StatKey]models.CategoryStatistic, indicatorKey, module string) (models.IndicatorSignificance, bool) {
	st, ok := stats[models.StatKey{IndicatorKey: indicatorKey, Module: module}]
	if !ok || st.StdDev == nil || *st.StdDev == 0 {
		return models.IndicatorSignificance{}, false
	}

	z := math.Abs(value-st.Mean) / *st.StdDev

	percentile := 0.5
	if span := st.Max - st.Min; span != 0 {
		// Deliberately unclamped: values outside the historical range map
		// outside [0,1].
		percentile = (value - st.Min) / span
	}

	direction := models.DirectionHigh
	if value < st.Mean {
		direction = models.DirectionLow
	}

	return models.IndicatorSignificance{
		IndicatorKey: indicatorKey,
		Module:       module,
		Value:        value,
		ZScore:       z,
		Percentile:   percentile,
		Direction:    direction,
	}, true
}

// pickOutliers balances high and low outliers: up to floor(max/2) from each
// side sorted by descending z-score, then backfills across both sides up to
// max. When both sides run dry first, fewer than max are returned.
func pickOutliers(candidates []candidate, max int) []candidate {
	var high, low []candidate
	for _, c := range candidates {
		switch c.sig.Direction {
		case models.DirectionHigh:
			high = append(high, c)
		case models.DirectionLow:
			low = append(low, c)
		}
	}
	sortByScore(high)
	sortByScore(low)

	half := max / 2
	picked := make([]candidate, 0, max)
	picked = append(picked, take(high, half)...)
	picked = append(picked, take(low, half)...)

	if len(picked) < max {
		rest := append(drop(high, half), drop(low, half)...)
		sortByScore(rest)
		picked = append(picked, take(rest, max-len(picked))...)
	}

	// Stable presentation order regardless of which partition supplied the
	// entry.
	sort.Slice(picked, func(a, b int) bool {
		if picked[a].indicatorKey != picked[b].indicatorKey {
			return picked[a].indicatorKey < picked[b].indicatorKey
		}
		return picked[a].module < picked[b].module
	})
	return picked
}

func sortByScore(cs []candidate) {
	sort.Slice(cs, func(a, b int) bool {
		if cs[a].sig.ZScore != cs[b].sig.ZScore {
			return cs[a].sig.ZScore > cs[b].sig.ZScore
		}
		if cs[a].indicatorKey != cs[b].indicatorKey {
			return cs[a].indicatorKey < cs[b].indicatorKey
		}
		return cs[a].module < cs[b].module
	})
}

func take(cs []candidate, n int) []candidate {
	if n > len(cs) {
		n = len(cs)
	}
	return cs[:n]
}

func drop(cs []candidate, n int) []candidate {
	if n > len(cs) {
		return nil
	}
	out := make([]candidate, len(cs)-n)
	copy(out, cs[n:])
	return out
}

func (v *ProductView) indicator(key, unit string, selected bool) *IndicatorView {
	iv, ok := v.Indicators[key]
	if !ok {
		iv = &IndicatorView{
			Key:          key,
			Unit:         unit,
			Selected:     selected,
			Modules:      make(map[string]float64),
			Significance: make(map[string]models.IndicatorSignificance),
		}
		v.Indicators[key] = iv
	}
	return iv
}

// attachMetadata resolves display names and descriptions for every
// indicator key present in the result. Keys without metadata keep their
// raw key as the display name.
func (e *Engine) attachMetadata(ctx context.Context, result Result, keysPresent map[string]struct{}) error {
	if len(keysPresent) == 0 {
		return nil
	}

	keys := make([]string, 0, len(keysPresent))
	for k := range keysPresent {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	indicators, err := e.store.GetIndicators(ctx, keys)
	if err != nil {
		return pipeerrors.NewStoreQueryFailedError(err)
	}

	meta := make(map[string]models.Indicator, len(indicators))
	for _, ind := range indicators {
		meta[ind.Key] = ind
	}

	for _, view := range result {
		for key, iv := range view.Indicators {
			if ind, ok := meta[key]; ok {
				iv.Name = ind.Name
				iv.Description = ind.ShortDescription
			} else {
				iv.Name = key
			}
		}
	}
	return nil
}
