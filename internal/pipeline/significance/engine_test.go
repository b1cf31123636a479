// internal/pipeline/significance/engine_test.go
package significance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "epd-assistant/internal/common/errors"
	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/models"
)

type fakeStore struct {
	products   []models.Product
	amounts    map[string][]models.ModuleAmount
	stats      map[string]map[models.StatKey]models.CategoryStatistic
	indicators []models.Indicator

	productsErr error
	amountsErr  error
	statsErr    error
}

func (f *fakeStore) GetProducts(_ context.Context, ids []string) ([]models.Product, error) {
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	var out []models.Product
	for _, p := range f.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetModuleAmounts(_ context.Context, productID string) ([]models.ModuleAmount, error) {
	if f.amountsErr != nil {
		return nil, f.amountsErr
	}
	return f.amounts[productID], nil
}

func (f *fakeStore) GetCategoryStatistics(_ context.Context, categoryPath []string) (map[models.StatKey]models.CategoryStatistic, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats[strings.Join(categoryPath, "/")], nil
}

func (f *fakeStore) GetIndicators(_ context.Context, keys []string) ([]models.Indicator, error) {
	var out []models.Indicator
	for _, ind := range f.indicators {
		for _, k := range keys {
			if ind.Key == k {
				out = append(out, ind)
			}
		}
	}
	return out, nil
}

func f64(v float64) *float64 { return &v }

func amount(key, module string, v float64) models.ModuleAmount {
	return models.ModuleAmount{IndicatorKey: key, Module: module, Amount: f64(v), Unit: "kg CO2 eq"}
}

func stat(mean, std, min, max float64) models.CategoryStatistic {
	return models.CategoryStatistic{Mean: mean, StdDev: f64(std), Min: min, Max: max, Unit: "kg CO2 eq", SampleCount: 40}
}

func TestComputeScoresOutlier(t *testing.T) {
	st := &fakeStore{
		products: []models.Product{{ID: "P1", Name: "Board", CategoryPath: []string{"insulation", "boards"}}},
		amounts: map[string][]models.ModuleAmount{
			"P1": {amount("GWP-fossil", "A1-A3", 25.4)},
		},
		stats: map[string]map[models.StatKey]models.CategoryStatistic{
			"insulation/boards": {
				{IndicatorKey: "GWP-fossil", Module: "A1-A3"}: stat(10, 5, 2, 30),
			},
		},
	}
	engine := New(st, 8, logger.NewTestLogger(t))

	result, err := engine.Compute(context.Background(), []string{"P1"}, nil)
	require.NoError(t, err)

	iv := result["P1"].Indicators["GWP-fossil"]
	require.NotNil(t, iv)
	sig := iv.Significance["A1-A3"]
	assert.InDelta(t, 3.08, sig.ZScore, 0.001)
	assert.Equal(t, models.DirectionHigh, sig.Direction)
	assert.InDelta(t, (25.4-2)/28.0, sig.Percentile, 1e-9)
	assert.Equal(t, 25.4, iv.Modules["A1-A3"])
}

func TestPercentileUnclampedAndZeroSpan(t *testing.T) {
	st := &fakeStore{
		products: []models.Product{{ID: "P1", CategoryPath: []string{"c"}}},
		amounts: map[string][]models.ModuleAmount{
			"P1": {
				amount("above-range", "A1-A3", 50),
				amount("flat-range", "A1-A3", 7),
			},
		},
		stats: map[string]map[models.StatKey]models.CategoryStatistic{
			"c": {
				{IndicatorKey: "above-range", Module: "A1-A3"}: stat(10, 5, 2, 30),
				{IndicatorKey: "flat-range", Module: "A1-A3"}:  stat(5, 1, 4, 4),
			},
		},
	}
	engine := New(st, 8, logger.NewTestLogger(t))

	result, err := engine.Compute(context.Background(), []string{"P1"}, nil)
	require.NoError(t, err)

	above := result["P1"].Indicators["above-range"].Significance["A1-A3"]
	assert.Greater(t, above.Percentile, 1.0)

	flat := result["P1"].Indicators["flat-range"].Significance["A1-A3"]
	assert.Equal(t, 0.5, flat.Percentile)
}

func TestSelectedIndicatorsAlwaysIncluded(t *testing.T) {
	// No statistics at all: nothing qualifies as an outlier, but every
	// module amount of the selected indicator still comes through.
	st := &fakeStore{
		products: []models.Product{{ID: "P1", CategoryPath: []string{"c"}}},
		amounts: map[string][]models.ModuleAmount{
			"P1": {
				amount("GWP-fossil", "A1-A3", 12.5),
				amount("GWP-fossil", "C3", 0),
				amount("ODP", "A1-A3", 3),
			},
		},
	}
	engine := New(st, 8, logger.NewTestLogger(t))

	result, err := engine.Compute(context.Background(), []string{"P1"}, []string{"GWP-fossil"})
	require.NoError(t, err)

	view := result["P1"]
	require.Contains(t, view.Indicators, "GWP-fossil")
	iv := view.Indicators["GWP-fossil"]
	assert.True(t, iv.Selected)
	assert.Equal(t, 12.5, iv.Modules["A1-A3"])
	assert.Equal(t, 0.0, iv.Modules["C3"])
	assert.Empty(t, iv.Significance)

	// ODP had no statistic, so it never became a candidate.
	assert.NotContains(t, view.Indicators, "ODP")
}

func TestCapSplitsHighAndLow(t *testing.T) {
	stats := map[models.StatKey]models.CategoryStatistic{}
	var amounts []models.ModuleAmount
	// Three high outliers (h1 strongest) and three low outliers (l1
	// strongest), all over the same statistic shape.
	for _, c := range []struct {
		key   string
		value float64
	}{
		{"h1", 40}, {"h2", 35}, {"h3", 30},
		{"l1", -20}, {"l2", -15}, {"l3", -10},
	} {
		amounts = append(amounts, amount(c.key, "A1-A3", c.value))
		stats[models.StatKey{IndicatorKey: c.key, Module: "A1-A3"}] = stat(10, 5, 0, 50)
	}
	st := &fakeStore{
		products: []models.Product{{ID: "P1", CategoryPath: []string{"c"}}},
		amounts:  map[string][]models.ModuleAmount{"P1": amounts},
		stats:    map[string]map[models.StatKey]models.CategoryStatistic{"c": stats},
	}
	engine := New(st, 4, logger.NewTestLogger(t))

	result, err := engine.Compute(context.Background(), []string{"P1"}, nil)
	require.NoError(t, err)

	view := result["P1"]
	require.Len(t, view.Indicators, 4)
	assert.Contains(t, view.Indicators, "h1")
	assert.Contains(t, view.Indicators, "h2")
	assert.Contains(t, view.Indicators, "l1")
	assert.Contains(t, view.Indicators, "l2")
}

func TestCapBackfillsWhenOneSideRunsDry(t *testing.T) {
	stats := map[models.StatKey]models.CategoryStatistic{}
	var amounts []models.ModuleAmount
	for _, c := range []struct {
		key   string
		value float64
	}{
		{"h1", 40}, {"h2", 35}, {"h3", 30}, {"h4", 28}, {"h5", 26},
	} {
		amounts = append(amounts, amount(c.key, "A1-A3", c.value))
		stats[models.StatKey{IndicatorKey: c.key, Module: "A1-A3"}] = stat(10, 5, 0, 50)
	}
	st := &fakeStore{
		products: []models.Product{{ID: "P1", CategoryPath: []string{"c"}}},
		amounts:  map[string][]models.ModuleAmount{"P1": amounts},
		stats:    map[string]map[models.StatKey]models.CategoryStatistic{"c": stats},
	}
	engine := New(st, 4, logger.NewTestLogger(t))

	result, err := engine.Compute(context.Background(), []string{"P1"}, nil)
	require.NoError(t, err)

	view := result["P1"]
	require.Len(t, view.Indicators, 4)
	for _, key := range []string{"h1", "h2", "h3", "h4"} {
		assert.Contains(t, view.Indicators, key)
	}
	assert.NotContains(t, view.Indicators, "h5")
}

func TestSkipsNullZeroAndUnstatisticized(t *testing.T) {
	st := &fakeStore{
		products: []models.Product{{ID: "P1", CategoryPath: []string{"c"}}},
		amounts: map[string][]models.ModuleAmount{
			"P1": {
				{IndicatorKey: "null-amount", Module: "A1-A3", Amount: nil},
				amount("zero-amount", "A1-A3", 0),
				amount("no-stat", "A1-A3", 99),
				amount("zero-stddev", "A1-A3", 99),
				amount("null-stddev", "A1-A3", 99),
			},
		},
		stats: map[string]map[models.StatKey]models.CategoryStatistic{
			"c": {
				{IndicatorKey: "zero-stddev", Module: "A1-A3"}: {Mean: 10, StdDev: f64(0), Min: 0, Max: 50},
				{IndicatorKey: "null-stddev", Module: "A1-A3"}: {Mean: 10, StdDev: nil, Min: 0, Max: 50},
			},
		},
	}
	engine := New(st, 8, logger.NewTestLogger(t))

	result, err := engine.Compute(context.Background(), []string{"P1"}, nil)
	require.NoError(t, err)
	assert.Empty(t, result["P1"].Indicators)
}

func TestProductWithoutStatisticsIsNotAnError(t *testing.T) {
	st := &fakeStore{
		products: []models.Product{{ID: "P1", CategoryPath: []string{"uncovered"}}},
		amounts: map[string][]models.ModuleAmount{
			"P1": {amount("GWP-fossil", "A1-A3", 12)},
		},
	}
	engine := New(st, 8, logger.NewTestLogger(t))

	result, err := engine.Compute(context.Background(), []string{"P1"}, nil)
	require.NoError(t, err)
	require.Contains(t, result, "P1")
	assert.Empty(t, result["P1"].Indicators)
}

func TestStoreFailureIsCapabilityError(t *testing.T) {
	st := &fakeStore{
		products:   []models.Product{{ID: "P1", CategoryPath: []string{"c"}}},
		amountsErr: errors.New("connection reset"),
	}
	engine := New(st, 8, logger.NewTestLogger(t))

	_, err := engine.Compute(context.Background(), []string{"P1"}, nil)
	require.Error(t, err)
	assert.True(t, pipeerrors.IsCapability(err))
	assert.Equal(t, string(pipeerrors.ErrCodeStoreQueryFailed), pipeerrors.CodeOf(err))
}

func TestMetadataAttached(t *testing.T) {
	st := &fakeStore{
		products: []models.Product{{ID: "P1", CategoryPath: []string{"c"}}},
		amounts: map[string][]models.ModuleAmount{
			"P1": {amount("GWP-fossil", "A1-A3", 25)},
		},
		stats: map[string]map[models.StatKey]models.CategoryStatistic{
			"c": {{IndicatorKey: "GWP-fossil", Module: "A1-A3"}: stat(10, 5, 0, 30)},
		},
		indicators: []models.Indicator{
			{Key: "GWP-fossil", Name: "Global Warming Potential (fossil)", ShortDescription: "Greenhouse gas emissions from fossil sources.", Unit: "kg CO2 eq"},
		},
	}
	engine := New(st, 8, logger.NewTestLogger(t))

	result, err := engine.Compute(context.Background(), []string{"P1"}, nil)
	require.NoError(t, err)

	iv := result["P1"].Indicators["GWP-fossil"]
	assert.Equal(t, "Global Warming Potential (fossil)", iv.Name)
	assert.Equal(t, "Greenhouse gas emissions from fossil sources.", iv.Description)
}

func TestComputeIsDeterministic(t *testing.T) {
	stats := map[models.StatKey]models.CategoryStatistic{}
	var amounts []models.ModuleAmount
	for _, c := range []struct {
		key   string
		value float64
	}{
		{"a", 40}, {"b", 40}, {"c", 40}, {"d", -20}, {"e", -20},
	} {
		amounts = append(amounts, amount(c.key, "A1-A3", c.value))
		stats[models.StatKey{IndicatorKey: c.key, Module: "A1-A3"}] = stat(10, 5, 0, 50)
	}
	st := &fakeStore{
		products: []models.Product{{ID: "P1", CategoryPath: []string{"c"}}, {ID: "P2", CategoryPath: []string{"c"}}},
		amounts:  map[string][]models.ModuleAmount{"P1": amounts, "P2": amounts},
		stats:    map[string]map[models.StatKey]models.CategoryStatistic{"c": stats},
	}
	engine := New(st, 4, logger.NewTestLogger(t))

	first, err := engine.Compute(context.Background(), []string{"P1", "P2"}, nil)
	require.NoError(t, err)
	second, err := engine.Compute(context.Background(), []string{"P1", "P2"}, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// Both products share the same amounts and statistics, so the same
	// indicators must be picked for each.
	assert.Equal(t, first["P1"].Indicators, first["P2"].Indicators)
}
