package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/flipbot/internal/cache"
	"github.com/alejandrodnm/flipbot/internal/domain"
)

// mockHistory sirve SalesStats fijas por catalog key y cuenta los fetches.
type mockHistory struct {
	stats map[string]domain.SalesStats
	err   error
	calls int
}

func (m *mockHistory) FetchSalesStats(_ context.Context, _, catalogKey string) (domain.SalesStats, error) {
	m.calls++
	if m.err != nil {
		return domain.SalesStats{}, m.err
	}
	s, ok := m.stats[catalogKey]
	if !ok {
		return domain.SalesStats{}, fmt.Errorf("no stats for %q", catalogKey)
	}
	return s, nil
}

// statsWith construye SalesStats con un único punto en avg cubriendo todo el
// volumen, de modo que GoodPointsPercent sea 100% para precios < avg.
func statsWith(volume int, avg, std float64) domain.SalesStats {
	return domain.SalesStats{
		Points:   []domain.PricePoint{{Price: avg, Volume: volume}},
		Volume:   volume,
		AvgPrice: avg,
		StdDev:   std,
		Window:   7 * 24 * time.Hour,
	}
}

func makeListing(id, key string, price int64, quantity int) domain.MarketListing {
	return domain.MarketListing{
		ID:         id,
		CatalogKey: key,
		Price:      price,
		Quantity:   quantity,
		Attributes: map[string]string{"type": "Classified Rifle"},
		FetchedAt:  time.Now().UTC(),
	}
}

func newTestPipeline(cfg FilterConfig, history *mockHistory) *Pipeline {
	return NewPipeline(cfg, history, cache.New[domain.SalesStats](), time.Hour)
}

func TestPipeline_CategoryDenyShortCircuits(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.DenyCategories = []string{"souvenir"}

	history := &mockHistory{}
	p := newTestPipeline(cfg, history)

	listing := makeListing("1", "Souvenir AWP | Safari Mesh", 500, 10)
	trace, _, err := p.Evaluate(context.Background(), "730", listing)

	require.NoError(t, err)
	require.Len(t, trace, 1, "corta en la primera etapa")
	assert.False(t, trace[0].Passed)
	assert.Equal(t, domain.ReasonCategory, trace[0].Reason)
	assert.Equal(t, 0, history.calls, "las etapas posteriores no se ejecutan")
}

func TestPipeline_AllowPatternIsInformational(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.AllowCategories = []string{"rifle"}
	cfg.MinSalesVolume = 1

	history := &mockHistory{stats: map[string]domain.SalesStats{
		"AK-47 | Redline (Field-Tested)": statsWith(100, 1100, 50),
	}}
	p := newTestPipeline(cfg, history)

	listing := makeListing("1", "AK-47 | Redline (Field-Tested)", 1000, 50)
	trace, _, err := p.Evaluate(context.Background(), "730", listing)

	require.NoError(t, err)
	require.Len(t, trace, 5)
	assert.True(t, trace[0].Passed)
	assert.Contains(t, trace[0].Detail, "allow pattern")
	for _, res := range trace {
		assert.True(t, res.Passed)
	}
}

func TestPipeline_PriceFloor(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.PriceFloor = 1000

	history := &mockHistory{}
	p := newTestPipeline(cfg, history)

	trace, _, err := p.Evaluate(context.Background(), "730", makeListing("1", "Glove Case", 80, 10))
	require.NoError(t, err)
	require.Len(t, trace, 2)
	assert.Equal(t, domain.ReasonPriceFloor, trace[1].Reason)
	assert.Equal(t, 0, history.calls)
}

func TestPipeline_SalesHistoryRejections(t *testing.T) {
	base := DefaultFilterConfig()
	base.MinSalesVolume = 30
	base.MinAvgPrice = 500
	base.BoostPercent = 10
	base.GoodPointsPercent = 80

	cases := []struct {
		name   string
		stats  domain.SalesStats
		price  int64
		detail string
	}{
		{"low volume", statsWith(10, 1100, 50), 1000, "volume"},
		{"low avg price", statsWith(100, 400, 20), 300, "avg price"},
		{"boost ceiling", statsWith(100, 1000, 50), 1200, "boost ceiling"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			history := &mockHistory{stats: map[string]domain.SalesStats{"item": tc.stats}}
			p := newTestPipeline(base, history)

			trace, _, err := p.Evaluate(context.Background(), "730", makeListing("1", "item", tc.price, 10))
			require.NoError(t, err)
			last := trace[len(trace)-1]
			assert.False(t, last.Passed)
			assert.Equal(t, domain.ReasonSalesHistory, last.Reason)
			assert.Contains(t, last.Detail, tc.detail)
		})
	}
}

func TestPipeline_GoodPointsShare(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinSalesVolume = 10
	cfg.BoostPercent = 100

	// Solo el 50% del volumen se vendió por encima de 1000
	stats := domain.SalesStats{
		Points: []domain.PricePoint{
			{Price: 1200, Volume: 50},
			{Price: 800, Volume: 50},
		},
		Volume:   100,
		AvgPrice: 1000,
		StdDev:   200,
		Window:   7 * 24 * time.Hour,
	}
	history := &mockHistory{stats: map[string]domain.SalesStats{"item": stats}}
	p := newTestPipeline(cfg, history)

	trace, _, err := p.Evaluate(context.Background(), "730", makeListing("1", "item", 1000, 10))
	require.NoError(t, err)
	last := trace[len(trace)-1]
	assert.Equal(t, domain.ReasonSalesHistory, last.Reason)
	assert.Contains(t, last.Detail, "good points")
}

func TestOutlierStage_Symmetry(t *testing.T) {
	p := newTestPipeline(DefaultFilterConfig(), &mockHistory{})
	stats := domain.SalesStats{AvgPrice: 1000, StdDev: 100}

	// μ+3σ y μ−3σ se rechazan ambos con umbral 2.0
	high := p.outlierStage(makeListing("1", "item", 1300, 10), stats)
	assert.False(t, high.Passed)
	assert.Equal(t, domain.ReasonOutlier, high.Reason)

	low := p.outlierStage(makeListing("1", "item", 700, 10), stats)
	assert.False(t, low.Passed)
	assert.Equal(t, domain.ReasonOutlier, low.Reason)

	mid := p.outlierStage(makeListing("1", "item", 1000, 10), stats)
	assert.True(t, mid.Passed)
}

func TestLiquidityStage(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinLiquidityScore = 5
	cfg.MaxTimeToSellDays = 7
	p := newTestPipeline(cfg, &mockHistory{})

	stats := statsWith(700, 1000, 50) // 100 ventas/día

	// Cero ofertas competidoras → rechazo
	res := p.liquidityStage(makeListing("1", "item", 1000, 0), stats)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Detail, "zero competing offers")

	// Demasiada cola: 1400 ofertas / 100 ventas/día = 14 días
	res = p.liquidityStage(makeListing("1", "item", 1000, 1400), stats)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Detail, "time to sell")

	// Liquidez sana
	res = p.liquidityStage(makeListing("1", "item", 1000, 100), stats)
	assert.True(t, res.Passed)
}

func TestPipeline_HistoryErrorIsInsufficientData(t *testing.T) {
	history := &mockHistory{err: errors.New("upstream down")}
	p := newTestPipeline(DefaultFilterConfig(), history)

	trace, _, err := p.Evaluate(context.Background(), "730", makeListing("1", "item", 1000, 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientData))
	// Las dos primeras etapas sí se evaluaron
	assert.Len(t, trace, 2)
}

func TestPipeline_Idempotence(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinSalesVolume = 1
	history := &mockHistory{stats: map[string]domain.SalesStats{
		"item": statsWith(100, 1050, 40),
	}}
	p := newTestPipeline(cfg, history)
	listing := makeListing("1", "item", 1000, 50)

	first, _, err := p.Evaluate(context.Background(), "730", listing)
	require.NoError(t, err)
	second, _, err := p.Evaluate(context.Background(), "730", listing)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-evaluar un listing sin cambios da el mismo trace")
}

func TestPipeline_HistoryCachedAcrossListings(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinSalesVolume = 1
	history := &mockHistory{stats: map[string]domain.SalesStats{
		"item": statsWith(100, 1050, 40),
	}}
	p := newTestPipeline(cfg, history)

	// Dos listings del mismo catalog key → un solo fetch de historia
	_, _, err := p.Evaluate(context.Background(), "730", makeListing("1", "item", 1000, 50))
	require.NoError(t, err)
	_, _, err = p.Evaluate(context.Background(), "730", makeListing("2", "item", 1020, 50))
	require.NoError(t, err)

	assert.Equal(t, 1, history.calls)
}
