package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetProfit_ReferenceExample(t *testing.T) {
	// listing 1000, referencia 1500, fee 13.04% → revenue 1304.4
	revenue := NetReferenceRevenue(1500, 0.1304)
	assert.InDelta(t, 1304.4, revenue, 0.001)

	profit := NetProfit(1000, 1500, 0.1304)
	assert.InDelta(t, 304.4, profit, 0.001)

	pct := NetProfitPercent(1000, 1500, 0.1304)
	assert.InDelta(t, 30.44, pct, 0.001)
}

func TestNetProfitPercent_InvalidPrice(t *testing.T) {
	assert.Equal(t, 0.0, NetProfitPercent(0, 1500, 0.13))
	assert.Equal(t, 0.0, NetProfitPercent(-100, 1500, 0.13))
}

func TestZScore_Symmetry(t *testing.T) {
	mean, std := 1000.0, 100.0

	// μ+3σ y μ−3σ quedan ambos fuera del umbral 2.0
	high := ZScore(mean+3*std, mean, std)
	low := ZScore(mean-3*std, mean, std)
	assert.InDelta(t, 3.0, high, 0.001)
	assert.InDelta(t, -3.0, low, 0.001)
	assert.Greater(t, math.Abs(high), 2.0)
	assert.Greater(t, math.Abs(low), 2.0)

	// El precio en la media se acepta
	assert.Equal(t, 0.0, ZScore(mean, mean, std))
}

func TestZScore_ZeroStdDev(t *testing.T) {
	assert.Equal(t, 0.0, ZScore(1500, 1000, 0))
}

func TestLiquidityScore(t *testing.T) {
	// más volumen con la misma cola → mejor score
	assert.Greater(t, LiquidityScore(200, 50), LiquidityScore(100, 50))
	// más cola con el mismo volumen → peor score
	assert.Greater(t, LiquidityScore(100, 10), LiquidityScore(100, 500))
	assert.Equal(t, 0.0, LiquidityScore(0, 100))
}

func TestTimeToSellDays(t *testing.T) {
	assert.InDelta(t, 2.0, TimeToSellDays(50, 100), 0.001)
	assert.True(t, math.IsInf(TimeToSellDays(0, 100), 1))
}

func TestClassifyLiquidity(t *testing.T) {
	assert.Equal(t, LiquidityHigh, ClassifyLiquidity(250))
	assert.Equal(t, LiquidityHigh, ClassifyLiquidity(200))
	assert.Equal(t, LiquidityMedium, ClassifyLiquidity(150))
	assert.Equal(t, LiquidityLow, ClassifyLiquidity(60))
	assert.Equal(t, LiquidityAtRisk, ClassifyLiquidity(10))
}

func TestSalesStats_GoodPointsPercent(t *testing.T) {
	stats := SalesStats{
		Points: []PricePoint{
			{Price: 1200, Volume: 40},
			{Price: 1100, Volume: 40},
			{Price: 900, Volume: 20},
		},
		Volume: 100,
	}
	// 80 de 100 unidades vendidas por encima de 1000
	assert.InDelta(t, 80.0, stats.GoodPointsPercent(1000), 0.001)
	assert.Equal(t, 0.0, SalesStats{}.GoodPointsPercent(1000))
}

func TestScanStatistics_Consistency(t *testing.T) {
	s := NewScanStatistics()
	s.TotalEvaluated = 10
	s.Passed = 4
	s.FailedByReason[ReasonPriceFloor] = 3
	s.FailedByReason[ReasonOutlier] = 2
	s.SkippedNoData = 1

	assert.True(t, s.Consistent())
	assert.Equal(t, 5, s.Failed())
	assert.InDelta(t, 0.4, s.PassRate(), 0.001)

	s.SkippedNoData = 2
	assert.False(t, s.Consistent())
}
