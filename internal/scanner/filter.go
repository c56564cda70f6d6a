package scanner

// filter.go — pipeline de filtrado por etapas, en orden fijo de más barata
// y decisiva a más cara. Corta en el primer fallo: las etapas posteriores
// no se evalúan ni cuentan nada.

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alejandrodnm/flipbot/internal/cache"
	"github.com/alejandrodnm/flipbot/internal/domain"
	"github.com/alejandrodnm/flipbot/internal/ports"
)

// Nombres de etapa para el filter trace y los logs.
const (
	stageCategory     = "category"
	stagePriceFloor   = "price_floor"
	stageSalesHistory = "sales_history"
	stageOutlier      = "outlier"
	stageLiquidity    = "liquidity"
)

// FilterConfig contiene los umbrales de las etapas. Se valida una vez al
// cargar la configuración; las etapas no re-comprueban nada.
type FilterConfig struct {
	// DenyCategories rechaza listings cuyo tipo o catalog key contenga
	// alguno de estos patrones.
	DenyCategories []string
	// AllowCategories es solo informacional: un match se anota en el
	// detail del resultado, nunca rechaza.
	AllowCategories []string
	// PriceFloor descarta listings por debajo de este precio (céntimos).
	PriceFloor int64
	// MinSalesVolume es el mínimo de unidades vendidas en la ventana.
	MinSalesVolume int
	// MinAvgPrice es la media histórica mínima (céntimos).
	MinAvgPrice float64
	// BoostPercent es el techo del precio actual sobre la media histórica.
	BoostPercent float64
	// GoodPointsPercent es el % mínimo de ventas históricas rentables.
	GoodPointsPercent float64
	// OutlierThreshold es el |z-score| máximo aceptado, en ambas colas.
	OutlierThreshold float64
	// MinLiquidityScore descarta ítems difíciles de revender.
	MinLiquidityScore float64
	// MaxTimeToSellDays descarta ítems con demasiada cola de ofertas.
	MaxTimeToSellDays float64
}

// DefaultFilterConfig devuelve una configuración de filtrado conservadora.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinSalesVolume:    30,
		GoodPointsPercent: 80,
		BoostPercent:      10,
		OutlierThreshold:  2.0,
		MaxTimeToSellDays: 7,
	}
}

// Pipeline evalúa las etapas de filtrado sobre cada listing. La historia de
// ventas se resuelve a través del cache TTL compartido, así que listings del
// mismo catalog key no repiten el lookup.
type Pipeline struct {
	cfg        FilterConfig
	history    ports.HistoryProvider
	cache      *cache.Cache[domain.SalesStats]
	historyTTL time.Duration
}

// NewPipeline crea un Pipeline con la configuración dada.
func NewPipeline(cfg FilterConfig, history ports.HistoryProvider, c *cache.Cache[domain.SalesStats], historyTTL time.Duration) *Pipeline {
	return &Pipeline{cfg: cfg, history: history, cache: c, historyTTL: historyTTL}
}

// Evaluate ejecuta las etapas en orden y devuelve el trace completo hasta el
// primer fallo (o las cinco etapas si pasa). Re-evaluar un listing sin
// cambios produce exactamente la misma secuencia.
//
// Un fallo al resolver la historia de ventas devuelve error envolviendo
// domain.ErrInsufficientData: el listing se excluye del ciclo, no se rechaza.
func (p *Pipeline) Evaluate(ctx context.Context, catalog string, listing domain.MarketListing) ([]domain.FilterResult, domain.SalesStats, error) {
	trace := make([]domain.FilterResult, 0, 5)

	res := p.categoryStage(listing)
	trace = append(trace, res)
	if !res.Passed {
		return trace, domain.SalesStats{}, nil
	}

	res = p.priceFloorStage(listing)
	trace = append(trace, res)
	if !res.Passed {
		return trace, domain.SalesStats{}, nil
	}

	// Las tres etapas restantes comparten la misma historia de ventas.
	stats, err := p.salesStats(ctx, catalog, listing.CatalogKey)
	if err != nil {
		return trace, domain.SalesStats{}, fmt.Errorf(
			"pipeline: sales history for %q: %w: %w",
			listing.CatalogKey, domain.ErrInsufficientData, err)
	}

	res = p.salesHistoryStage(listing, stats)
	trace = append(trace, res)
	if !res.Passed {
		return trace, stats, nil
	}

	res = p.outlierStage(listing, stats)
	trace = append(trace, res)
	if !res.Passed {
		return trace, stats, nil
	}

	res = p.liquidityStage(listing, stats)
	trace = append(trace, res)
	return trace, stats, nil
}

// ClearCache vacía el cache de historia de ventas.
func (p *Pipeline) ClearCache() {
	p.cache.Clear()
}

func (p *Pipeline) salesStats(ctx context.Context, catalog, catalogKey string) (domain.SalesStats, error) {
	return p.cache.GetOrFetch(ctx, catalogKey, p.historyTTL, func(ctx context.Context) (domain.SalesStats, error) {
		return p.history.FetchSalesStats(ctx, catalog, catalogKey)
	})
}

// categoryStage rechaza por deny-pattern; un allow-pattern solo se anota.
func (p *Pipeline) categoryStage(listing domain.MarketListing) domain.FilterResult {
	subject := strings.ToLower(listing.CatalogKey + " " + listing.Attributes["type"])

	for _, pattern := range p.cfg.DenyCategories {
		if strings.Contains(subject, strings.ToLower(pattern)) {
			return domain.Fail(stageCategory, domain.ReasonCategory,
				fmt.Sprintf("deny pattern %q", pattern))
		}
	}
	for _, pattern := range p.cfg.AllowCategories {
		if strings.Contains(subject, strings.ToLower(pattern)) {
			return domain.Pass(stageCategory, fmt.Sprintf("allow pattern %q", pattern))
		}
	}
	return domain.Pass(stageCategory, "")
}

func (p *Pipeline) priceFloorStage(listing domain.MarketListing) domain.FilterResult {
	if listing.Price < p.cfg.PriceFloor {
		return domain.Fail(stagePriceFloor, domain.ReasonPriceFloor,
			fmt.Sprintf("price %d < floor %d", listing.Price, p.cfg.PriceFloor))
	}
	return domain.Pass(stagePriceFloor, "")
}

func (p *Pipeline) salesHistoryStage(listing domain.MarketListing, stats domain.SalesStats) domain.FilterResult {
	if stats.Volume < p.cfg.MinSalesVolume {
		return domain.Fail(stageSalesHistory, domain.ReasonSalesHistory,
			fmt.Sprintf("volume %d < %d", stats.Volume, p.cfg.MinSalesVolume))
	}
	if stats.AvgPrice < p.cfg.MinAvgPrice {
		return domain.Fail(stageSalesHistory, domain.ReasonSalesHistory,
			fmt.Sprintf("avg price %.0f < %.0f", stats.AvgPrice, p.cfg.MinAvgPrice))
	}
	ceiling := stats.AvgPrice * (1 + p.cfg.BoostPercent/100)
	if float64(listing.Price) > ceiling {
		return domain.Fail(stageSalesHistory, domain.ReasonSalesHistory,
			fmt.Sprintf("price %d above boost ceiling %.0f", listing.Price, ceiling))
	}
	if good := stats.GoodPointsPercent(float64(listing.Price)); good < p.cfg.GoodPointsPercent {
		return domain.Fail(stageSalesHistory, domain.ReasonSalesHistory,
			fmt.Sprintf("good points %.1f%% < %.1f%%", good, p.cfg.GoodPointsPercent))
	}
	return domain.Pass(stageSalesHistory, "")
}

// outlierStage rechaza ambas colas: caro (sobreprecio) y barato (listing
// probablemente roto o stale).
func (p *Pipeline) outlierStage(listing domain.MarketListing, stats domain.SalesStats) domain.FilterResult {
	z := domain.ZScore(float64(listing.Price), stats.AvgPrice, stats.StdDev)
	if math.Abs(z) > p.cfg.OutlierThreshold {
		return domain.Fail(stageOutlier, domain.ReasonOutlier,
			fmt.Sprintf("z-score %.2f exceeds %.2f", z, p.cfg.OutlierThreshold))
	}
	return domain.Pass(stageOutlier, fmt.Sprintf("z-score %.2f", z))
}

func (p *Pipeline) liquidityStage(listing domain.MarketListing, stats domain.SalesStats) domain.FilterResult {
	if listing.Quantity == 0 {
		return domain.Fail(stageLiquidity, domain.ReasonLiquidity, "zero competing offers")
	}

	dailyVol := stats.DailyVolume()
	if tts := domain.TimeToSellDays(dailyVol, listing.Quantity); tts > p.cfg.MaxTimeToSellDays {
		return domain.Fail(stageLiquidity, domain.ReasonLiquidity,
			fmt.Sprintf("time to sell %.1fd > %.1fd", tts, p.cfg.MaxTimeToSellDays))
	}

	score := domain.LiquidityScore(dailyVol, listing.Quantity)
	if score < p.cfg.MinLiquidityScore {
		return domain.Fail(stageLiquidity, domain.ReasonLiquidity,
			fmt.Sprintf("liquidity score %.2f < %.2f", score, p.cfg.MinLiquidityScore))
	}
	return domain.Pass(stageLiquidity, fmt.Sprintf("score %.2f", score))
}
