package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/flipbot/internal/cache"
	"github.com/alejandrodnm/flipbot/internal/domain"
	"github.com/alejandrodnm/flipbot/internal/ports"
)

// ReferenceConfig parametriza el cross-reference contra la fuente secundaria.
type ReferenceConfig struct {
	FeeRate         float64 // fee de la fuente de referencia
	MinProfitMargin float64 // % mínimo de margen neto
	MinDailyVolume  int     // ventas/día mínimas en la referencia
}

// Enhancer resuelve el precio de referencia de cada listing superviviente y
// calcula las métricas de la Opportunity. El precio se resuelve a través del
// cache TTL compartido sobre el fetch client rate-limited.
type Enhancer struct {
	prices   ports.PriceProvider
	cache    *cache.Cache[domain.PriceSample]
	priceTTL time.Duration
	cfg      ReferenceConfig
}

// NewEnhancer crea un Enhancer con la configuración dada.
func NewEnhancer(cfg ReferenceConfig, prices ports.PriceProvider, c *cache.Cache[domain.PriceSample], priceTTL time.Duration) *Enhancer {
	return &Enhancer{prices: prices, cache: c, priceTTL: priceTTL, cfg: cfg}
}

// Enhance construye la Opportunity de un listing que pasó todos los filtros.
// Devuelve ok=false sin error cuando el margen o el volumen de referencia no
// alcanzan el mínimo (rechazo normal). Un fallo upstream o el cooldown
// activo devuelven error envolviendo domain.ErrInsufficientData: el listing
// queda excluido de este ciclo, que no es lo mismo que un rechazo.
func (e *Enhancer) Enhance(ctx context.Context, listing domain.MarketListing, liquidityScore float64, trace []domain.FilterResult) (domain.Opportunity, bool, error) {
	sample, err := e.cache.GetOrFetch(ctx, listing.CatalogKey, e.priceTTL, func(ctx context.Context) (domain.PriceSample, error) {
		return e.prices.FetchPrice(ctx, listing.CatalogKey)
	})
	if err != nil {
		return domain.Opportunity{}, false, fmt.Errorf(
			"enhancer: reference price for %q: %w: %w",
			listing.CatalogKey, domain.ErrInsufficientData, err)
	}

	profitPct := domain.NetProfitPercent(listing.Price, sample.Price, e.cfg.FeeRate)
	if profitPct < e.cfg.MinProfitMargin {
		return domain.Opportunity{}, false, nil
	}

	// Volumen de referencia insuficiente: posición "de papel" aunque el
	// margen sea bueno.
	if sample.DailyVolume < e.cfg.MinDailyVolume {
		return domain.Opportunity{}, false, nil
	}

	return domain.Opportunity{
		Listing:          listing,
		Reference:        sample,
		ScannedAt:        time.Now().UTC(),
		NetProfit:        domain.NetProfit(listing.Price, sample.Price, e.cfg.FeeRate),
		NetProfitPercent: profitPct,
		LiquidityScore:   liquidityScore,
		Liquidity:        domain.ClassifyLiquidity(sample.DailyVolume),
		FilterTrace:      trace,
	}, true, nil
}

// ClearCache vacía el cache de precios de referencia.
func (e *Enhancer) ClearCache() {
	e.cache.Clear()
}
