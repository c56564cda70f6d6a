package ports

import (
	"context"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// PriceProvider resuelve el precio/volumen de referencia de un ítem.
type PriceProvider interface {
	// FetchPrice devuelve la muestra de referencia para el catalog key.
	// Errores: domain.ErrRateLimited / domain.ErrCoolingDown cuando el
	// presupuesto compartido está agotado; otros errores son transitorios.
	FetchPrice(ctx context.Context, catalogKey string) (domain.PriceSample, error)
}

// HistoryProvider resuelve las estadísticas de ventas históricas de un ítem
// en el marketplace primario.
type HistoryProvider interface {
	// FetchSalesStats devuelve la historia de ventas reciente del catalog key.
	FetchSalesStats(ctx context.Context, catalog, catalogKey string) (domain.SalesStats, error)
}
