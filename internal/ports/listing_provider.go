package ports

import (
	"context"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// PriceBounds acota el rango de precios (céntimos) del fetch de listings.
// Cero significa sin límite.
type PriceBounds struct {
	Min int64
	Max int64
}

// Contains devuelve true si el precio cae dentro de los límites.
func (b PriceBounds) Contains(price int64) bool {
	if b.Min > 0 && price < b.Min {
		return false
	}
	if b.Max > 0 && price > b.Max {
		return false
	}
	return true
}

// ListingProvider obtiene listings del marketplace primario.
type ListingProvider interface {
	// FetchListings pagina el catálogo dado hasta maxItems o fin de páginas,
	// devolviendo listings normalizados dentro de bounds. Un registro
	// malformado se loguea y se salta sin abortar el batch.
	FetchListings(ctx context.Context, catalog string, pageSize, maxItems int, bounds PriceBounds) ([]domain.MarketListing, error)
}
