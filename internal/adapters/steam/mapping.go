package steam

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// normalizeListing aplana un rawListing heterogéneo a domain.MarketListing.
// Devuelve *domain.MalformedDataError si faltan campos imprescindibles.
func normalizeListing(raw rawListing) (domain.MarketListing, error) {
	if raw.HashName == "" {
		return domain.MarketListing{}, &domain.MalformedDataError{
			Source: "steam", Field: "hash_name", Err: fmt.Errorf("empty"),
		}
	}
	if raw.SellPrice <= 0 {
		return domain.MarketListing{}, &domain.MalformedDataError{
			Source: "steam", Field: "sell_price",
			Err: fmt.Errorf("non-positive price %d for %q", raw.SellPrice, raw.HashName),
		}
	}

	id := raw.AssetDescription.ClassID
	if id == "" {
		// Sin classid el hash name sigue identificando el listing del ciclo
		id = raw.HashName
	}

	attrs := map[string]string{
		"type":     raw.AssetDescription.Type,
		"app_name": raw.AppName,
	}
	if raw.Name != raw.HashName {
		attrs["display_name"] = raw.Name
	}

	return domain.MarketListing{
		ID:         id,
		CatalogKey: raw.HashName,
		Price:      raw.SellPrice,
		Quantity:   raw.SellListings,
		Attributes: attrs,
		FetchedAt:  time.Now().UTC(),
	}, nil
}
