package steam

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/flipbot/internal/domain"
	"github.com/alejandrodnm/flipbot/internal/ports"
)

// FetchListings pagina la búsqueda del catálogo hasta maxItems o fin de
// páginas. Un registro malformado se loguea y se salta; no aborta el batch.
func (c *Client) FetchListings(ctx context.Context, catalog string, pageSize, maxItems int, bounds ports.PriceBounds) ([]domain.MarketListing, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	listings := make([]domain.MarketListing, 0, maxItems)
	start := 0

	for {
		if err := ctx.Err(); err != nil {
			return listings, err
		}
		if err := c.searchLimiter.Wait(ctx); err != nil {
			return listings, fmt.Errorf("steam.FetchListings: limiter: %w", err)
		}

		page, err := c.fetchSearchPage(ctx, catalog, start, pageSize)
		if err != nil {
			return listings, fmt.Errorf("steam.FetchListings: page start=%d: %w", start, err)
		}

		for _, raw := range page.Results {
			listing, err := normalizeListing(raw)
			if err != nil {
				slog.Warn("skipping malformed listing", "err", err)
				continue
			}
			if !bounds.Contains(listing.Price) {
				continue
			}
			listings = append(listings, listing)
			if maxItems > 0 && len(listings) >= maxItems {
				return listings, nil
			}
		}

		start += pageSize
		if start >= page.TotalCount || len(page.Results) == 0 {
			return listings, nil
		}
	}
}

// fetchSearchPage obtiene una página del endpoint de búsqueda.
func (c *Client) fetchSearchPage(ctx context.Context, catalog string, start, count int) (searchResponse, error) {
	q := url.Values{}
	q.Set("appid", catalog)
	q.Set("start", fmt.Sprint(start))
	q.Set("count", fmt.Sprint(count))
	q.Set("norender", "1")

	var resp searchResponse
	if err := c.get(ctx, c.base+"/market/search/render/?"+q.Encode(), &resp); err != nil {
		return searchResponse{}, err
	}
	if !resp.Success {
		return searchResponse{}, fmt.Errorf("search returned success=false")
	}
	return resp, nil
}
