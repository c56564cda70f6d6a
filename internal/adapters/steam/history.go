package steam

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// historyWindow es la ventana de historia de ventas que alimenta los filtros.
const historyWindow = 7 * 24 * time.Hour

// Layout del timestamp del endpoint de pricehistory, tras recortar el
// sufijo ": +0" ("Jun 01 2025 01: +0" → "Jun 01 2025 01").
const historyTimeLayout = "Jan 02 2006 15"

// FetchSalesStats obtiene la historia de precios del ítem y la agrega a
// domain.SalesStats sobre la ventana reciente. Pasa por el guard compartido:
// este endpoint comparte presupuesto con el cross-reference.
func (c *Client) FetchSalesStats(ctx context.Context, catalog, catalogKey string) (domain.SalesStats, error) {
	if err := c.guard.Acquire(ctx); err != nil {
		return domain.SalesStats{}, fmt.Errorf("steam.FetchSalesStats: %w", err)
	}

	q := url.Values{}
	q.Set("appid", catalog)
	q.Set("market_hash_name", catalogKey)

	var resp priceHistoryResponse
	if err := c.get(ctx, c.base+"/market/pricehistory/?"+q.Encode(), &resp); err != nil {
		return domain.SalesStats{}, fmt.Errorf("steam.FetchSalesStats: %q: %w", catalogKey, err)
	}
	if !resp.Success {
		return domain.SalesStats{}, fmt.Errorf("steam.FetchSalesStats: %q: success=false", catalogKey)
	}

	return buildSalesStats(catalogKey, resp.Prices, time.Now().UTC()), nil
}

// buildSalesStats filtra los puntos dentro de la ventana y calcula volumen,
// media y desviación estándar ponderadas. Los puntos que no parsean se
// ignoran individualmente.
func buildSalesStats(catalogKey string, raw [][3]any, now time.Time) domain.SalesStats {
	cutoff := now.Add(-historyWindow)

	points := make([]domain.PricePoint, 0, len(raw))
	for _, r := range raw {
		p, ts, ok := parseHistoryPoint(r)
		if !ok || ts.Before(cutoff) {
			continue
		}
		points = append(points, p)
	}

	stats := domain.SalesStats{
		CatalogKey: catalogKey,
		Points:     points,
		Window:     historyWindow,
		SampledAt:  now,
	}

	var sum, sumSq float64
	for _, p := range points {
		stats.Volume += p.Volume
		sum += p.Price * float64(p.Volume)
		sumSq += p.Price * p.Price * float64(p.Volume)
	}
	if stats.Volume > 0 {
		n := float64(stats.Volume)
		stats.AvgPrice = sum / n
		variance := sumSq/n - stats.AvgPrice*stats.AvgPrice
		if variance > 0 {
			stats.StdDev = math.Sqrt(variance)
		}
	}
	return stats
}

// parseHistoryPoint coerce una tupla [fecha, precio, "unidades"].
func parseHistoryPoint(r [3]any) (domain.PricePoint, time.Time, bool) {
	rawTS, ok := r[0].(string)
	if !ok {
		return domain.PricePoint{}, time.Time{}, false
	}
	ts, err := time.Parse(historyTimeLayout, strings.TrimSuffix(rawTS, ": +0"))
	if err != nil {
		return domain.PricePoint{}, time.Time{}, false
	}

	// El endpoint devuelve el precio en unidades de moneda; el resto del
	// pipeline trabaja en céntimos.
	price, ok := r[1].(float64)
	if !ok || price <= 0 {
		return domain.PricePoint{}, time.Time{}, false
	}
	price = price * 100

	rawVol, ok := r[2].(string)
	if !ok {
		return domain.PricePoint{}, time.Time{}, false
	}
	vol, err := strconv.Atoi(rawVol)
	if err != nil || vol <= 0 {
		return domain.PricePoint{}, time.Time{}, false
	}

	return domain.PricePoint{Price: price, Volume: vol}, ts, true
}
