package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/flipbot/internal/domain"
	"github.com/alejandrodnm/flipbot/internal/ports"
	"github.com/alejandrodnm/flipbot/internal/ratelimit"
)

func testGuard() *ratelimit.Guard {
	return ratelimit.NewGuard(ratelimit.Config{
		CallsPerSecond:  1000,
		Burst:           1000,
		MinInterval:     time.Microsecond,
		InitialCooldown: time.Minute,
		MaxCooldown:     10 * time.Minute,
	})
}

// searchServer simula el endpoint de búsqueda con total items paginados.
func searchServer(t *testing.T, total int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/market/search/render/", r.URL.Path)
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))

		resp := searchResponse{Success: true, Start: start, PageSize: count, TotalCount: total}
		for i := start; i < start+count && i < total; i++ {
			raw := rawListing{
				HashName:     fmt.Sprintf("Item %03d", i),
				SellPrice:    int64(100 + i),
				SellListings: 10,
			}
			raw.AssetDescription.ClassID = fmt.Sprintf("class-%03d", i)
			resp.Results = append(resp.Results, raw)
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestFetchListings_PaginatesToEnd(t *testing.T) {
	srv := searchServer(t, 25)
	defer srv.Close()

	c := NewClient(srv.URL, testGuard())
	listings, err := c.FetchListings(context.Background(), "730", 10, 0, ports.PriceBounds{})
	require.NoError(t, err)
	assert.Len(t, listings, 25)
	assert.Equal(t, "Item 000", listings[0].CatalogKey)
	assert.Equal(t, "Item 024", listings[24].CatalogKey)
}

func TestFetchListings_HonorsItemCap(t *testing.T) {
	srv := searchServer(t, 100)
	defer srv.Close()

	c := NewClient(srv.URL, testGuard())
	listings, err := c.FetchListings(context.Background(), "730", 10, 15, ports.PriceBounds{})
	require.NoError(t, err)
	assert.Len(t, listings, 15)
}

func TestFetchListings_AppliesPriceBounds(t *testing.T) {
	srv := searchServer(t, 20) // precios 100..119
	defer srv.Close()

	c := NewClient(srv.URL, testGuard())
	listings, err := c.FetchListings(context.Background(), "730", 20, 0, ports.PriceBounds{Min: 105, Max: 110})
	require.NoError(t, err)
	require.Len(t, listings, 6)
	for _, l := range listings {
		assert.GreaterOrEqual(t, l.Price, int64(105))
		assert.LessOrEqual(t, l.Price, int64(110))
	}
}

func TestFetchListings_SkipsMalformedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := searchResponse{Success: true, TotalCount: 3}
		resp.Results = []rawListing{
			{HashName: "Good Item", SellPrice: 500},
			{HashName: "", SellPrice: 500},       // malformado: sin hash
			{HashName: "Free Item", SellPrice: 0}, // malformado: precio 0
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testGuard())
	listings, err := c.FetchListings(context.Background(), "730", 10, 0, ports.PriceBounds{})
	require.NoError(t, err)
	require.Len(t, listings, 1, "los registros malformados se saltan sin abortar")
	assert.Equal(t, "Good Item", listings[0].CatalogKey)
}

func TestFetchSalesStats_RateLimitActivatesCooldown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	guard := testGuard()
	c := NewClient(srv.URL, guard)

	_, err := c.FetchSalesStats(context.Background(), "730", "AK-47 | Redline (Field-Tested)")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
	assert.True(t, guard.CoolingDown(), "un 429 activa el cooldown compartido")

	// La siguiente llamada corta sin tocar la red
	_, err = c.FetchSalesStats(context.Background(), "730", "Glove Case")
	assert.True(t, errors.Is(err, domain.ErrCoolingDown))
}

func TestFetchSalesStats_ParsesHistory(t *testing.T) {
	now := time.Now().UTC()
	point := now.Add(-24 * time.Hour).Format(historyTimeLayout) + ": +0"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/market/pricehistory/", r.URL.Path)
		fmt.Fprintf(w, `{"success": true, "prices": [[%q, 15.5, "42"]]}`, point)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testGuard())
	stats, err := c.FetchSalesStats(context.Background(), "730", "AK-47 | Redline (Field-Tested)")
	require.NoError(t, err)
	assert.Equal(t, 42, stats.Volume)
	assert.InDelta(t, 1550.0, stats.AvgPrice, 0.001)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"success": true, "total_count": 0}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testGuard())
	c.http.Timeout = 5 * time.Second

	var resp searchResponse
	err := c.get(context.Background(), srv.URL+"/market/search/render/", &resp)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, resp.Success)
}
