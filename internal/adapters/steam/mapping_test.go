package steam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

func TestNormalizeListing(t *testing.T) {
	raw := rawListing{
		Name:         "AK-47 | Redline (Field-Tested)",
		HashName:     "AK-47 | Redline (Field-Tested)",
		SellListings: 312,
		SellPrice:    1550,
	}
	raw.AssetDescription.ClassID = "310776767"
	raw.AssetDescription.Type = "Classified Rifle"

	listing, err := normalizeListing(raw)
	require.NoError(t, err)
	assert.Equal(t, "310776767", listing.ID)
	assert.Equal(t, "AK-47 | Redline (Field-Tested)", listing.CatalogKey)
	assert.Equal(t, int64(1550), listing.Price)
	assert.Equal(t, 312, listing.Quantity)
	assert.Equal(t, "Classified Rifle", listing.Attributes["type"])
	assert.False(t, listing.FetchedAt.IsZero())
}

func TestNormalizeListing_Malformed(t *testing.T) {
	var malformed *domain.MalformedDataError

	_, err := normalizeListing(rawListing{HashName: "", SellPrice: 100})
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "hash_name", malformed.Field)

	_, err = normalizeListing(rawListing{HashName: "x", SellPrice: 0})
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "sell_price", malformed.Field)
}

func TestNormalizeListing_FallbackID(t *testing.T) {
	listing, err := normalizeListing(rawListing{HashName: "Glove Case", SellPrice: 80})
	require.NoError(t, err)
	assert.Equal(t, "Glove Case", listing.ID)
}

func TestBuildSalesStats(t *testing.T) {
	now := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	raw := [][3]any{
		// Dentro de la ventana de 7 días (precios en unidades de moneda)
		{"Jun 05 2025 01: +0", 12.0, "40"},
		{"Jun 06 2025 01: +0", 11.0, "40"},
		{"Jun 07 2025 01: +0", 9.0, "20"},
		// Fuera de la ventana → ignorado
		{"Jan 01 2025 01: +0", 50.0, "999"},
		// Malformados → ignorados individualmente
		{"not a date", 10.0, "5"},
		{"Jun 07 2025 02: +0", 10.0, "NaN"},
	}

	stats := buildSalesStats("AK-47 | Redline (Field-Tested)", raw, now)
	assert.Equal(t, 100, stats.Volume)
	assert.Len(t, stats.Points, 3)
	// media ponderada: (1200×40 + 1100×40 + 900×20) / 100 = 1100 céntimos
	assert.InDelta(t, 1100.0, stats.AvgPrice, 0.001)
	assert.Greater(t, stats.StdDev, 0.0)
	// 80 de 100 unidades por encima de 1000 céntimos
	assert.InDelta(t, 80.0, stats.GoodPointsPercent(1000), 0.001)
	assert.InDelta(t, 100.0/7.0, stats.DailyVolume(), 0.01)
}

func TestBuildSalesStats_Empty(t *testing.T) {
	stats := buildSalesStats("x", nil, time.Now().UTC())
	assert.Equal(t, 0, stats.Volume)
	assert.Equal(t, 0.0, stats.AvgPrice)
	assert.Equal(t, 0.0, stats.DailyVolume())
}
