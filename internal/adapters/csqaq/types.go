package csqaq

import (
	"math"
	"time"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

type goodPriceResponse struct {
	Code int       `json:"code"` // 0 = ok
	Msg  string    `json:"msg"`
	Data goodPrice `json:"data"`
}

type goodPrice struct {
	GoodID      int64   `json:"good_id"`
	SellPrice   float64 `json:"sell_price"` // unidades de moneda
	SellNum     int     `json:"sell_num"`   // ofertas activas
	SaleCount24 int     `json:"sale_count_24h"`
}

// mapPriceSample convierte el DTO a domain.PriceSample en céntimos.
func mapPriceSample(catalogKey string, d goodPrice) domain.PriceSample {
	return domain.PriceSample{
		CatalogKey:  catalogKey,
		SourceID:    sourceID,
		Price:       int64(math.Round(d.SellPrice * 100)),
		DailyVolume: d.SaleCount24,
		OfferCount:  d.SellNum,
		SampledAt:   time.Now().UTC(),
	}
}
