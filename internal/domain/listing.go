package domain

import "time"

// MarketListing es un listado normalizado del marketplace primario.
// Inmutable: se crea una vez por ciclo de scan y se descarta al terminar,
// salvo que quede retenido dentro de una Opportunity.
type MarketListing struct {
	ID         string
	CatalogKey string // identidad normalizada del ítem (market hash name)
	Price      int64  // precio en céntimos
	Quantity   int    // ofertas de venta activas para este ítem
	Attributes map[string]string
	FetchedAt  time.Time
}

// PriceSample es una muestra de precio/volumen de una fuente de referencia.
// Invariante: SampledAt es no-decreciente por (CatalogKey, SourceID).
type PriceSample struct {
	CatalogKey  string
	SourceID    string
	Price       int64 // precio en céntimos
	DailyVolume int   // ventas por día en la fuente de referencia
	OfferCount  int   // profundidad de ofertas en la fuente de referencia
	SampledAt   time.Time
}

// PricePoint es un punto de la serie histórica de ventas del marketplace primario.
type PricePoint struct {
	Price  float64 // precio medio de venta en céntimos
	Volume int     // unidades vendidas en ese punto
}

// SalesStats agrega la historia de ventas reciente de un ítem.
// Se cachea por CatalogKey, por lo que no depende de ningún listing concreto.
type SalesStats struct {
	CatalogKey string
	Points     []PricePoint
	Volume     int           // total vendido en la ventana
	AvgPrice   float64       // media ponderada por volumen, en céntimos
	StdDev     float64       // desviación estándar ponderada, en céntimos
	Window     time.Duration // ventana de historia cubierta
	SampledAt  time.Time
}

// GoodPointsPercent devuelve el porcentaje del volumen histórico vendido
// por encima de breakEven (céntimos). Es la fracción de ventas que habrían
// sido rentables comprando al precio actual.
func (s SalesStats) GoodPointsPercent(breakEven float64) float64 {
	if s.Volume <= 0 {
		return 0
	}
	good := 0
	for _, p := range s.Points {
		if p.Price > breakEven {
			good += p.Volume
		}
	}
	return float64(good) / float64(s.Volume) * 100
}

// DailyVolume devuelve las ventas por día promediadas sobre la ventana.
func (s SalesStats) DailyVolume() float64 {
	days := s.Window.Hours() / 24
	if days <= 0 {
		return 0
	}
	return float64(s.Volume) / days
}
