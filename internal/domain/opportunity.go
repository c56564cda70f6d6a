package domain

import "time"

// LiquidityClass clasifica la facilidad de reventa de un ítem según el
// volumen diario de la fuente de referencia.
type LiquidityClass string

const (
	LiquidityHigh   LiquidityClass = "high"
	LiquidityMedium LiquidityClass = "medium"
	LiquidityLow    LiquidityClass = "low"
	LiquidityAtRisk LiquidityClass = "at_risk"
)

// Umbrales de ventas/día para cada clase de liquidez.
const (
	highVolumePerDay   = 200
	mediumVolumePerDay = 100
	lowVolumePerDay    = 50
)

// ClassifyLiquidity asigna la clase de liquidez a partir de ventas/día.
func ClassifyLiquidity(dailyVolume int) LiquidityClass {
	switch {
	case dailyVolume >= highVolumePerDay:
		return LiquidityHigh
	case dailyVolume >= mediumVolumePerDay:
		return LiquidityMedium
	case dailyVolume >= lowVolumePerDay:
		return LiquidityLow
	default:
		return LiquidityAtRisk
	}
}

// Icon devuelve el indicador corto para el output de consola.
func (l LiquidityClass) Icon() string {
	switch l {
	case LiquidityHigh:
		return "+++"
	case LiquidityMedium:
		return "++"
	case LiquidityLow:
		return "+"
	default:
		return "!"
	}
}

// Opportunity es el resultado validado del pipeline: un listing que pasó
// todos los filtros y cuyo margen contra la fuente de referencia supera el
// mínimo configurado. Inmutable, con ámbito de un ciclo de scan.
type Opportunity struct {
	Listing   MarketListing
	Reference PriceSample
	ScannedAt time.Time

	NetProfit        float64 // céntimos, tras fee de la fuente de referencia
	NetProfitPercent float64 // sobre el precio del listing
	LiquidityScore   float64
	Liquidity        LiquidityClass

	FilterTrace []FilterResult
}
