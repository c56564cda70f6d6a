package domain

import "math"

// NetReferenceRevenue calcula lo que realmente cobras al revender en la
// fuente de referencia, descontando su fee.
//
// Fórmula: revenue = referencePrice × (1 − feeRate)
//   - referencePrice: precio de referencia en céntimos
//   - feeRate: fee de la fuente secundaria (ej. 0.1304), nunca hardcodeado
func NetReferenceRevenue(referencePrice int64, feeRate float64) float64 {
	return float64(referencePrice) * (1 - feeRate)
}

// NetProfit calcula la ganancia neta en céntimos de comprar al precio del
// listing y revender en la fuente de referencia.
func NetProfit(listingPrice, referencePrice int64, feeRate float64) float64 {
	return NetReferenceRevenue(referencePrice, feeRate) - float64(listingPrice)
}

// NetProfitPercent calcula el margen neto como porcentaje del precio pagado.
// Devuelve 0 si el precio del listing es inválido.
func NetProfitPercent(listingPrice, referencePrice int64, feeRate float64) float64 {
	if listingPrice <= 0 {
		return 0
	}
	return NetProfit(listingPrice, referencePrice, feeRate) / float64(listingPrice) * 100
}

// ZScore calcula cuántas desviaciones estándar separa price de la media
// histórica. Devuelve 0 si no hay dispersión (stddev ≤ 0).
func ZScore(price, mean, stddev float64) float64 {
	if stddev <= 0 {
		return 0
	}
	return (price - mean) / stddev
}

// LiquidityScore puntúa la facilidad de reventa combinando frecuencia de
// ventas y profundidad de ofertas.
//
// Fórmula:
//
//	timeToSell = offerCount / dailyVolume   (días de cola por delante)
//	score      = dailyVolume / (1 + timeToSell)
//
// Devuelve 0 si no hay ventas diarias.
func LiquidityScore(dailyVolume float64, offerCount int) float64 {
	if dailyVolume <= 0 {
		return 0
	}
	timeToSell := float64(offerCount) / dailyVolume
	return dailyVolume / (1 + timeToSell)
}

// TimeToSellDays estima los días necesarios para vender una unidad dada la
// cola de ofertas existente. Devuelve +Inf sin ventas diarias.
func TimeToSellDays(dailyVolume float64, offerCount int) float64 {
	if dailyVolume <= 0 {
		return math.Inf(1)
	}
	return float64(offerCount) / dailyVolume
}
