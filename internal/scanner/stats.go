package scanner

import (
	"sync"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// statsCollector acumula las estadísticas de un ciclo bajo mutex: los
// workers concurrentes registran exactamente un resultado por listing
// evaluado, así que el invariante de conteo se mantiene también si el scan
// se cancela a mitad.
type statsCollector struct {
	mu sync.Mutex
	s  domain.ScanStatistics
}

func newStatsCollector() *statsCollector {
	return &statsCollector{s: domain.NewScanStatistics()}
}

// recordPass cuenta un listing que pasó todas las etapas de filtrado.
func (c *statsCollector) recordPass() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.TotalEvaluated++
	c.s.Passed++
}

// recordFail cuenta exactamente una razón de rechazo por listing.
func (c *statsCollector) recordFail(reason domain.Reason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.TotalEvaluated++
	c.s.FailedByReason[reason]++
}

// recordSkip cuenta un listing excluido por falta de datos en este ciclo.
func (c *statsCollector) recordSkip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.TotalEvaluated++
	c.s.SkippedNoData++
}

// snapshot devuelve una copia independiente de las estadísticas.
func (c *statsCollector) snapshot() domain.ScanStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.s
	out.FailedByReason = make(map[domain.Reason]int, len(c.s.FailedByReason))
	for k, v := range c.s.FailedByReason {
		out.FailedByReason[k] = v
	}
	return out
}
