package domain

// ScanStatistics resume el resultado de un ciclo de scan. Pertenece a una
// invocación: se resetea al empezar el scan y es de solo lectura al acabar.
//
// Invariante: Passed + Σ FailedByReason + SkippedNoData == TotalEvaluated.
type ScanStatistics struct {
	TotalEvaluated int
	Passed         int
	FailedByReason map[Reason]int
	SkippedNoData  int
}

// NewScanStatistics devuelve unas estadísticas vacías con el mapa inicializado.
func NewScanStatistics() ScanStatistics {
	return ScanStatistics{FailedByReason: make(map[Reason]int)}
}

// PassRate devuelve la fracción de listings evaluados que pasaron todos los
// filtros, entre 0 y 1.
func (s ScanStatistics) PassRate() float64 {
	if s.TotalEvaluated == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.TotalEvaluated)
}

// Failed devuelve el total de rechazos sumando todas las razones.
func (s ScanStatistics) Failed() int {
	total := 0
	for _, n := range s.FailedByReason {
		total += n
	}
	return total
}

// Consistent verifica el invariante de conteo del scan.
func (s ScanStatistics) Consistent() bool {
	return s.Passed+s.Failed()+s.SkippedNoData == s.TotalEvaluated
}
