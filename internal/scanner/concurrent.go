package scanner

// concurrent.go — worker pool acotado para el fan-out de filter+enhance.
//
// La concurrencia máxima limita los lookups cross-reference simultáneos para
// respetar el presupuesto de rate externo compartido; los listings sobrantes
// esperan en el channel. La cancelación se comprueba entre puntos de
// suspensión: los listings no evaluados no cuentan en las estadísticas, así
// que el invariante de conteo se mantiene sobre el subconjunto evaluado.

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// processListings evalúa y cross-referencia todos los listings en paralelo.
func (s *Scanner) processListings(ctx context.Context, listings []domain.MarketListing, collector *statsCollector) []domain.Opportunity {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	workCh := make(chan domain.MarketListing, len(listings))
	resultCh := make(chan domain.Opportunity, len(listings))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for listing := range workCh {
				if ctx.Err() != nil {
					// Scan cancelado: drenar sin evaluar ni contar
					continue
				}
				if opp, ok := s.processOne(ctx, listing, collector); ok {
					resultCh <- opp
				}
			}
		}()
	}

	for _, listing := range listings {
		workCh <- listing
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	opps := make([]domain.Opportunity, 0, len(listings))
	for opp := range resultCh {
		opps = append(opps, opp)
	}

	slog.Debug("concurrent evaluation complete",
		"listings", len(listings),
		"opportunities", len(opps),
		"workers", workers,
	)
	return opps
}

// processOne ejecuta pipeline y enhancer sobre un listing y registra
// exactamente un resultado en las estadísticas.
func (s *Scanner) processOne(ctx context.Context, listing domain.MarketListing, collector *statsCollector) (domain.Opportunity, bool) {
	trace, stats, err := s.pipeline.Evaluate(ctx, s.cfg.Catalog, listing)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelado a mitad de la evaluación: no cuenta
			return domain.Opportunity{}, false
		}
		logSkip(listing, err)
		collector.recordSkip()
		return domain.Opportunity{}, false
	}

	last := trace[len(trace)-1]
	if !last.Passed {
		collector.recordFail(last.Reason)
		return domain.Opportunity{}, false
	}

	score := domain.LiquidityScore(stats.DailyVolume(), listing.Quantity)
	opp, ok, err := s.enhancer.Enhance(ctx, listing, score, trace)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Opportunity{}, false
		}
		logSkip(listing, err)
		collector.recordSkip()
		return domain.Opportunity{}, false
	}

	// Pasó todos los filtros; el margen decide si además es oportunidad
	collector.recordPass()
	if !ok {
		return domain.Opportunity{}, false
	}
	return opp, true
}

func logSkip(listing domain.MarketListing, err error) {
	if errors.Is(err, domain.ErrCoolingDown) {
		slog.Debug("listing skipped: cooldown active", "catalog_key", listing.CatalogKey)
		return
	}
	slog.Debug("listing skipped: no data", "catalog_key", listing.CatalogKey, "err", err)
}
