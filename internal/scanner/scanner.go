package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/flipbot/internal/cache"
	"github.com/alejandrodnm/flipbot/internal/domain"
	"github.com/alejandrodnm/flipbot/internal/ports"
)

const (
	defaultWorkers    = 8
	defaultMaxResults = 20
	defaultPriceTTL   = 5 * time.Minute
	defaultHistoryTTL = time.Hour
)

// Config contiene la configuración del scanner.
type Config struct {
	ScanInterval time.Duration
	Catalog      string
	PageSize     int
	MaxItems     int
	MaxResults   int
	Workers      int // lookups cross-reference simultáneos
	Bounds       ports.PriceBounds
	Filter       FilterConfig
	Reference    ReferenceConfig
	PriceTTL     time.Duration
	HistoryTTL   time.Duration
	Once         bool
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		ScanInterval: 5 * time.Minute,
		Catalog:      "730",
		PageSize:     100,
		MaxItems:     500,
		MaxResults:   defaultMaxResults,
		Workers:      defaultWorkers,
		Filter:       DefaultFilterConfig(),
		Reference: ReferenceConfig{
			FeeRate:         0.1304,
			MinProfitMargin: 10,
			MinDailyVolume:  50,
		},
		PriceTTL:   defaultPriceTTL,
		HistoryTTL: defaultHistoryTTL,
	}
}

// Validate comprueba los umbrales antes de cualquier llamada de red.
func (c Config) Validate() error {
	if c.Catalog == "" {
		return &domain.ConfigurationError{Field: "catalog", Reason: "required"}
	}
	if c.Reference.FeeRate < 0 || c.Reference.FeeRate >= 1 {
		return &domain.ConfigurationError{Field: "reference.fee_rate", Reason: "must be in [0, 1)"}
	}
	if c.Filter.OutlierThreshold <= 0 {
		return &domain.ConfigurationError{Field: "filter.outlier_threshold", Reason: "must be > 0"}
	}
	if c.Workers <= 0 {
		return &domain.ConfigurationError{Field: "workers", Reason: "must be > 0"}
	}
	return nil
}

// Scanner es el orquestador del pipeline scan→cache→filter→cross-reference→rank.
type Scanner struct {
	cfg      Config
	listings ports.ListingProvider
	pipeline *Pipeline
	enhancer *Enhancer
	storage  ports.Storage
	notifier ports.Notifier

	mu        sync.Mutex
	lastStats domain.ScanStatistics
}

// New crea un Scanner con todas las dependencias inyectadas. Los caches TTL
// son propiedad del Scanner y se comparten entre todos sus ciclos.
func New(
	cfg Config,
	listings ports.ListingProvider,
	history ports.HistoryProvider,
	prices ports.PriceProvider,
	storage ports.Storage,
	notifier ports.Notifier,
) *Scanner {
	if cfg.PriceTTL <= 0 {
		cfg.PriceTTL = defaultPriceTTL
	}
	if cfg.HistoryTTL <= 0 {
		cfg.HistoryTTL = defaultHistoryTTL
	}
	return &Scanner{
		cfg:      cfg,
		listings: listings,
		pipeline: NewPipeline(cfg.Filter, history, cache.New[domain.SalesStats](), cfg.HistoryTTL),
		enhancer: NewEnhancer(cfg.Reference, prices, cache.New[domain.PriceSample](), cfg.PriceTTL),
		storage:  storage,
		notifier: notifier,
	}
}

// Run ejecuta el loop de escaneo hasta que el contexto se cancele.
// Si cfg.Once está activo, solo ejecuta un ciclo.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"catalog", s.cfg.Catalog,
		"interval", s.cfg.ScanInterval,
		"workers", s.cfg.Workers,
		"once", s.cfg.Once,
	)

	if err := s.runCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
		if s.cfg.Once {
			return err
		}
	}
	if s.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				slog.Error("scan cycle failed", "err", err)
			}
		}
	}
}

// runCycle ejecuta un ciclo completo y notifica/persiste los resultados.
func (s *Scanner) runCycle(ctx context.Context) error {
	start := time.Now()

	opps, stats, err := s.Scan(ctx)
	if err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, opps, stats); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if s.storage != nil {
		scanID := uuid.NewString()
		if err := s.storage.SaveScan(ctx, scanID, opps, stats); err != nil {
			slog.Warn("storage error", "err", err, "scan_id", scanID)
		}
	}

	slog.Info("scan cycle complete",
		"opportunities", len(opps),
		"evaluated", stats.TotalEvaluated,
		"pass_rate", fmt.Sprintf("%.1f%%", stats.PassRate()*100),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Scan es el punto de entrada público: fetch → filter → enhance → rank.
// Devuelve la lista rankeada best-effort con sus estadísticas, o un único
// error terminal si el ciclo no pudo arrancar. Una cancelación a mitad
// devuelve las oportunidades resueltas hasta ese momento.
func (s *Scanner) Scan(ctx context.Context) ([]domain.Opportunity, domain.ScanStatistics, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, domain.NewScanStatistics(), err
	}

	listings, err := s.listings.FetchListings(ctx, s.cfg.Catalog, s.cfg.PageSize, s.cfg.MaxItems, s.cfg.Bounds)
	if err != nil {
		if len(listings) == 0 {
			return nil, domain.NewScanStatistics(), fmt.Errorf("scanner.Scan: fetch listings: %w", err)
		}
		// Batch parcial (cancelación o fallo a mitad de paginado): seguimos
		// con lo que hay
		slog.Warn("partial listing batch", "fetched", len(listings), "err", err)
	}

	collector := newStatsCollector()
	opps := s.processListings(ctx, listings, collector)
	ranked := Aggregate(opps, s.cfg.MaxResults)
	stats := collector.snapshot()

	s.mu.Lock()
	s.lastStats = stats
	s.mu.Unlock()

	return ranked, stats, nil
}

// Statistics devuelve las estadísticas del último ciclo completado.
func (s *Scanner) Statistics() domain.ScanStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStats
}

// ResetStatistics descarta las estadísticas del último ciclo.
func (s *Scanner) ResetStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStats = domain.NewScanStatistics()
}

// ClearCache invalida los caches de historia y precios de referencia.
// Invalidación administrativa; el próximo ciclo repobla.
func (s *Scanner) ClearCache() {
	s.pipeline.ClearCache()
	s.enhancer.ClearCache()
}
