package storage

// sqlite.go — histórico de scans eficiente y sin ruido.
//
// Estrategia:
//   - `scans`: resumen ligero por ciclo (contadores del pipeline, mejor
//     margen). Siempre 1 fila por ciclo.
//   - `opportunities`: UNA fila por catalog key (UPSERT). Solo lo que superó
//     el pipeline completo — los rechazos no aportan señal como histórico.
//   - Cache en memoria: evita writes si el estado no cambió (> 5% en margen,
//     o cambio de clase de liquidez). En ciclos consecutivos la mayoría de
//     ítems no se mueve → reducción fuerte de escrituras a disco.
//   - Prune automático al arrancar: scans > 30d, opportunities no vistas en 14d.

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

const schema = `
-- Resumen ligero por ciclo de scan
CREATE TABLE IF NOT EXISTS scans (
    scan_id         TEXT PRIMARY KEY,
    scanned_at      DATETIME NOT NULL,
    total_evaluated INTEGER  NOT NULL DEFAULT 0,
    passed          INTEGER  NOT NULL DEFAULT 0,
    skipped_no_data INTEGER  NOT NULL DEFAULT 0,
    opportunities   INTEGER  NOT NULL DEFAULT 0,
    best_margin     REAL     NOT NULL DEFAULT 0
);

-- Una fila por catalog key, sin duplicados
CREATE TABLE IF NOT EXISTS opportunities (
    catalog_key      TEXT PRIMARY KEY,
    listing_id       TEXT,
    buy_price        INTEGER NOT NULL DEFAULT 0,
    ref_price        INTEGER NOT NULL DEFAULT 0,
    ref_source       TEXT,
    ref_daily_volume INTEGER NOT NULL DEFAULT 0,
    net_profit       REAL    NOT NULL DEFAULT 0,
    net_profit_pct   REAL    NOT NULL DEFAULT 0,
    liquidity        TEXT    NOT NULL,
    liquidity_score  REAL    NOT NULL DEFAULT 0,
    first_seen       DATETIME NOT NULL,
    last_seen        DATETIME NOT NULL,
    peak_margin      REAL    NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_scans_at   ON scans(scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_opp_last   ON opportunities(last_seen DESC);
CREATE INDEX IF NOT EXISTS idx_opp_margin ON opportunities(net_profit_pct DESC);
`

const (
	retentionScans  = 30 * 24 * time.Hour // resúmenes: 30 días
	retentionOpps   = 14 * 24 * time.Hour // oportunidades: 14 días
	marginChangePct = 0.05                // 5% de cambio en margen → reescribir
)

// cachedState es el snapshot del último estado guardado de un ítem.
type cachedState struct {
	margin    float64
	liquidity domain.LiquidityClass
}

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	cache map[string]cachedState // catalog key → estado guardado
	mu    sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la cache.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		cache: make(map[string]cachedState),
	}
	s.pruneOld(context.Background())
	s.warmCache(context.Background())
	return s, nil
}

// SaveScan persiste el resumen del ciclo y hace upsert de las oportunidades
// que cambiaron respecto al ciclo anterior (usando caché en memoria).
func (s *SQLiteStorage) SaveScan(ctx context.Context, scanID string, opportunities []domain.Opportunity, stats domain.ScanStatistics) error {
	now := time.Now().UTC()

	// 1. Resumen del ciclo — siempre una fila, pesa ~60 bytes
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (scan_id, scanned_at, total_evaluated, passed, skipped_no_data, opportunities, best_margin)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scanID, now, stats.TotalEvaluated, stats.Passed, stats.SkippedNoData,
		len(opportunities), bestMargin(opportunities),
	); err != nil {
		return fmt.Errorf("storage.SaveScan: insert scan: %w", err)
	}

	// 2. Upsert de las oportunidades que cambiaron
	toWrite := s.filterChanged(opportunities)
	if len(toWrite) == 0 {
		return nil // nada nuevo — los ciclos tranquilos terminan aquí
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveScan: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO opportunities
			(catalog_key, listing_id, buy_price, ref_price, ref_source,
			 ref_daily_volume, net_profit, net_profit_pct, liquidity,
			 liquidity_score, first_seen, last_seen, peak_margin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(catalog_key) DO UPDATE SET
			listing_id       = excluded.listing_id,
			buy_price        = excluded.buy_price,
			ref_price        = excluded.ref_price,
			ref_source       = excluded.ref_source,
			ref_daily_volume = excluded.ref_daily_volume,
			net_profit       = excluded.net_profit,
			net_profit_pct   = excluded.net_profit_pct,
			liquidity        = excluded.liquidity,
			liquidity_score  = excluded.liquidity_score,
			last_seen        = excluded.last_seen,
			peak_margin      = MAX(peak_margin, excluded.net_profit_pct)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveScan: prepare: %w", err)
	}
	defer stmt.Close()

	for _, opp := range toWrite {
		if _, err := stmt.ExecContext(ctx,
			opp.Listing.CatalogKey,
			opp.Listing.ID,
			opp.Listing.Price,
			opp.Reference.Price,
			opp.Reference.SourceID,
			opp.Reference.DailyVolume,
			opp.NetProfit,
			opp.NetProfitPercent,
			string(opp.Liquidity),
			opp.LiquidityScore,
			now, // first_seen: ignorado en ON CONFLICT (no se sobreescribe)
			now, // last_seen
			opp.NetProfitPercent,
		); err != nil {
			return fmt.Errorf("storage.SaveScan: upsert %q: %w", opp.Listing.CatalogKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveScan: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve oportunidades cuyo last_seen está en el rango dado.
// Ordenadas por margen desc — las mejores primero.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT catalog_key, listing_id, buy_price, ref_price, ref_source,
		       ref_daily_volume, net_profit, net_profit_pct, liquidity,
		       liquidity_score, last_seen
		FROM opportunities
		WHERE last_seen BETWEEN ? AND ?
		ORDER BY net_profit_pct DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var liquidity string
		var lastSeen time.Time

		if err := rows.Scan(
			&opp.Listing.CatalogKey,
			&opp.Listing.ID,
			&opp.Listing.Price,
			&opp.Reference.Price,
			&opp.Reference.SourceID,
			&opp.Reference.DailyVolume,
			&opp.NetProfit,
			&opp.NetProfitPercent,
			&liquidity,
			&opp.LiquidityScore,
			&lastSeen,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}

		opp.Reference.CatalogKey = opp.Listing.CatalogKey
		opp.Liquidity = domain.LiquidityClass(liquidity)
		opp.ScannedAt = lastSeen
		opps = append(opps, opp)
	}

	return opps, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// filterChanged devuelve las oportunidades que cambiaron respecto al estado
// en caché, y actualiza la caché con el nuevo estado.
func (s *SQLiteStorage) filterChanged(opps []domain.Opportunity) []domain.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toWrite []domain.Opportunity
	for _, opp := range opps {
		key := opp.Listing.CatalogKey

		if prev, ok := s.cache[key]; ok {
			unchanged := prev.liquidity == opp.Liquidity &&
				relChange(prev.margin, opp.NetProfitPercent) < marginChangePct
			if unchanged {
				continue
			}
		}

		toWrite = append(toWrite, opp)
		s.cache[key] = cachedState{
			margin:    opp.NetProfitPercent,
			liquidity: opp.Liquidity,
		}
	}
	return toWrite
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoffScans := time.Now().UTC().Add(-retentionScans)
	cutoffOpps := time.Now().UTC().Add(-retentionOpps)
	s.db.ExecContext(ctx, `DELETE FROM scans WHERE scanned_at < ?`, cutoffScans)
	s.db.ExecContext(ctx, `DELETE FROM opportunities WHERE last_seen < ?`, cutoffOpps)
}

// warmCache precarga la caché desde la DB al arrancar, evitando escrituras
// redundantes en el primer ciclo tras un reinicio.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT catalog_key, net_profit_pct, liquidity FROM opportunities`)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key, liquidity string
		var margin float64
		if err := rows.Scan(&key, &margin, &liquidity); err != nil {
			continue
		}
		s.cache[key] = cachedState{margin: margin, liquidity: domain.LiquidityClass(liquidity)}
	}
}

func bestMargin(opps []domain.Opportunity) float64 {
	best := 0.0
	for _, o := range opps {
		if o.NetProfitPercent > best {
			best = o.NetProfitPercent
		}
	}
	return best
}

// relChange devuelve el cambio relativo entre dos valores, robusto ante cero.
func relChange(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	denom := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) / denom
}
