package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// Storage persiste el histórico de ciclos de scan. El core no posee ningún
// formato en disco: esto es responsabilidad del colaborador.
type Storage interface {
	// SaveScan persiste el resumen de un ciclo y sus oportunidades.
	SaveScan(ctx context.Context, scanID string, opportunities []domain.Opportunity, stats domain.ScanStatistics) error

	// GetHistory devuelve las oportunidades persistidas entre from y to.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.Opportunity, error)

	Close() error
}
