package ports

import (
	"context"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// Notifier presenta las oportunidades de un ciclo al usuario.
type Notifier interface {
	// Notify muestra las oportunidades rankeadas junto a las estadísticas
	// del ciclo. En la implementación de consola, imprime una tabla.
	Notify(ctx context.Context, opportunities []domain.Opportunity, stats domain.ScanStatistics) error
}
