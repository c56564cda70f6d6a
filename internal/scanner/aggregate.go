package scanner

import (
	"sort"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// Aggregate deduplica por catalog key (conservando el mayor margen), ordena
// por margen descendente y trunca a maxResults. El orden final es
// determinista aunque el enhancement termine fuera de orden: los empates se
// rompen por listing ID ascendente.
func Aggregate(opps []domain.Opportunity, maxResults int) []domain.Opportunity {
	best := make(map[string]domain.Opportunity, len(opps))
	for _, opp := range opps {
		key := opp.Listing.CatalogKey
		cur, ok := best[key]
		if !ok || better(opp, cur) {
			best[key] = opp
		}
	}

	result := make([]domain.Opportunity, 0, len(best))
	for _, opp := range best {
		result = append(result, opp)
	}

	sort.Slice(result, func(i, j int) bool {
		return better(result[i], result[j])
	})

	if maxResults > 0 && len(result) > maxResults {
		result = result[:maxResults]
	}
	return result
}

// better define el orden total de oportunidades: margen descendente,
// empates por listing ID ascendente.
func better(a, b domain.Opportunity) bool {
	if a.NetProfitPercent != b.NetProfitPercent {
		return a.NetProfitPercent > b.NetProfitPercent
	}
	return a.Listing.ID < b.Listing.ID
}
