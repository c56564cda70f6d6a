package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

func oppWith(id, key string, profitPct float64) domain.Opportunity {
	return domain.Opportunity{
		Listing:          domain.MarketListing{ID: id, CatalogKey: key},
		NetProfitPercent: profitPct,
	}
}

func TestAggregate_DeduplicatesByCatalogKey(t *testing.T) {
	opps := []domain.Opportunity{
		oppWith("a", "AK-47 | Redline", 12),
		oppWith("b", "AK-47 | Redline", 18),
	}

	result := Aggregate(opps, 10)
	require.Len(t, result, 1)
	assert.Equal(t, "b", result[0].Listing.ID)
	assert.Equal(t, 18.0, result[0].NetProfitPercent)
}

func TestAggregate_RanksAndTruncates(t *testing.T) {
	opps := []domain.Opportunity{
		oppWith("a", "item-a", 5),
		oppWith("b", "item-b", 30),
		oppWith("c", "item-c", 12),
		oppWith("d", "item-d", 30.44),
	}

	result := Aggregate(opps, 2)
	require.Len(t, result, 2)
	assert.Equal(t, 30.44, result[0].NetProfitPercent)
	assert.Equal(t, 30.0, result[1].NetProfitPercent)
}

func TestAggregate_TieBreakIsDeterministic(t *testing.T) {
	opps := []domain.Opportunity{
		oppWith("z", "item-z", 20),
		oppWith("a", "item-a", 20),
	}

	first := Aggregate(opps, 10)
	second := Aggregate([]domain.Opportunity{opps[1], opps[0]}, 10)

	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].Listing.ID, "los empates se rompen por listing ID")
	assert.Equal(t, first, second, "el orden no depende del orden de llegada")
}

func TestAggregate_ZeroMaxResultsKeepsAll(t *testing.T) {
	opps := []domain.Opportunity{
		oppWith("a", "item-a", 5),
		oppWith("b", "item-b", 30),
	}
	assert.Len(t, Aggregate(opps, 0), 2)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, 10))
}
