package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

func opp(id string, rec domain.Recommendation, marginPct, confidence float64) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:             id,
		Recommendation: rec,
		MarginPct:      marginPct,
		Confidence:     confidence,
	}
}

func TestRankDropsSkipsByDefault(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("a", domain.RecommendBuy, 0.30, 0.9),
		opp("b", domain.RecommendSkip, 0.50, 0.9),
		opp("c", domain.RecommendWatch, 0.15, 0.7),
	}

	out := Rank(in, RankPolicy{})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
}

func TestRankIncludeSkips(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("a", domain.RecommendBuy, 0.30, 0.9),
		opp("b", domain.RecommendSkip, 0.50, 0.9),
	}

	out := Rank(in, RankPolicy{IncludeSkips: true})
	require.Len(t, out, 2)
	// The skip still outranks on margin.
	assert.Equal(t, "b", out[0].ID)
}

func TestRankMinMarginFilter(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("a", domain.RecommendBuy, 0.30, 0.9),
		opp("b", domain.RecommendWatch, 0.12, 0.7),
	}

	out := Rank(in, RankPolicy{MinMarginPct: 0.20})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestRankOrdering(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("low", domain.RecommendWatch, 0.12, 0.9),
		opp("high", domain.RecommendBuy, 0.40, 0.6),
		opp("mid-lowconf", domain.RecommendBuy, 0.25, 0.6),
		opp("mid-highconf", domain.RecommendBuy, 0.25, 0.9),
	}

	out := Rank(in, RankPolicy{})
	require.Len(t, out, 4)
	assert.Equal(t, "high", out[0].ID)
	// Equal margins break on confidence.
	assert.Equal(t, "mid-highconf", out[1].ID)
	assert.Equal(t, "mid-lowconf", out[2].ID)
	assert.Equal(t, "low", out[3].ID)
}

func TestRankStableOnFullTies(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("first", domain.RecommendBuy, 0.25, 0.8),
		opp("second", domain.RecommendBuy, 0.25, 0.8),
	}

	out := Rank(in, RankPolicy{})
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].ID)
	assert.Equal(t, "second", out[1].ID)
}

func TestRankDoesNotModifyInput(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("b", domain.RecommendBuy, 0.10, 0.8),
		opp("a", domain.RecommendBuy, 0.40, 0.8),
	}

	_ = Rank(in, RankPolicy{})
	assert.Equal(t, "b", in[0].ID)
	assert.Equal(t, "a", in[1].ID)
}
