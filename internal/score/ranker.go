package score

import (
	"sort"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// RankPolicy controls which opportunities survive ranking. The zero value
// keeps BUY and WATCH and drops every SKIP.
type RankPolicy struct {
	// IncludeSkips keeps SKIP opportunities in the ranked output (e.g. for
	// diagnostics dashboards).
	IncludeSkips bool
	// MinMarginPct drops opportunities below this margin fraction when > 0.
	MinMarginPct float64
}

// Rank filters opportunities per the policy and sorts the survivors
// descending by margin percentage, then confidence. The sort is stable, so
// full ties preserve input order. The input slice is not modified.
func Rank(opps []domain.ArbitrageOpportunity, policy RankPolicy) []domain.ArbitrageOpportunity {
	out := make([]domain.ArbitrageOpportunity, 0, len(opps))
	for _, opp := range opps {
		if !policy.IncludeSkips && opp.Recommendation == domain.RecommendSkip {
			continue
		}
		if policy.MinMarginPct > 0 && opp.MarginPct < policy.MinMarginPct {
			continue
		}
		out = append(out, opp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MarginPct != out[j].MarginPct {
			return out[i].MarginPct > out[j].MarginPct
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
