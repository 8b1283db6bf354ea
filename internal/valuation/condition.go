package valuation

import (
	"fmt"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// ConditionTable maps each of the seven condition tiers to a multiplier in
// [0,1]. Tables must be non-increasing from New down to For-Parts.
type ConditionTable map[domain.ConditionTag]float64

// DefaultConditionTable returns the baseline 7-tier multiplier table.
func DefaultConditionTable() ConditionTable {
	return ConditionTable{
		domain.ConditionNew:       1.00,
		domain.ConditionLikeNew:   0.90,
		domain.ConditionExcellent: 0.80,
		domain.ConditionGood:      0.65,
		domain.ConditionFair:      0.45,
		domain.ConditionPoor:      0.30,
		domain.ConditionForParts:  0.10,
	}
}

// Merge returns a copy of the default table with the entries of t layered on
// top, so per-category overrides only need to name the tiers they change.
func (t ConditionTable) Merge() ConditionTable {
	out := DefaultConditionTable()
	for tag, mult := range t {
		out[tag] = mult
	}
	return out
}

// Validate checks that every tier is present, every multiplier is in [0,1],
// and multipliers never increase from better to worse condition.
func (t ConditionTable) Validate() error {
	prev := 1.0
	for i, tier := range domain.ConditionTiers {
		mult, ok := t[tier]
		if !ok {
			return fmt.Errorf("valuation: condition table missing tier %q: %w", tier, domain.ErrCategoryConfig)
		}
		if mult < 0 || mult > 1 {
			return fmt.Errorf("valuation: condition multiplier for %q out of [0,1]: %w", tier, domain.ErrCategoryConfig)
		}
		if i > 0 && mult > prev {
			return fmt.Errorf("valuation: condition multipliers increase at tier %q: %w", tier, domain.ErrCategoryConfig)
		}
		prev = mult
	}
	return nil
}

// Multiplier returns the multiplier for a condition tag.
func (t ConditionTable) Multiplier(c domain.ConditionTag) (float64, error) {
	mult, ok := t[c]
	if !ok {
		return 0, fmt.Errorf("valuation: unknown condition %q: %w", c, domain.ErrInvalidInput)
	}
	return mult, nil
}
