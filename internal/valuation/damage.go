package valuation

import (
	"fmt"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// MaxTotalDeduction caps the combined damage deduction so damage alone never
// drives a value to zero.
const MaxTotalDeduction = 0.80

// Wildcard matches any value in a DamageKey dimension.
const Wildcard = "*"

// DamageKey addresses one cell of the damage matrix.
type DamageKey struct {
	Type     string
	Location string
	Severity string
}

// DamageMatrix maps (type, location, severity) to a deduction fraction in
// [0,1). Lookups fall back from the exact key to a location wildcard, then a
// type wildcard, so a sparse matrix can still cover unexpected descriptors.
type DamageMatrix map[DamageKey]float64

// Validate checks every deduction is in [0,1).
func (m DamageMatrix) Validate() error {
	for k, d := range m {
		if d < 0 || d >= 1 {
			return fmt.Errorf("valuation: damage deduction %v=%.3f out of [0,1): %w", k, d, domain.ErrCategoryConfig)
		}
	}
	return nil
}

// Deduction resolves the deduction fraction for one descriptor. Descriptors
// with no matching cell deduct nothing.
func (m DamageMatrix) Deduction(d domain.DamageDescriptor) (float64, bool) {
	keys := []DamageKey{
		{d.Type, d.Location, d.Severity},
		{d.Type, Wildcard, d.Severity},
		{Wildcard, Wildcard, d.Severity},
	}
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return 0, false
}

// Combined folds all descriptors into one total deduction. Deductions combine
// multiplicatively, 1 - prod(1 - d_i), so stacked damage is never
// double-penalized, and the total is capped at MaxTotalDeduction.
func (m DamageMatrix) Combined(ds []domain.DamageDescriptor) float64 {
	remaining := 1.0
	for _, d := range ds {
		frac, ok := m.Deduction(d)
		if !ok {
			continue
		}
		remaining *= 1 - frac
	}
	total := 1 - remaining
	if total > MaxTotalDeduction {
		total = MaxTotalDeduction
	}
	return total
}
