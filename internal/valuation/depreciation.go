package valuation

import (
	"fmt"
	"math"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// DepreciationParams selects and parameterizes the age-decay curve for a
// category. Only the fields of the selected model are read.
type DepreciationParams struct {
	Model domain.DepreciationModel

	// Linear: value = base * max(0, 1 - Rate*age_months)
	Rate float64

	// Exponential: value = base * exp(-K*age_months)
	K float64

	// S-curve: value = base * (Floor + (1-Floor)/(1+exp(Slope*(age-Midpoint))))
	Floor    float64
	Slope    float64
	Midpoint float64
}

// Depreciate applies the configured curve to base at the given age. The
// result is clamped to [0, base] for every model. Negative ages are invalid
// input; an unknown model is a configuration error.
func Depreciate(base, ageMonths float64, p DepreciationParams) (float64, error) {
	if ageMonths < 0 {
		return 0, fmt.Errorf("valuation: negative age %.1f months: %w", ageMonths, domain.ErrInvalidInput)
	}

	var v float64
	switch p.Model {
	case domain.DepreciationLinear:
		v = base * math.Max(0, 1-p.Rate*ageMonths)
	case domain.DepreciationExponential:
		v = base * math.Exp(-p.K*ageMonths)
	case domain.DepreciationSCurve:
		v = base * (p.Floor + (1-p.Floor)/(1+math.Exp(p.Slope*(ageMonths-p.Midpoint))))
	default:
		return 0, fmt.Errorf("valuation: unknown depreciation model %q: %w", p.Model, domain.ErrCategoryConfig)
	}

	// Clamp to [0, base] regardless of parameter choices.
	if base >= 0 {
		v = math.Min(math.Max(v, 0), base)
	} else {
		v = 0
	}
	return v, nil
}
