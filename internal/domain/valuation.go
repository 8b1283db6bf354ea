package domain

import "time"

// ValuationStatus is the lifecycle state of a ValuationResult.
type ValuationStatus string

const (
	ValuationPending  ValuationStatus = "PENDING"
	ValuationComputed ValuationStatus = "COMPUTED"
	ValuationStale    ValuationStatus = "STALE"
	ValuationFailed   ValuationStatus = "FAILED"
)

// DepreciationModel selects the age-decay curve applied to the comp median.
type DepreciationModel string

const (
	DepreciationLinear      DepreciationModel = "linear"
	DepreciationExponential DepreciationModel = "exponential"
	DepreciationSCurve      DepreciationModel = "scurve"
)

// Valid reports whether the model is one of the three supported curves.
func (m DepreciationModel) Valid() bool {
	switch m {
	case DepreciationLinear, DepreciationExponential, DepreciationSCurve:
		return true
	}
	return false
}

// Adjustment records one multiplicative step applied on the way from the comp
// median to the final fair value, in application order.
type Adjustment struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// ValuationResult is the condition- and depreciation-adjusted fair value for
// one listing, computed against one version of a comparable group.
type ValuationResult struct {
	ListingID         string            `json:"listing_id"`
	FairValue         *float64          `json:"fair_value_estimate,omitempty"`
	Confidence        float64           `json:"confidence"`
	Adjustments       []Adjustment      `json:"adjustments_applied,omitempty"`
	DepreciationModel DepreciationModel `json:"depreciation_model,omitempty"`
	Status            ValuationStatus   `json:"status"`
	FailureKind       ErrorKind         `json:"failure_kind,omitempty"`
	CompGroupKey      string            `json:"comp_group_key,omitempty"`
	CompGroupVersion  int64             `json:"comp_group_version"`
	ComputedAt        time.Time         `json:"computed_at"`
}
