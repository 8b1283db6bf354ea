package domain

import "time"

// Recommendation is the categorical buy decision for an opportunity.
type Recommendation string

const (
	RecommendBuy   Recommendation = "BUY"
	RecommendWatch Recommendation = "WATCH"
	RecommendSkip  Recommendation = "SKIP"
)

// SkipReason explains a SKIP recommendation. Consumers must treat
// insufficient_data differently from margin- or confidence-based skips.
type SkipReason string

const (
	SkipInsufficientData SkipReason = "insufficient_data"
	SkipBelowMinMargin   SkipReason = "below_min_margin"
	SkipLowConfidence    SkipReason = "low_confidence"
)

// ArbitrageOpportunity is the fee-aware profit decision for one listing.
type ArbitrageOpportunity struct {
	ID               string         `json:"id"`
	ListingID        string         `json:"listing_id"`
	Platform         string         `json:"platform"` // resale platform the fees were modeled on
	FairValue        float64        `json:"fair_value"`
	AcquisitionPrice float64        `json:"acquisition_price"`
	NetProceeds      float64        `json:"net_proceeds"`
	MarginAbsolute   float64        `json:"margin_absolute"`
	MarginPct        float64        `json:"margin_pct"`
	Recommendation   Recommendation `json:"recommendation"`
	Confidence       float64        `json:"confidence"`
	Reason           SkipReason     `json:"reason,omitempty"`
	DetectedAt       time.Time      `json:"detected_at"`
}
