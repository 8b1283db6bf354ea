package domain

// FeeSchedule describes one resale platform's fee structure. Percentage
// components are fractions (0.10 == 10%). Cap, when positive, limits each
// percentage fee individually; zero means uncapped.
type FeeSchedule struct {
	PlatformID       string  `json:"platform_id"`
	InsertionFixed   float64 `json:"insertion_fixed"`
	FinalValuePct    float64 `json:"final_value_pct"`
	PaymentPct       float64 `json:"payment_pct"`
	PaymentFixed     float64 `json:"payment_fixed"`
	Cap              float64 `json:"cap"`
	ShippingEstimate float64 `json:"shipping_estimate"`
}
