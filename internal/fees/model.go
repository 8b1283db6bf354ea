// Package fees converts a hypothetical sale price into net proceeds under a
// platform's fee schedule.
package fees

import (
	"fmt"
	"log/slog"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// Model holds the fee schedules for every configured resale platform.
type Model struct {
	schedules map[string]domain.FeeSchedule
	logger    *slog.Logger
}

// New creates a Model from the configured schedules.
func New(schedules map[string]domain.FeeSchedule, logger *slog.Logger) *Model {
	copied := make(map[string]domain.FeeSchedule, len(schedules))
	for id, s := range schedules {
		s.PlatformID = id
		copied[id] = s
	}
	return &Model{
		schedules: copied,
		logger:    logger.With(slog.String("component", "fee_model")),
	}
}

// Schedule returns the fee schedule for a platform. A missing schedule is a
// configuration error scoped to this lookup, never a batch abort.
func (m *Model) Schedule(platformID string) (domain.FeeSchedule, error) {
	s, ok := m.schedules[platformID]
	if !ok {
		return domain.FeeSchedule{}, fmt.Errorf("fees: platform %q: %w", platformID, domain.ErrMissingFeeSchedule)
	}
	return s, nil
}

// NetProceeds computes what a sale at salePrice on the platform nets after
// fees and the shipping estimate.
func (m *Model) NetProceeds(platformID string, salePrice float64) (float64, error) {
	s, err := m.Schedule(platformID)
	if err != nil {
		return 0, err
	}
	return Net(s, salePrice), nil
}

// Net applies one schedule to a sale price:
//
//	net = price - insertion - final_value_fee - payment_fee - payment_fixed - shipping
//
// Each percentage fee is capped individually at the schedule's cap when one
// is configured.
func Net(s domain.FeeSchedule, salePrice float64) float64 {
	finalValueFee := capFee(s.FinalValuePct*salePrice, s.Cap)
	paymentFee := capFee(s.PaymentPct*salePrice, s.Cap)
	return salePrice - s.InsertionFixed - finalValueFee - paymentFee - s.PaymentFixed - s.ShippingEstimate
}

func capFee(fee, cap float64) float64 {
	if cap > 0 && fee > cap {
		return cap
	}
	return fee
}
