package domain

import "time"

// ConditionTag is the normalized condition label attached to a listing or
// comparable by the collector.
type ConditionTag string

const (
	ConditionNew       ConditionTag = "new"
	ConditionLikeNew   ConditionTag = "like_new"
	ConditionExcellent ConditionTag = "excellent"
	ConditionGood      ConditionTag = "good"
	ConditionFair      ConditionTag = "fair"
	ConditionPoor      ConditionTag = "poor"
	ConditionForParts  ConditionTag = "for_parts"
)

// ConditionTiers lists all condition tags from best to worst. Multiplier
// tables are validated against this ordering.
var ConditionTiers = []ConditionTag{
	ConditionNew,
	ConditionLikeNew,
	ConditionExcellent,
	ConditionGood,
	ConditionFair,
	ConditionPoor,
	ConditionForParts,
}

// Valid reports whether the tag is one of the seven known tiers.
func (c ConditionTag) Valid() bool {
	for _, t := range ConditionTiers {
		if c == t {
			return true
		}
	}
	return false
}

// DamageDescriptor describes a single observed defect on an item.
type DamageDescriptor struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	Severity string `json:"severity"`
}

// ListingAttributes carries the physical attributes the adjuster needs.
type ListingAttributes struct {
	AgeMonths       float64            `json:"age_months"`
	CompletenessPct float64            `json:"completeness_pct"`
	Damage          []DamageDescriptor `json:"damage_descriptors,omitempty"`
}

// ListingRecord is a live listing produced by the collector. Records are
// immutable once ingested; only metadata refresh (re-upsert by ID) is allowed.
type ListingRecord struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"` // normalized by the collector
	Price        float64           `json:"price"`
	Currency     string            `json:"currency"`
	Condition    ConditionTag      `json:"condition_tag"`
	CategoryPath string            `json:"category_path"`
	Timestamp    time.Time         `json:"timestamp"`
	Source       string            `json:"source"`
	Attributes   ListingAttributes `json:"attributes"`
}
