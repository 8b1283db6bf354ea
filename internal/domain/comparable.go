package domain

import "time"

// ComparableRecord is a historical sale used as pricing evidence. Immutable.
type ComparableRecord struct {
	Title         string       `json:"title"`
	SalePrice     float64      `json:"sale_price"`
	SaleTimestamp time.Time    `json:"sale_timestamp"`
	Source        string       `json:"source"`
	Condition     ConditionTag `json:"condition_tag"`
}

// Aggregate is the cached statistical summary of a ComparableGroup. It is
// recomputed, and Version incremented, whenever group membership changes.
type Aggregate struct {
	Avg         float64   `json:"avg"`
	Median      float64   `json:"median"`
	P25         float64   `json:"p25"`
	P75         float64   `json:"p75"`
	SampleCount int       `json:"sample_count"`
	TrendSlope  *float64  `json:"trend_slope,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	Version     int64     `json:"version"`
}

// ComparableGroup owns the comps that fuzzy-matched a single exemplar title
// within one category, plus the cached aggregate over them.
//
// Invariants: Aggregate.SampleCount == len(Records), and
// P25 <= Median <= P75 whenever SampleCount >= 1.
type ComparableGroup struct {
	Key       string             `json:"key"` // normalized-title/category hash
	Title     string             `json:"title"`
	Category  string             `json:"category"`
	Records   []ComparableRecord `json:"records"`
	Aggregate Aggregate          `json:"aggregate"`
}
