package match

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// DefaultThreshold is the minimum token-set similarity (0-100) for a comp to
// count as evidence for a target title.
const DefaultThreshold = 86

// Candidate is one comp that matched the target, with its similarity score
// and the group it came from.
type Candidate struct {
	Record          domain.ComparableRecord
	Score           int
	GroupKey        string
	GroupVersion    int64
	SourceDiversity int // distinct sources in the candidate's group
}

// Config configures the matcher.
type Config struct {
	Threshold int
}

// Matcher scores comparable groups against a target title and returns the
// comps above the similarity threshold.
type Matcher struct {
	threshold int
	logger    *slog.Logger
}

// New creates a Matcher. A non-positive threshold falls back to
// DefaultThreshold.
func New(cfg Config, logger *slog.Logger) *Matcher {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{
		threshold: threshold,
		logger:    logger.With(slog.String("component", "matcher")),
	}
}

// Match returns the comps whose titles score at or above the threshold
// against the target title, ordered by score descending. Ties are broken by
// sale recency, then by the source diversity of the comp's group. Comps from
// groups in a different category are ignored when both categories are set.
//
// An empty target title is invalid input. No matches is not an error: the
// empty result means insufficient data downstream.
func (m *Matcher) Match(title, category string, corpus []domain.ComparableGroup) ([]Candidate, error) {
	target := Normalize(title)
	if target == "" {
		return nil, fmt.Errorf("match: empty target title: %w", domain.ErrInvalidInput)
	}

	var out []Candidate
	for i := range corpus {
		g := &corpus[i]
		if category != "" && g.Category != "" && g.Category != category {
			continue
		}
		diversity := distinctSources(g.Records)
		for _, rec := range g.Records {
			score := TokenSetRatio(target, rec.Title)
			if score < m.threshold {
				continue
			}
			out = append(out, Candidate{
				Record:          rec,
				Score:           score,
				GroupKey:        g.Key,
				GroupVersion:    g.Aggregate.Version,
				SourceDiversity: diversity,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].Record.SaleTimestamp.Equal(out[j].Record.SaleTimestamp) {
			return out[i].Record.SaleTimestamp.After(out[j].Record.SaleTimestamp)
		}
		return out[i].SourceDiversity > out[j].SourceDiversity
	})

	m.logger.Debug("matched candidates",
		slog.String("title", target),
		slog.Int("candidates", len(out)),
	)
	return out, nil
}

func distinctSources(recs []domain.ComparableRecord) int {
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		seen[r.Source] = struct{}{}
	}
	return len(seen)
}
