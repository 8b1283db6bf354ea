// Package corpus maintains the in-memory arena of comparable groups: comps
// binned by fuzzy title match within a category, each group carrying a cached,
// versioned aggregate.
package corpus

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/cloudcurio/arbfinder/internal/aggregate"
	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/cloudcurio/arbfinder/internal/match"
)

// Config configures the index.
type Config struct {
	// Threshold is the token-set similarity at or above which a new comp
	// joins an existing group instead of founding its own.
	Threshold int
	// HalflifeDays feeds the aggregate's decay weighting.
	HalflifeDays float64
}

// Index is the comp arena. Group membership and aggregates are mutated under
// a per-group lock (single-writer discipline); readers get stable snapshots.
type Index struct {
	mu     sync.RWMutex
	groups map[string]*entry
	order  []string // group keys in creation order, for deterministic binning

	agg       *aggregate.Aggregator
	threshold int
	now       func() time.Time
}

type entry struct {
	mu sync.RWMutex
	g  domain.ComparableGroup
}

// New creates an empty index.
func New(cfg Config) *Index {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = match.DefaultThreshold
	}
	return &Index{
		groups:    make(map[string]*entry),
		agg:       aggregate.New(cfg.HalflifeDays),
		threshold: threshold,
		now:       time.Now,
	}
}

// Key derives the stable group key from a normalized title and category.
func Key(title, category string) string {
	h := fnv.New64a()
	h.Write([]byte(match.Normalize(title)))
	h.Write([]byte{'|'})
	h.Write([]byte(category))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Add ingests one comp into the group it fuzzy-matches within category,
// creating the group when nothing matches. The group's aggregate is
// recomputed and its version advanced before Add returns. The chosen group
// key is returned.
func (ix *Index) Add(category string, comp domain.ComparableRecord) (string, error) {
	title := match.Normalize(comp.Title)
	if title == "" {
		return "", fmt.Errorf("corpus: empty comp title: %w", domain.ErrInvalidInput)
	}
	if comp.SalePrice <= 0 {
		return "", fmt.Errorf("corpus: comp %q sale price %.2f: %w", comp.Title, comp.SalePrice, domain.ErrInvalidInput)
	}

	e := ix.findOrCreate(title, category)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.g.Records = append(e.g.Records, comp)
	ix.recomputeLocked(e)
	return e.g.Key, nil
}

// AddBatch ingests comps one by one with per-record isolation: invalid comps
// are skipped and reported, valid ones still land. It returns the number
// ingested.
func (ix *Index) AddBatch(category string, comps []domain.ComparableRecord) (int, error) {
	var added int
	var firstErr error
	for _, c := range comps {
		if _, err := ix.Add(category, c); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		added++
	}
	return added, firstErr
}

// Get returns a snapshot of the group with the given key.
func (ix *Index) Get(key string) (domain.ComparableGroup, bool) {
	ix.mu.RLock()
	e, ok := ix.groups[key]
	ix.mu.RUnlock()
	if !ok {
		return domain.ComparableGroup{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return snapshot(&e.g), true
}

// Version returns the current aggregate version of a group.
func (ix *Index) Version(key string) (int64, bool) {
	ix.mu.RLock()
	e, ok := ix.groups[key]
	ix.mu.RUnlock()
	if !ok {
		return 0, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.Aggregate.Version, true
}

// Groups returns snapshots of every group in creation order.
func (ix *Index) Groups() []domain.ComparableGroup {
	ix.mu.RLock()
	keys := make([]string, len(ix.order))
	copy(keys, ix.order)
	entries := make([]*entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, ix.groups[k])
	}
	ix.mu.RUnlock()

	out := make([]domain.ComparableGroup, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, snapshot(&e.g))
		e.mu.RUnlock()
	}
	return out
}

// Len returns the number of groups.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.groups)
}

// findOrCreate locates the first existing group in the category whose
// exemplar title fuzzy-matches, or founds a new group keyed by this title.
func (ix *Index) findOrCreate(title, category string) *entry {
	ix.mu.RLock()
	if e := ix.scanLocked(title, category); e != nil {
		ix.mu.RUnlock()
		return e
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	// Re-check under the write lock; another writer may have founded it.
	if e := ix.scanLocked(title, category); e != nil {
		return e
	}
	key := Key(title, category)
	e := &entry{g: domain.ComparableGroup{
		Key:      key,
		Title:    title,
		Category: category,
	}}
	ix.groups[key] = e
	ix.order = append(ix.order, key)
	return e
}

func (ix *Index) scanLocked(title, category string) *entry {
	for _, key := range ix.order {
		e := ix.groups[key]
		if e.g.Category != category {
			continue
		}
		if match.TokenSetRatio(title, e.g.Title) >= ix.threshold {
			return e
		}
	}
	return nil
}

// recomputeLocked refreshes the cached aggregate after a membership change.
// Caller holds the entry lock.
func (ix *Index) recomputeLocked(e *entry) {
	now := ix.now()
	stats, err := ix.agg.Reduce(e.g.Records, now)
	if err != nil {
		// Only possible for an empty group, which Add never produces.
		return
	}
	e.g.Aggregate = domain.Aggregate{
		Avg:         stats.Avg,
		Median:      stats.Median,
		P25:         stats.P25,
		P75:         stats.P75,
		SampleCount: stats.SampleCount,
		TrendSlope:  stats.TrendSlope,
		LastUpdated: now,
		Version:     e.g.Aggregate.Version + 1,
	}
}

func snapshot(g *domain.ComparableGroup) domain.ComparableGroup {
	out := *g
	out.Records = make([]domain.ComparableRecord, len(g.Records))
	copy(out.Records, g.Records)
	if g.Aggregate.TrendSlope != nil {
		slope := *g.Aggregate.TrendSlope
		out.Aggregate.TrendSlope = &slope
	}
	return out
}
