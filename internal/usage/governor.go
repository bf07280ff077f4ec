package usage

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

const (
	CategoryMapMatching = "map_matching"

	monthLayout = "2006-01"
)

var defaultPrices = map[string]float64{
	CategoryMapMatching: 0.002,
}

// Record tracks one API category for one calendar month.
type Record struct {
	Month      string  `json:"month"`
	Count      int     `json:"count"`
	LastUsedMs int64   `json:"last_used_ms"`
	TotalCost  float64 `json:"total_cost"`
}

// Stats is the month-to-date view across all metered categories.
type Stats struct {
	Month          string            `json:"month"`
	Categories     map[string]Record `json:"categories"`
	TotalCost      float64           `json:"total_cost"`
	WithinFreeTier bool              `json:"within_free_tier"`
	FreeTierLimit  int               `json:"free_tier_limit"`
}

// Governor meters external API consumption against a monthly free
// tier. It is purely advisory: it counts, estimates cost, and warns,
// but never blocks a call.
type Governor struct {
	store    Store
	freeTier int
	prices   map[string]float64
	now      func() time.Time
}

func NewGovernor(store Store, freeTier int) *Governor {
	return &Governor{
		store:    store,
		freeTier: freeTier,
		prices:   defaultPrices,
		now:      time.Now,
	}
}

func usageKey(category string) string {
	return "usage:" + category
}

// load reads the stored record for a category, starting a fresh one
// when nothing is stored or the stored month has rolled over.
func (g *Governor) load(ctx context.Context, category, month string) (Record, error) {
	raw, err := g.store.Get(ctx, usageKey(category))
	if err != nil {
		return Record{}, err
	}
	fresh := Record{Month: month}
	if raw == "" {
		return fresh, nil
	}
	var stored Record
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("usage record for %s unreadable, starting over: %v", category, err)
		return fresh, nil
	}
	if stored.Month != month {
		return fresh, nil
	}
	return stored, nil
}

// Track records consumed calls for a category. The stored counter is
// read immediately before the write so a month rollover between calls
// never resurrects a stale total.
func (g *Governor) Track(ctx context.Context, category string, calls int) error {
	if calls <= 0 {
		return nil
	}
	now := g.now()
	month := now.Format(monthLayout)

	record, err := g.load(ctx, category, month)
	if err != nil {
		return err
	}

	before := record.Count
	record.Count += calls
	record.LastUsedMs = now.UnixMilli()
	record.TotalCost += g.prices[category] * float64(calls)

	if threshold := 0.8 * float64(g.freeTier); g.freeTier > 0 &&
		float64(before) <= threshold && float64(record.Count) > threshold {
		log.Printf("usage warning: %s at %d calls this month, past 80%% of the %d-call free tier",
			category, record.Count, g.freeTier)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, usageKey(category), string(payload))
}

// Stats reports the month-to-date consumption across all categories.
func (g *Governor) Stats(ctx context.Context) (Stats, error) {
	month := g.now().Format(monthLayout)
	stats := Stats{
		Month:          month,
		Categories:     map[string]Record{},
		WithinFreeTier: true,
		FreeTierLimit:  g.freeTier,
	}
	for category := range g.prices {
		record, err := g.load(ctx, category, month)
		if err != nil {
			return Stats{}, err
		}
		stats.Categories[category] = record
		stats.TotalCost += record.TotalCost
		if g.freeTier > 0 && record.Count > g.freeTier {
			stats.WithinFreeTier = false
		}
	}
	return stats, nil
}

// WithinFreeTier reports whether every metered category is still under
// the monthly ceiling.
func (g *Governor) WithinFreeTier(ctx context.Context) (bool, error) {
	stats, err := g.Stats(ctx)
	if err != nil {
		return false, err
	}
	return stats.WithinFreeTier, nil
}

// MonthlyCost is the estimated spend for the current month.
func (g *Governor) MonthlyCost(ctx context.Context) (float64, error) {
	stats, err := g.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.TotalCost, nil
}
