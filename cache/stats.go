package cache

// TierStats is an observability snapshot for one tier.
type TierStats struct {
	Size       int     `json:"size"`
	Hits       uint64  `json:"hits"`
	Evictions  uint64  `json:"evictions"`
	Promotions uint64  `json:"promotions"`
	Expired    uint64  `json:"expired"`
	HitShare   float64 `json:"hit_share"` // fraction of all hits served by this tier
}

// Stats is an observability snapshot for the whole cache.
type Stats struct {
	Tiers   map[TierName]TierStats `json:"tiers"`
	Lookups uint64                 `json:"lookups"`
	Misses  uint64                 `json:"misses"`
	HitRate float64                `json:"hit_rate"`
}

// Stats returns a point-in-time snapshot of sizes and counters. Counters are
// read atomically; the snapshot is eventually consistent with in-flight ops.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	sizes := make(map[TierName]int, len(c.tiers))
	for _, t := range c.tiers {
		sizes[t.name] = len(t.entries)
	}
	c.mu.Unlock()

	var totalHits uint64
	tiers := make(map[TierName]TierStats, len(c.tiers))
	for _, t := range c.tiers {
		ts := TierStats{
			Size:       sizes[t.name],
			Hits:       t.counters.hits.Load(),
			Evictions:  t.counters.evictions.Load(),
			Promotions: t.counters.promotions.Load(),
			Expired:    t.counters.expired.Load(),
		}
		totalHits += ts.Hits
		tiers[t.name] = ts
	}
	if totalHits > 0 {
		for name, ts := range tiers {
			ts.HitShare = float64(ts.Hits) / float64(totalHits)
			tiers[name] = ts
		}
	}

	lookups := c.lookup.Load()
	misses := c.misses.Load()
	s := Stats{Tiers: tiers, Lookups: lookups, Misses: misses}
	if lookups > 0 {
		s.HitRate = float64(lookups-misses) / float64(lookups)
	}
	return s
}
