package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/reqmesh/logging"
)

// TierName identifies one of the three cache lifetimes.
type TierName string

const (
	// TierShort holds per-interaction values (default 5 minute TTL).
	TierShort TierName = "short"
	// TierMedium holds per-session values (default 30 minute TTL).
	TierMedium TierName = "medium"
	// TierLong holds cross-session values (default 24 hour TTL).
	TierLong TierName = "long"
)

// TierConfig bounds one tier.
type TierConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// Config tunes the cache. All values have working defaults; zero fields are
// replaced by the corresponding DefaultConfig value.
type Config struct {
	Short  TierConfig
	Medium TierConfig
	Long   TierConfig

	// PromoteToMediumHits is the hit count above which an entry is copied
	// into the medium tier.
	PromoteToMediumHits uint64
	// PromoteToLongHits is the hit count above which an entry is additionally
	// copied into the long tier.
	PromoteToLongHits uint64

	// SweepInterval is the period of the background expiry sweep.
	SweepInterval time.Duration

	// Logger defaults to a NoOpLogger when nil.
	Logger logging.Logger
}

// DefaultConfig returns the baseline tier sizes, TTLs and thresholds.
func DefaultConfig() Config {
	return Config{
		Short:               TierConfig{MaxEntries: 100, TTL: 5 * time.Minute},
		Medium:              TierConfig{MaxEntries: 50, TTL: 30 * time.Minute},
		Long:                TierConfig{MaxEntries: 20, TTL: 24 * time.Hour},
		PromoteToMediumHits: 5,
		PromoteToLongHits:   10,
		SweepInterval:       60 * time.Second,
	}
}

// entry is a cached value owned exclusively by its tier. An entry is expired
// iff now - created > ttl, checked on every read.
type entry struct {
	value   any
	created time.Time
	ttl     time.Duration
	hits    uint64
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.created) > e.ttl
}

// tierCounters are updated atomically; eventual consistency of observed
// stats is acceptable.
type tierCounters struct {
	hits       atomic.Uint64
	evictions  atomic.Uint64
	promotions atomic.Uint64
	expired    atomic.Uint64
}

type tier struct {
	name       TierName
	max        int
	defaultTTL time.Duration
	entries    map[string]*entry
	counters   tierCounters
}

// Cache is the tiered store. It is safe for concurrent use by all capability
// calls and sessions; writes are last-write-wins per key.
type Cache struct {
	mu    sync.Mutex
	cfg   Config
	tiers []*tier // fastest lifetime first
	log   logging.Logger

	misses atomic.Uint64
	lookup atomic.Uint64

	// now is replaceable in tests for deterministic expiry.
	now func() time.Time

	lifecycleMu sync.Mutex
	stop        chan struct{}
	done        chan struct{}
}

// New constructs a cache with optional config overrides.
func New(optFns ...func(c *Config)) *Cache {
	cfg := DefaultConfig()
	for _, fn := range optFns {
		fn(&cfg)
	}
	def := DefaultConfig()
	if cfg.Short.MaxEntries <= 0 {
		cfg.Short = def.Short
	}
	if cfg.Medium.MaxEntries <= 0 {
		cfg.Medium = def.Medium
	}
	if cfg.Long.MaxEntries <= 0 {
		cfg.Long = def.Long
	}
	if cfg.PromoteToMediumHits == 0 {
		cfg.PromoteToMediumHits = def.PromoteToMediumHits
	}
	if cfg.PromoteToLongHits == 0 {
		cfg.PromoteToLongHits = def.PromoteToLongHits
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}

	return &Cache{
		cfg: cfg,
		tiers: []*tier{
			{name: TierShort, max: cfg.Short.MaxEntries, defaultTTL: cfg.Short.TTL, entries: map[string]*entry{}},
			{name: TierMedium, max: cfg.Medium.MaxEntries, defaultTTL: cfg.Medium.TTL, entries: map[string]*entry{}},
			{name: TierLong, max: cfg.Long.MaxEntries, defaultTTL: cfg.Long.TTL, entries: map[string]*entry{}},
		},
		log: cfg.Logger,
		now: time.Now,
	}
}

// EntryOptions select the target tier and TTL for a stored value.
type EntryOptions struct {
	Tier TierName
	TTL  time.Duration
}

// EntryOption mutates EntryOptions.
type EntryOption func(o *EntryOptions)

// WithTier targets a specific tier (default TierShort).
func WithTier(t TierName) EntryOption {
	return func(o *EntryOptions) { o.Tier = t }
}

// WithTTL overrides the tier's default TTL for this entry.
func WithTTL(d time.Duration) EntryOption {
	return func(o *EntryOptions) { o.TTL = d }
}

// Get scans the tiers fastest-first and returns the first non-expired value.
// A hit bumps the entry's hit count and may promote a copy into a longer
// lived tier. A miss returns (nil, false).
func (c *Cache) Get(key string) (any, bool) {
	c.lookup.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for i, t := range c.tiers {
		e, ok := t.entries[key]
		if !ok {
			continue
		}
		if e.expired(now) {
			delete(t.entries, key)
			t.counters.expired.Add(1)
			continue
		}
		e.hits++
		t.counters.hits.Add(1)
		c.promoteLocked(key, e, i, now)
		return e.value, true
	}

	c.misses.Add(1)
	return nil, false
}

// GetOrFetch returns the cached value for key or, on a full miss, invokes
// fetcher, stores its result at the requested tier (default short) and
// returns it. A fetcher error propagates unmodified and nothing is stored.
func (c *Cache) GetOrFetch(key string, fetcher func() (any, error), optFns ...EntryOption) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetcher()
	if err != nil {
		return nil, err
	}
	c.Set(key, v, optFns...)
	return v, nil
}

// Set stores value at the target tier, evicting that tier's oldest entries
// (by creation timestamp ascending) until an insert slot is free.
func (c *Cache) Set(key string, value any, optFns ...EntryOption) {
	opts := EntryOptions{Tier: TierShort}
	for _, fn := range optFns {
		fn(&opts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.tierLocked(opts.Tier)
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	c.insertLocked(t, key, &entry{value: value, created: c.now(), ttl: ttl})
}

// Delete removes key from every tier.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tiers {
		delete(t.entries, key)
	}
}

// Clear drops all entries from all tiers. Counters are retained.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tiers {
		t.entries = map[string]*entry{}
	}
}

// insertLocked places e into t respecting the tier's max size. Overwriting
// an existing key does not grow the tier, so no eviction is needed.
func (c *Cache) insertLocked(t *tier, key string, e *entry) {
	if _, exists := t.entries[key]; !exists && len(t.entries) >= t.max {
		c.evictOldestLocked(t, len(t.entries)-t.max+1)
	}
	t.entries[key] = e
}

// evictOldestLocked removes n entries ordered by creation timestamp
// ascending. Insertion-order FIFO, deliberately not access-recency LRU.
func (c *Cache) evictOldestLocked(t *tier, n int) {
	type aged struct {
		key     string
		created time.Time
	}
	candidates := make([]aged, 0, len(t.entries))
	for k, e := range t.entries {
		candidates = append(candidates, aged{key: k, created: e.created})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].created.Before(candidates[j].created)
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	for _, victim := range candidates[:n] {
		delete(t.entries, victim.key)
		t.counters.evictions.Add(1)
	}
	if n > 0 {
		c.log.Debug("cache entries evicted", "tier", string(t.name), "count", n)
	}
}

// promoteLocked copies a hot entry into longer lived tiers once its hit
// count crosses the configured thresholds. The source tier keeps its entry.
func (c *Cache) promoteLocked(key string, e *entry, tierIdx int, now time.Time) {
	if e.hits > c.cfg.PromoteToMediumHits && tierIdx == 0 {
		if _, ok := c.tiers[1].entries[key]; !ok {
			c.insertLocked(c.tiers[1], key, &entry{value: e.value, created: now, ttl: c.tiers[1].defaultTTL})
			c.tiers[1].counters.promotions.Add(1)
		}
	}
	if e.hits > c.cfg.PromoteToLongHits && tierIdx < 2 {
		if _, ok := c.tiers[2].entries[key]; !ok {
			c.insertLocked(c.tiers[2], key, &entry{value: e.value, created: now, ttl: c.tiers[2].defaultTTL})
			c.tiers[2].counters.promotions.Add(1)
		}
	}
}

func (c *Cache) tierLocked(name TierName) *tier {
	switch name {
	case TierMedium:
		return c.tiers[1]
	case TierLong:
		return c.tiers[2]
	default:
		return c.tiers[0]
	}
}

// Start launches the periodic expiry sweep. It returns immediately; the
// sweep stops when ctx is cancelled or Stop is called.
func (c *Cache) Start(ctx context.Context) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.stop != nil {
		return // already running
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(c.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				c.SweepNow()
			}
		}
	}(c.stop, c.done)
}

// Stop terminates the sweep loop and waits for it to finish.
func (c *Cache) Stop() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
	c.done = nil
}

// SweepNow removes expired entries from every tier. Exposed so tests and
// callers that disable the background sweep can single-step it.
func (c *Cache) SweepNow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, t := range c.tiers {
		for k, e := range t.entries {
			if e.expired(now) {
				delete(t.entries, k)
				t.counters.expired.Add(1)
			}
		}
	}
}
