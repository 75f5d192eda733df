package capability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/hupe1980/reqmesh/cache"
	"github.com/hupe1980/reqmesh/internal/util"
	"github.com/hupe1980/reqmesh/logging"
)

// Config tunes the orchestrator. Zero fields fall back to DefaultConfig.
type Config struct {
	// TaskTimeout bounds each backend call attempt.
	TaskTimeout time.Duration
	// MaxAttempts is the total number of attempts per task (first call
	// included).
	MaxAttempts int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
	// CacheTier is where successful results are memoized.
	CacheTier cache.TierName
	// Logger defaults to a NoOpLogger when nil.
	Logger logging.Logger
}

// DefaultConfig returns the baseline orchestrator tuning.
func DefaultConfig() Config {
	return Config{
		TaskTimeout: 5 * time.Second,
		MaxAttempts: 2,
		RetryDelay:  time.Second,
		CacheTier:   cache.TierMedium,
	}
}

// uiKeywords gate the prototyping capability: it only makes sense for
// requirements that describe a user interface.
var uiKeywords = []string{"ui", "component", "dashboard", "interface", "responsive"}

func uiRelated(requirement string) bool {
	lower := strings.ToLower(requirement)
	for _, kw := range uiKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Orchestrator dispatches eligible capability calls concurrently and merges
// their results. It is safe for concurrent use; the shared cache makes
// repeat dispatches for the same requirement cheap.
type Orchestrator struct {
	registry *Registry
	cache    *cache.Cache
	cfg      Config
	log      logging.Logger
	stats    counters
}

// NewOrchestrator constructs an orchestrator over the given registry and
// cache with optional config overrides.
func NewOrchestrator(registry *Registry, c *cache.Cache, optFns ...func(cfg *Config)) (*Orchestrator, error) {
	if registry == nil {
		return nil, fmt.Errorf("capability: registry must not be nil")
	}
	if c == nil {
		return nil, fmt.Errorf("capability: cache must not be nil")
	}

	cfg := DefaultConfig()
	for _, fn := range optFns {
		fn(&cfg)
	}
	def := DefaultConfig()
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = def.TaskTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.CacheTier == "" {
		cfg.CacheTier = def.CacheTier
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}

	return &Orchestrator{registry: registry, cache: c, cfg: cfg, log: cfg.Logger}, nil
}

// CacheKey returns the memoization key for one capability and requirement.
// Exposed so the session manager can restore snapshots under matching keys.
func CacheKey(capability, requirement string) string {
	return util.CacheKey("capability", capability, util.ContentHash(requirement))
}

// Dispatch runs all eligible capabilities for the requirement concurrently,
// waits for every task to settle, and returns the merged report. A
// capability's failure never aborts the batch; only a malformed descriptor
// (empty capability name) is an error.
func (o *Orchestrator) Dispatch(ctx context.Context, requirement string, enabled map[string]bool) (*Report, error) {
	for name := range enabled {
		if name == "" {
			return nil, fmt.Errorf("capability: enabled map contains empty capability name")
		}
	}

	tasks := o.eligible(requirement, enabled)
	start := time.Now()

	p := pool.NewWithResults[Result]()
	for _, task := range tasks {
		task := task
		p.Go(func() Result {
			return o.runTask(ctx, task, requirement)
		})
	}

	results := make(map[string]Result, len(tasks))
	for _, res := range p.Wait() {
		results[res.Capability] = res
	}

	report := &Report{
		Results:  results,
		Insights: deriveInsights(results),
		Duration: time.Since(start),
	}
	for _, res := range results {
		if res.Success && res.Fallback == "" {
			report.Success = true
			break
		}
	}

	o.log.Info("capability dispatch settled",
		"eligible", len(tasks),
		"success", report.Success,
		"duration", report.Duration,
	)
	return report, nil
}

// eligible filters the enabled capabilities down to dispatchable tasks,
// sorted for deterministic launch order.
func (o *Orchestrator) eligible(requirement string, enabled map[string]bool) []Backend {
	names := make([]string, 0, len(enabled))
	for name, on := range enabled {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var tasks []Backend
	for _, name := range names {
		backend, ok := o.registry.Lookup(name)
		if !ok {
			o.log.Debug("capability enabled but not available, skipping", "capability", name)
			continue
		}
		if name == Prototyping && !uiRelated(requirement) {
			o.log.Debug("requirement not UI related, skipping prototyping")
			continue
		}
		tasks = append(tasks, backend)
	}
	return tasks
}

// runTask executes one capability with memoization, timeout and retry.
func (o *Orchestrator) runTask(ctx context.Context, backend Backend, requirement string) Result {
	name := backend.Name()
	key := CacheKey(name, requirement)

	if v, ok := o.cache.Get(key); ok {
		o.stats.record(0, true, false)
		return Result{Capability: name, Success: true, Data: v, Cached: true}
	}

	in := Input{Requirement: requirement}
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		data, err := o.attempt(ctx, backend, in)
		if err == nil {
			dur := time.Since(start)
			o.cache.Set(key, data, cache.WithTier(o.cfg.CacheTier))
			o.stats.record(dur, true, false)
			return Result{Capability: name, Success: true, Data: data, Attempts: attempt, Duration: dur}
		}

		lastErr = err
		timedOut := err == context.DeadlineExceeded
		o.log.Warn("capability attempt failed",
			"capability", name,
			"attempt", attempt,
			"timeout", timedOut,
			"error", err.Error(),
		)
		if attempt < o.cfg.MaxAttempts {
			if !sleepCtx(ctx, o.cfg.RetryDelay) {
				break // caller gave up; settle with the fallback
			}
		}
	}

	dur := time.Since(start)
	o.stats.record(dur, false, lastErr == context.DeadlineExceeded)
	return Result{
		Capability: name,
		Success:    false,
		Fallback:   fallbackFor(name),
		Attempts:   o.cfg.MaxAttempts,
		Duration:   dur,
		Err:        lastErr,
	}
}

// attempt runs one backend call under the per-task timeout. The backend is
// invoked on its own goroutine with a buffered channel so an attempt that
// outlives its deadline can still finish and exit without leaking.
func (o *Orchestrator) attempt(ctx context.Context, backend Backend, in Input) (any, error) {
	actx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout)
	defer cancel()

	type settled struct {
		data any
		err  error
	}
	ch := make(chan settled, 1)
	go func() {
		data, err := backend.Analyze(actx, in)
		ch <- settled{data: data, err: err}
	}()

	select {
	case s := <-ch:
		return s.data, s.err
	case <-actx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, context.DeadlineExceeded
	}
}

// sleepCtx waits d or until ctx is cancelled; it reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
