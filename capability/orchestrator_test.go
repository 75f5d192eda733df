package capability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reqmesh/cache"
)

// stubBackend is a lightweight Backend used to drive the orchestrator in
// tests: it can succeed with canned data, fail, or block past the timeout.
type stubBackend struct {
	name  string
	data  any
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Analyze(ctx context.Context, in Input) (any, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func newTestOrchestrator(t *testing.T, backends []Backend, optFns ...func(cfg *Config)) (*Orchestrator, *cache.Cache) {
	t.Helper()
	reg := NewRegistry()
	for _, b := range backends {
		require.NoError(t, reg.Register(b))
	}
	c := cache.New()
	base := func(cfg *Config) {
		cfg.TaskTimeout = 50 * time.Millisecond
		cfg.RetryDelay = 5 * time.Millisecond
	}
	o, err := NewOrchestrator(reg, c, append([]func(cfg *Config){base}, optFns...)...)
	require.NoError(t, err)
	return o, c
}

func TestRegistry_RejectsMalformedBackends(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(&stubBackend{name: ""}))

	require.NoError(t, reg.Register(&stubBackend{name: "x"}))
	assert.True(t, reg.Available("x"))
	reg.Deregister("x")
	assert.False(t, reg.Available("x"))
}

func TestDispatch_SSOScenario(t *testing.T) {
	// decomposition and validation available, prototyping not registered.
	decomp := &stubBackend{name: Decomposition, data: DecompositionResult{
		Components: []string{"auth service", "sso integration"},
		Risks:      []string{"token expiry handling"},
		Complexity: "moderate",
	}}
	valid := &stubBackend{name: Validation, data: ValidationResult{
		Constraints: []string{"SAML 2.0 required"},
	}}
	o, _ := newTestOrchestrator(t, []Backend{decomp, valid})

	report, err := o.Dispatch(context.Background(), "implement user authentication with SSO", map[string]bool{
		Decomposition: true,
		Validation:    true,
		Prototyping:   true, // enabled but unavailable: skipped, not attempted
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.True(t, report.Success)
	assert.True(t, report.Results[Decomposition].Success)
	assert.True(t, report.Results[Validation].Success)
	assert.Contains(t, report.Insights, "1 risk(s) requiring attention")
	assert.Contains(t, report.Insights, "1 technical constraint(s) found")
}

func TestDispatch_PrototypingRequiresUIKeyword(t *testing.T) {
	proto := &stubBackend{name: Prototyping, data: PrototypeResult{Outline: []string{"form"}}}
	o, _ := newTestOrchestrator(t, []Backend{proto})

	report, err := o.Dispatch(context.Background(), "build a billing batch job", map[string]bool{Prototyping: true})
	require.NoError(t, err)
	assert.Empty(t, report.Results, "non-UI requirement must not dispatch prototyping")
	assert.Equal(t, int32(0), proto.calls.Load())

	report, err = o.Dispatch(context.Background(), "build a responsive billing dashboard", map[string]bool{Prototyping: true})
	require.NoError(t, err)
	assert.Len(t, report.Results, 1)
	assert.True(t, report.Results[Prototyping].Success)
}

func TestDispatch_DisabledCapabilitySkipped(t *testing.T) {
	decomp := &stubBackend{name: Decomposition, data: DecompositionResult{}}
	o, _ := newTestOrchestrator(t, []Backend{decomp})

	report, err := o.Dispatch(context.Background(), "add search", map[string]bool{Decomposition: false})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, int32(0), decomp.calls.Load())
}

func TestDispatch_EmptyCapabilityNameIsContractViolation(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	_, err := o.Dispatch(context.Background(), "add search", map[string]bool{"": true})
	assert.Error(t, err)
}

func TestDispatch_FailureCarriesFallbackWithoutAbortingBatch(t *testing.T) {
	decomp := &stubBackend{name: Decomposition, data: DecompositionResult{Components: []string{"search"}}}
	valid := &stubBackend{name: Validation, err: errors.New("backend exploded")}
	o, _ := newTestOrchestrator(t, []Backend{decomp, valid})

	report, err := o.Dispatch(context.Background(), "add search", map[string]bool{
		Decomposition: true,
		Validation:    true,
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.True(t, report.Success, "one genuine success keeps the composite successful")

	failed := report.Results[Validation]
	assert.False(t, failed.Success)
	assert.Equal(t, "use web search", failed.Fallback)
	assert.Equal(t, 2, failed.Attempts)
	assert.Equal(t, int32(2), valid.calls.Load(), "2 total attempts")
}

func TestDispatch_AllFailuresMeanCompositeFailure(t *testing.T) {
	decomp := &stubBackend{name: Decomposition, err: errors.New("nope")}
	o, _ := newTestOrchestrator(t, []Backend{decomp})

	report, err := o.Dispatch(context.Background(), "add search", map[string]bool{Decomposition: true})
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, "use native analysis", report.Results[Decomposition].Fallback)
}

func TestDispatch_TimeoutTriggersRetryThenFallback(t *testing.T) {
	slow := &stubBackend{name: Decomposition, data: DecompositionResult{}, delay: time.Second}
	o, _ := newTestOrchestrator(t, []Backend{slow})

	start := time.Now()
	report, err := o.Dispatch(context.Background(), "add search", map[string]bool{Decomposition: true})
	require.NoError(t, err)

	res := report.Results[Decomposition]
	assert.False(t, res.Success)
	assert.Equal(t, "use native analysis", res.Fallback)
	// Bounded by timeout*attempts + retry delay, far below the backend's delay*attempts.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.GreaterOrEqual(t, o.Stats().Timeouts, uint64(1))
}

func TestDispatch_ParallelNotSerial(t *testing.T) {
	delay := 60 * time.Millisecond
	backends := []Backend{
		&stubBackend{name: Decomposition, data: DecompositionResult{}, delay: delay},
		&stubBackend{name: Validation, data: ValidationResult{}, delay: delay},
		&stubBackend{name: "estimation", data: "ok", delay: delay},
	}
	o, _ := newTestOrchestrator(t, backends, func(cfg *Config) {
		cfg.TaskTimeout = time.Second
	})

	start := time.Now()
	report, err := o.Dispatch(context.Background(), "add search", map[string]bool{
		Decomposition: true, Validation: true, "estimation": true,
	})
	require.NoError(t, err)
	elapsed := time.Since(start)

	require.Len(t, report.Results, 3)
	assert.Less(t, elapsed, 3*delay, "batch must complete in parallel time, not serial")
}

func TestDispatch_MemoizesAndTagsCached(t *testing.T) {
	decomp := &stubBackend{name: Decomposition, data: DecompositionResult{Components: []string{"a"}}}
	o, _ := newTestOrchestrator(t, []Backend{decomp})

	enabled := map[string]bool{Decomposition: true}
	first, err := o.Dispatch(context.Background(), "add search", enabled)
	require.NoError(t, err)
	assert.False(t, first.Results[Decomposition].Cached)

	second, err := o.Dispatch(context.Background(), "add search", enabled)
	require.NoError(t, err)
	assert.True(t, second.Results[Decomposition].Cached)
	assert.Equal(t, int32(1), decomp.calls.Load(), "backend must not be re-invoked on a cache hit")

	// A different requirement misses the cache.
	_, err = o.Dispatch(context.Background(), "add reporting", enabled)
	require.NoError(t, err)
	assert.Equal(t, int32(2), decomp.calls.Load())
}

func TestDispatch_AbandonedContextSettlesWithFallback(t *testing.T) {
	slow := &stubBackend{name: Decomposition, data: DecompositionResult{}, delay: time.Second}
	o, _ := newTestOrchestrator(t, []Backend{slow})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller already gone

	report, err := o.Dispatch(ctx, "add search", map[string]bool{Decomposition: true})
	require.NoError(t, err)
	assert.False(t, report.Results[Decomposition].Success)
}

func TestStats_CountersAndMeanLatency(t *testing.T) {
	decomp := &stubBackend{name: Decomposition, data: DecompositionResult{}}
	valid := &stubBackend{name: Validation, err: errors.New("broken")}
	o, _ := newTestOrchestrator(t, []Backend{decomp, valid})

	_, err := o.Dispatch(context.Background(), "add search", map[string]bool{Decomposition: true, Validation: true})
	require.NoError(t, err)

	s := o.Stats()
	assert.Equal(t, uint64(2), s.Total)
	assert.Equal(t, uint64(1), s.Successes)
	assert.Equal(t, uint64(1), s.Failures)
}
