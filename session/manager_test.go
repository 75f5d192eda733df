package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reqmesh/cache"
	"github.com/hupe1980/reqmesh/capability"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestManager(t *testing.T, store Store, c *cache.Cache) (*Manager, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(store, c)
	m.now = clock.now

	return m, clock
}

func TestManagerInitializeFresh(t *testing.T) {
	m, _ := newTestManager(t, NewInMemoryStore(), nil)

	sess := m.Initialize(context.Background())

	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, PhaseDiscovery, sess.Phase)
	assert.Empty(t, sess.Answers)
	assert.Empty(t, sess.Results)
}

func TestManagerRecoversWithinExpiryWindow(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	m1, clock := newTestManager(t, store, nil)
	first := m1.Initialize(ctx)

	phase := PhaseQuestions
	m1.Update(ctx, Update{Phase: &phase})
	m1.AddAnswer("q1", "oauth")
	require.NoError(t, m1.SaveNow(ctx))

	// A new manager over the same store, 30 minutes later.
	m2 := NewManager(store, nil)
	m2.now = clock.now
	clock.advance(30 * time.Minute)

	recovered := m2.Initialize(ctx)

	assert.Equal(t, first.ID, recovered.ID)
	assert.Equal(t, PhaseQuestions, recovered.Phase)
	assert.Equal(t, "oauth", recovered.Answers["q1"].Value)
}

func TestManagerStartsFreshBeyondExpiryWindow(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	m1, clock := newTestManager(t, store, nil)
	first := m1.Initialize(ctx)
	m1.AddAnswer("q1", "oauth")
	require.NoError(t, m1.SaveNow(ctx))

	m2 := NewManager(store, nil)
	m2.now = clock.now
	clock.advance(61 * time.Minute)

	fresh := m2.Initialize(ctx)

	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Empty(t, fresh.Answers)
}

func TestManagerRecoveryRestoresCapabilityCache(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	c := cache.New()

	m1, clock := newTestManager(t, store, c)
	m1.Initialize(ctx)

	req := "Build a user dashboard"
	m1.Update(ctx, Update{Requirement: &req})
	m1.AddCapabilityResult("decomposition", map[string]any{"components": []any{"auth", "ui"}})
	require.NoError(t, m1.SaveNow(ctx))

	// Fresh cache simulates a process restart.
	c2 := cache.New()
	m2 := NewManager(store, c2)
	m2.now = clock.now
	clock.advance(5 * time.Minute)
	m2.Initialize(ctx)

	got, ok := c2.Get(capability.CacheKey("decomposition", req))
	require.True(t, ok, "restored result should be served from cache")
	assert.NotNil(t, got)
}

func TestManagerCorruptRecordStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Put(ctx, "default", keySession, []byte("not msgpack")))

	m, _ := newTestManager(t, store, nil)
	sess := m.Initialize(ctx)

	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)
}

func TestManagerUpdateWriteThrough(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	m, _ := newTestManager(t, store, nil)
	m.Initialize(ctx)

	// No milestone change yet, nothing persisted.
	_, err := store.Get(ctx, "default", keySession)
	require.ErrorIs(t, err, ErrNotFound)

	phase := PhaseAnalysis
	m.Update(ctx, Update{Phase: &phase})

	data, err := store.Get(ctx, "default", keySession)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestManagerProgressQuestionPhase(t *testing.T) {
	ctx := context.Background()

	m, _ := newTestManager(t, NewInMemoryStore(), nil)
	m.Initialize(ctx)

	phase := PhaseQuestions
	m.Update(ctx, Update{Phase: &phase})
	m.AddAnswer("q1", "yes")
	m.AddAnswer("q2", "no")

	p := m.Progress()
	assert.InDelta(t, 100.0, p.PerPhase[PhaseDiscovery], 0.01)
	assert.InDelta(t, 33.33, p.PerPhase[PhaseQuestions], 0.1)
	assert.InDelta(t, 33.33, p.Overall, 0.1)
}

func TestManagerStaleSaveSkipped(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	m1, clock := newTestManager(t, store, nil)
	sess := m1.Initialize(ctx)
	require.NoError(t, m1.SaveNow(ctx))

	// A second manager holding the same session advances it further.
	m2 := NewManager(store, nil)
	m2.now = clock.now
	m2.sess = sess.Clone()
	clock.advance(time.Minute)
	m2.AddAnswer("q1", "newer")
	require.NoError(t, m2.SaveNow(ctx))

	// The first manager's state is now stale and must not clobber it.
	require.NoError(t, m1.SaveNow(ctx))

	m3 := NewManager(store, nil)
	m3.now = clock.now
	persisted := m3.Initialize(ctx)
	assert.Equal(t, "newer", persisted.Answers["q1"].Value)
}

func TestManagerClear(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	m, _ := newTestManager(t, store, nil)
	first := m.Initialize(ctx)
	m.AddAnswer("q1", "oauth")
	require.NoError(t, m.SaveNow(ctx))

	fresh := m.Clear(ctx)

	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Empty(t, fresh.Answers)

	_, err := store.Get(ctx, "default", keySession)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "default", keySnapshot)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()

	m1, clock := newTestManager(t, NewInMemoryStore(), nil)
	m1.Initialize(ctx)

	phase := PhaseQuestions
	req := "Build an admin panel"
	m1.Update(ctx, Update{Phase: &phase, Requirement: &req})
	m1.AddAnswer("q1", "postgres")
	m1.AddAnswer("q2", "react")

	data, err := m1.Export()
	require.NoError(t, err)

	m2 := NewManager(NewInMemoryStore(), nil)
	m2.now = clock.now
	m2.Initialize(ctx)
	require.NoError(t, m2.Import(ctx, data))

	got := m2.Snapshot()
	assert.Equal(t, PhaseQuestions, got.Phase)
	assert.Equal(t, req, got.Requirement)
	assert.Equal(t, "postgres", got.Answers["q1"].Value)
	assert.Equal(t, "react", got.Answers["q2"].Value)
}

func TestManagerImportRejectsGarbage(t *testing.T) {
	m, _ := newTestManager(t, NewInMemoryStore(), nil)
	m.Initialize(context.Background())

	assert.Error(t, m.Import(context.Background(), []byte("{not json")))
	assert.Error(t, m.Import(context.Background(), []byte(`{"version":"1"}`)))
}

func TestManagerRecordReport(t *testing.T) {
	m, _ := newTestManager(t, NewInMemoryStore(), nil)
	m.Initialize(context.Background())

	m.RecordReport(&capability.Report{
		Results: map[string]capability.Result{
			"decomposition": {Capability: "decomposition", Success: true, Data: "real"},
			"validation":    {Capability: "validation", Success: false, Fallback: "use web search"},
		},
	})

	got := m.Snapshot()
	assert.Contains(t, got.Results, "decomposition")
	assert.NotContains(t, got.Results, "validation")
}

func TestManagerStartStopIdempotent(t *testing.T) {
	m, _ := newTestManager(t, NewInMemoryStore(), nil)
	m.Initialize(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	m.Start(ctx)
	m.Stop()
	m.Stop()
}
