package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/reqmesh/cache"
	"github.com/hupe1980/reqmesh/capability"
	"github.com/hupe1980/reqmesh/codec"
	"github.com/hupe1980/reqmesh/logging"
)

// Store keys within a workflow scope. The session record and the
// capability-cache snapshot are persisted separately so recovery can restore
// them independently of the general cache's TTL and eviction.
const (
	keySession  = "session"
	keySnapshot = "capability-cache"
)

// ExportVersion stamps exported session payloads.
const ExportVersion = "1"

// Config tunes the manager. Zero fields fall back to DefaultConfig.
type Config struct {
	// Scope namespaces this workflow's records in the store.
	Scope string
	// AutoSaveInterval is the period of the background snapshot save.
	AutoSaveInterval time.Duration
	// ExpiryWindow bounds how stale a persisted session may be and still be
	// recovered.
	ExpiryWindow time.Duration
	// QuestionsTotal is the fixed number of questions in the question phase,
	// used for progress scaling.
	QuestionsTotal int
	// BarWidth is the rendered progress bar width in segments.
	BarWidth int
	// SnapshotTier is the cache tier restored capability results land in.
	SnapshotTier cache.TierName
	// Logger defaults to a NoOpLogger when nil.
	Logger logging.Logger
}

// DefaultConfig returns the baseline manager tuning.
func DefaultConfig() Config {
	return Config{
		Scope:            "default",
		AutoSaveInterval: 30 * time.Second,
		ExpiryWindow:     time.Hour,
		QuestionsTotal:   6,
		BarWidth:         20,
		SnapshotTier:     cache.TierMedium,
	}
}

// snapshotRecord is the persisted capability-cache snapshot. The requirement
// text travels with it because restored cache keys derive from it.
type snapshotRecord struct {
	Requirement string                      `json:"requirement"`
	Results     map[string]CapabilityResult `json:"results"`
}

// exportEnvelope wraps an exported session with an explicit stamp.
type exportEnvelope struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Session    *Session  `json:"session"`
}

// Manager owns the lifecycle of one interactive session: recovery, answer
// and result bookkeeping, progress, periodic auto-save. It is the single
// writer of its session and safe for concurrent use.
type Manager struct {
	store Store
	cache *cache.Cache
	cfg   Config
	log   logging.Logger

	recordCodec   codec.Codec[*Session]
	snapshotCodec codec.Codec[snapshotRecord]
	exportCodec   codec.Codec[exportEnvelope]

	mu   sync.Mutex
	sess *Session

	// now is replaceable in tests for deterministic expiry windows.
	now func() time.Time

	lifecycleMu sync.Mutex
	stop        chan struct{}
	done        chan struct{}
}

// NewManager constructs a manager over the given store and cache with
// optional config overrides. The session itself is created or recovered by
// Initialize.
func NewManager(store Store, c *cache.Cache, optFns ...func(cfg *Config)) *Manager {
	cfg := DefaultConfig()
	for _, fn := range optFns {
		fn(&cfg)
	}
	def := DefaultConfig()
	if cfg.Scope == "" {
		cfg.Scope = def.Scope
	}
	if cfg.AutoSaveInterval <= 0 {
		cfg.AutoSaveInterval = def.AutoSaveInterval
	}
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = def.ExpiryWindow
	}
	if cfg.QuestionsTotal <= 0 {
		cfg.QuestionsTotal = def.QuestionsTotal
	}
	if cfg.BarWidth <= 0 {
		cfg.BarWidth = def.BarWidth
	}
	if cfg.SnapshotTier == "" {
		cfg.SnapshotTier = def.SnapshotTier
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}

	return &Manager{
		store:         store,
		cache:         c,
		cfg:           cfg,
		log:           cfg.Logger,
		recordCodec:   codec.Msgpack[*Session]{},
		snapshotCodec: codec.Msgpack[snapshotRecord]{},
		exportCodec:   codec.JSON[exportEnvelope]{},
		now:           time.Now,
	}
}

// Initialize recovers the persisted session when one exists and is fresher
// than the expiry window, restoring its capability results into the cache;
// otherwise it starts a fresh session. Recovery failure always degrades to
// "start fresh", never to an error.
func (m *Manager) Initialize(ctx context.Context) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	recovered, err := m.loadLocked(ctx)
	switch {
	case err == nil && m.now().Sub(recovered.LastUpdate) < m.cfg.ExpiryWindow:
		m.sess = recovered
		m.restoreSnapshotLocked(ctx)
		m.log.Info("session recovered",
			"session_id", m.sess.ID,
			"phase", m.sess.Phase.String(),
			"answers", len(m.sess.Answers),
		)
		return m.sess.Clone()
	case err == nil:
		m.log.Info("persisted session expired, starting fresh", "last_update", recovered.LastUpdate)
	case !errors.Is(err, ErrNotFound):
		m.log.Warn("session recovery failed, starting fresh", "error", err.Error())
	}

	m.sess = newSession(uuid.NewString(), m.now())
	return m.sess.Clone()
}

func (m *Manager) loadLocked(ctx context.Context) (*Session, error) {
	data, err := m.store.Get(ctx, m.cfg.Scope, keySession)
	if err != nil {
		return nil, err
	}
	sess, err := m.recordCodec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("session: decoding persisted record: %w", err)
	}
	if sess.Answers == nil {
		sess.Answers = map[string]Answer{}
	}
	if sess.Results == nil {
		sess.Results = map[string]CapabilityResult{}
	}
	return sess, nil
}

// restoreSnapshotLocked reloads persisted capability results into the cache
// under the orchestrator's memoization keys, so a resumed workflow is served
// without re-running backends.
func (m *Manager) restoreSnapshotLocked(ctx context.Context) {
	if m.cache == nil {
		return
	}
	data, err := m.store.Get(ctx, m.cfg.Scope, keySnapshot)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Warn("capability snapshot restore failed", "error", err.Error())
		}
		return
	}
	snap, err := m.snapshotCodec.Decode(data)
	if err != nil {
		m.log.Warn("capability snapshot unreadable", "error", err.Error())
		return
	}
	for name, r := range snap.Results {
		m.cache.Set(capability.CacheKey(name, snap.Requirement), r.Data, cache.WithTier(m.cfg.SnapshotTier))
	}
	m.log.Debug("capability snapshot restored", "results", len(snap.Results))
}

// Update describes a partial session mutation; nil fields are left untouched.
type Update struct {
	Phase       *Phase
	Requirement *string
}

// Apply-and-save semantics: phase and requirement changes are milestones and
// persist synchronously (write-through); everything else rides the auto-save.
func (m *Manager) Update(ctx context.Context, u Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return
	}

	writeThrough := false
	if u.Phase != nil && *u.Phase != m.sess.Phase {
		m.sess.Phase = *u.Phase
		writeThrough = true
	}
	if u.Requirement != nil && *u.Requirement != m.sess.Requirement {
		m.sess.Requirement = *u.Requirement
		writeThrough = true
	}

	m.touchLocked()
	m.sess.Progress = computeProgress(m.sess, m.cfg.QuestionsTotal)

	if writeThrough {
		if err := m.saveLocked(ctx); err != nil {
			m.log.Warn("write-through save failed", "error", err.Error())
		}
	}
}

// AddAnswer records a pre-normalized answer and recomputes progress.
func (m *Manager) AddAnswer(id, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return
	}
	m.sess.Answers[id] = Answer{Value: value, At: m.now()}
	m.touchLocked()
	m.sess.Progress = computeProgress(m.sess, m.cfg.QuestionsTotal)
}

// AddCapabilityResult records one capability outcome.
func (m *Manager) AddCapabilityResult(name string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return
	}
	m.sess.Results[name] = CapabilityResult{Data: data, At: m.now()}
	m.touchLocked()
}

// RecordReport stores every genuine result of a dispatch batch on the
// session; fallback payloads are not worth persisting.
func (m *Manager) RecordReport(report *capability.Report) {
	if report == nil {
		return
	}
	for name, res := range report.Results {
		if res.Success {
			m.AddCapabilityResult(name, res.Data)
		}
	}
}

// touchLocked bumps LastUpdate, keeping it monotonically non-decreasing even
// if the wall clock steps backwards.
func (m *Manager) touchLocked() {
	if now := m.now(); now.After(m.sess.LastUpdate) {
		m.sess.LastUpdate = now
	}
}

// Snapshot returns a deep copy of the current session for reading.
func (m *Manager) Snapshot() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil
	}
	return m.sess.Clone()
}

// Progress returns the current progress snapshot.
func (m *Manager) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return Progress{PerPhase: make([]float64, PhaseCount)}
	}
	return computeProgress(m.sess, m.cfg.QuestionsTotal)
}

// ProgressBar renders the fixed-width bar for the current overall progress.
func (m *Manager) ProgressBar() string {
	return RenderBar(m.Progress().Overall, m.cfg.BarWidth)
}

// SaveNow persists the full session snapshot plus the capability-cache
// snapshot. Exposed so callers and tests can single-step what the auto-save
// loop does periodically.
func (m *Manager) SaveNow(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil
	}
	return m.saveLocked(ctx)
}

// saveLocked writes both records, guarding against a stale snapshot
// clobbering a newer persisted one (the auto-save timer and an explicit
// write-through may race).
func (m *Manager) saveLocked(ctx context.Context) error {
	if existing, err := m.loadLocked(ctx); err == nil && existing.LastUpdate.After(m.sess.LastUpdate) {
		m.log.Debug("skipping stale save", "persisted", existing.LastUpdate, "current", m.sess.LastUpdate)
		return nil
	}

	data, err := m.recordCodec.Encode(m.sess)
	if err != nil {
		return fmt.Errorf("session: encoding record: %w", err)
	}
	if err := m.store.Put(ctx, m.cfg.Scope, keySession, data); err != nil {
		return fmt.Errorf("session: persisting record: %w", err)
	}

	snap, err := m.snapshotCodec.Encode(snapshotRecord{Requirement: m.sess.Requirement, Results: m.sess.Results})
	if err != nil {
		return fmt.Errorf("session: encoding capability snapshot: %w", err)
	}
	if err := m.store.Put(ctx, m.cfg.Scope, keySnapshot, snap); err != nil {
		return fmt.Errorf("session: persisting capability snapshot: %w", err)
	}
	return nil
}

// Start launches the periodic auto-save. Save failures are logged, never
// fatal; the loop keeps running until ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.stop != nil {
		return // already running
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(m.cfg.AutoSaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := m.SaveNow(ctx); err != nil {
					m.log.Warn("auto-save failed", "error", err.Error())
				}
			}
		}
	}(m.stop, m.done)
}

// Stop terminates the auto-save loop and waits for it to finish.
func (m *Manager) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
	m.done = nil
}

// Clear discards the persisted records and resets to a fresh session id.
func (m *Manager) Clear(ctx context.Context) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, m.cfg.Scope, keySession); err != nil {
		m.log.Warn("clearing persisted session failed", "error", err.Error())
	}
	if err := m.store.Delete(ctx, m.cfg.Scope, keySnapshot); err != nil {
		m.log.Warn("clearing capability snapshot failed", "error", err.Error())
	}

	m.sess = newSession(uuid.NewString(), m.now())
	return m.sess.Clone()
}

// Export serializes the full session plus an explicit export stamp as JSON.
func (m *Manager) Export() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, fmt.Errorf("session: nothing to export before Initialize")
	}
	return m.exportCodec.Encode(exportEnvelope{
		Version:    ExportVersion,
		ExportedAt: m.now(),
		Session:    m.sess.Clone(),
	})
}

// Import replaces the current session state with an exported payload and
// persists it. Export followed by Import reproduces an equivalent answers
// map and phase.
func (m *Manager) Import(ctx context.Context, data []byte) error {
	env, err := m.exportCodec.Decode(data)
	if err != nil {
		return fmt.Errorf("session: invalid import payload: %w", err)
	}
	if env.Session == nil || env.Session.ID == "" {
		return fmt.Errorf("session: invalid import payload: missing session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sess = env.Session.Clone()
	if m.sess.Answers == nil {
		m.sess.Answers = map[string]Answer{}
	}
	if m.sess.Results == nil {
		m.sess.Results = map[string]CapabilityResult{}
	}
	m.touchLocked()
	m.sess.Progress = computeProgress(m.sess, m.cfg.QuestionsTotal)

	if err := m.saveLocked(ctx); err != nil {
		m.log.Warn("save after import failed", "error", err.Error())
	}
	return nil
}
