// Package reqmesh provides a high-level façade over the runtime support
// services of an interactive requirements analysis workflow: the tiered
// cache, the capability orchestrator, the session manager and the error
// recovery handler. Most applications interact with this package by:
//  1. Creating a Runtime via New() (optionally overriding default in-memory services)
//  2. Registering one or more capability backends (Anthropic, OpenAI, custom)
//  3. Calling Analyze to dispatch capabilities and record results on the session
//
// The façade wires the services together while keeping setup ergonomics
// concise. All defaults are safe for local development and testing;
// production deployments typically supply a durable session store and a
// structured logger.
package reqmesh

import (
	"context"

	"github.com/hupe1980/reqmesh/cache"
	"github.com/hupe1980/reqmesh/capability"
	"github.com/hupe1980/reqmesh/logging"
	"github.com/hupe1980/reqmesh/recovery"
	"github.com/hupe1980/reqmesh/session"
)

// Options configures the Runtime instance.
type Options struct {
	// CacheConfig overrides tiered cache tuning.
	CacheConfig []func(cfg *cache.Config)
	// OrchestratorConfig overrides capability dispatch tuning.
	OrchestratorConfig []func(cfg *capability.Config)
	// SessionConfig overrides session manager tuning.
	SessionConfig []func(cfg *session.Config)
	// RecoveryConfig overrides error recovery tuning.
	RecoveryConfig []func(cfg *recovery.Config)

	// Registry holds the capability backends (defaults to an empty registry).
	Registry *capability.Registry
	// Store persists session state (defaults to an in-memory implementation).
	Store session.Store

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Runtime is the high-level façade aggregating the underlying services.
type Runtime struct {
	opts         Options
	cache        *cache.Cache
	registry     *capability.Registry
	orchestrator *capability.Orchestrator
	sessions     *session.Manager
	recovery     *recovery.Handler
	log          logging.Logger
}

// New creates a new Runtime with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Runtime, error) {
	opts := Options{
		Registry: capability.NewRegistry(),
		Store:    session.NewInMemoryStore(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = capability.NewRegistry()
	}
	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	cacheOpts := append([]func(cfg *cache.Config){func(cfg *cache.Config) {
		cfg.Logger = opts.Logger
	}}, opts.CacheConfig...)
	c := cache.New(cacheOpts...)

	orchOpts := append([]func(cfg *capability.Config){func(cfg *capability.Config) {
		cfg.Logger = opts.Logger
	}}, opts.OrchestratorConfig...)
	orch, err := capability.NewOrchestrator(opts.Registry, c, orchOpts...)
	if err != nil {
		return nil, err
	}

	sessOpts := append([]func(cfg *session.Config){func(cfg *session.Config) {
		cfg.Logger = opts.Logger
	}}, opts.SessionConfig...)
	sessions := session.NewManager(opts.Store, c, sessOpts...)

	recOpts := append([]func(cfg *recovery.Config){func(cfg *recovery.Config) {
		cfg.Logger = opts.Logger
	}}, opts.RecoveryConfig...)
	handler := recovery.NewHandler(recOpts...)

	return &Runtime{
		opts:         opts,
		cache:        c,
		registry:     opts.Registry,
		orchestrator: orch,
		sessions:     sessions,
		recovery:     handler,
		log:          opts.Logger,
	}, nil
}

// RegisterBackend adds a capability backend to the underlying registry.
func (r *Runtime) RegisterBackend(b capability.Backend) error {
	return r.registry.Register(b)
}

// Start recovers or creates the session and launches the background tasks
// (cache expiry sweep, session auto-save). The returned session is the
// recovered or fresh state.
func (r *Runtime) Start(ctx context.Context) *session.Session {
	sess := r.sessions.Initialize(ctx)
	r.cache.Start(ctx)
	r.sessions.Start(ctx)
	return sess
}

// Stop terminates the background tasks and persists a final session
// snapshot.
func (r *Runtime) Stop(ctx context.Context) {
	r.sessions.Stop()
	r.cache.Stop()
	if err := r.sessions.SaveNow(ctx); err != nil {
		r.log.Warn("final session save failed", "error", err.Error())
	}
}

// Analyze is the end-to-end convenience: it records the requirement on the
// session, dispatches the enabled capabilities, stores the genuine results
// and returns the merged report.
func (r *Runtime) Analyze(ctx context.Context, requirement string, enabled map[string]bool) (*capability.Report, error) {
	r.sessions.Update(ctx, session.Update{Requirement: &requirement})

	report, err := r.orchestrator.Dispatch(ctx, requirement, enabled)
	if err != nil {
		return nil, err
	}

	r.sessions.RecordReport(report)
	return report, nil
}

// HandleError classifies err and runs the matching recovery strategy.
func (r *Runtime) HandleError(ctx context.Context, err error, optFns ...recovery.Option) recovery.Outcome {
	return r.recovery.Handle(ctx, err, optFns...)
}

// Cache returns the tiered cache.
func (r *Runtime) Cache() *cache.Cache { return r.cache }

// Registry returns the capability registry.
func (r *Runtime) Registry() *capability.Registry { return r.registry }

// Orchestrator returns the capability orchestrator.
func (r *Runtime) Orchestrator() *capability.Orchestrator { return r.orchestrator }

// Sessions returns the session manager.
func (r *Runtime) Sessions() *session.Manager { return r.sessions }

// Recovery returns the error recovery handler.
func (r *Runtime) Recovery() *recovery.Handler { return r.recovery }
