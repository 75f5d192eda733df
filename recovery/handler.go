package recovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/reqmesh/logging"
)

// Outcome is the structured result of handling one error. Raw errors never
// reach the caller: either the strategy recovered (Success true, possibly
// with a Fallback substitute) or the failure is reported in structured form.
type Outcome struct {
	Success     bool     `json:"success"`
	Data        any      `json:"data,omitempty"`
	Fallback    bool     `json:"fallback"`
	Message     string   `json:"message"`
	Kind        Kind     `json:"kind"`
	Suggestions []string `json:"suggestions,omitempty"`
	// Detail carries the raw technical error text; populated for unknown
	// kinds and for double failures, where diagnostics matter most.
	Detail string `json:"detail,omitempty"`
}

// Options carries per-call context a strategy may need. All fields are
// optional; strategies degrade when a field they want is absent.
type Options struct {
	// Requirement is the free text driving the native fallback analysis.
	Requirement string
	// Partial holds partial results gathered before a timeout.
	Partial any
	// Alternative is a substitute operation for an unavailable capability.
	Alternative func(ctx context.Context) (any, error)
	// Retry re-runs the failed operation (lock and rate-limit strategies).
	Retry func(ctx context.Context) (any, error)
	// RetryDelay overrides the wait before a rate-limited retry.
	RetryDelay time.Duration
	// ResourceType hints what to synthesize for a missing resource
	// ("metadata", "document") and which guidance to give for bad input.
	ResourceType string
	// ResourceName names the missing resource for synthesized defaults.
	ResourceName string
	// ClearCache is invoked by the exhaustion strategy to shed memory.
	ClearCache func()
	// DisabledCapabilities lists what offline mode turns off.
	DisabledCapabilities []string
	// ArtifactExists probes which well-known sibling artifacts survive,
	// letting the corruption strategy infer a plausible phase.
	ArtifactExists func(name string) bool
	// Context is a short caller-supplied description for the error log.
	Context string
}

// Option mutates Options.
type Option func(o *Options)

// WithRequirement supplies the requirement text for native fallback analysis.
func WithRequirement(text string) Option {
	return func(o *Options) { o.Requirement = text }
}

// WithPartial supplies partial results collected before the failure.
func WithPartial(data any) Option {
	return func(o *Options) { o.Partial = data }
}

// WithAlternative names a substitute operation for an unavailable capability.
func WithAlternative(fn func(ctx context.Context) (any, error)) Option {
	return func(o *Options) { o.Alternative = fn }
}

// WithRetry supplies the operation to re-run for lock/rate-limit recovery.
func WithRetry(fn func(ctx context.Context) (any, error)) Option {
	return func(o *Options) { o.Retry = fn }
}

// WithRetryDelay overrides the rate-limit wait.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithResource hints the type and name of the resource involved.
func WithResource(resourceType, name string) Option {
	return func(o *Options) { o.ResourceType = resourceType; o.ResourceName = name }
}

// WithClearCache supplies the cache-shedding hook for exhaustion recovery.
func WithClearCache(fn func()) Option {
	return func(o *Options) { o.ClearCache = fn }
}

// WithDisabledCapabilities lists capabilities unusable in offline mode.
func WithDisabledCapabilities(names ...string) Option {
	return func(o *Options) { o.DisabledCapabilities = names }
}

// WithArtifactProbe supplies the sibling-artifact existence check used to
// reconstruct corrupted state.
func WithArtifactProbe(fn func(name string) bool) Option {
	return func(o *Options) { o.ArtifactExists = fn }
}

// WithContext attaches a short description recorded in the error log.
func WithContext(desc string) Option {
	return func(o *Options) { o.Context = desc }
}

// Config tunes the handler.
type Config struct {
	// LogCapacity bounds the circular error log.
	LogCapacity int
	// LockRetries bounds resource-locked retry attempts.
	LockRetries int
	// LockBackoff is the initial delay of the exponential lock backoff.
	LockBackoff time.Duration
	// RateLimitDelay is the default wait before the single rate-limit retry.
	RateLimitDelay time.Duration
	// Logger defaults to a NoOpLogger when nil.
	Logger logging.Logger
}

// DefaultConfig returns the baseline handler tuning.
func DefaultConfig() Config {
	return Config{
		LogCapacity:    100,
		LockRetries:    3,
		LockBackoff:    time.Second,
		RateLimitDelay: time.Second,
	}
}

// Handler classifies errors and dispatches per-kind recovery strategies.
// It is safe for concurrent use.
type Handler struct {
	cfg Config
	log logging.Logger

	records *ring

	// sleep is replaceable in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHandler constructs a Handler with optional config overrides.
func NewHandler(optFns ...func(c *Config)) *Handler {
	cfg := DefaultConfig()
	for _, fn := range optFns {
		fn(&cfg)
	}
	def := DefaultConfig()
	if cfg.LogCapacity <= 0 {
		cfg.LogCapacity = def.LogCapacity
	}
	if cfg.LockRetries <= 0 {
		cfg.LockRetries = def.LockRetries
	}
	if cfg.LockBackoff <= 0 {
		cfg.LockBackoff = def.LockBackoff
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = def.RateLimitDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}

	return &Handler{
		cfg:     cfg,
		log:     cfg.Logger,
		records: newRing(cfg.LogCapacity),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Handle classifies err, runs the matching recovery strategy and records the
// attempt. It never returns a raw error; a strategy failure falls through to
// the ultimate fallback outcome.
func (h *Handler) Handle(ctx context.Context, err error, optFns ...Option) Outcome {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	kind := Classify(err)
	start := time.Now()

	outcome, strategyErr := h.dispatch(ctx, kind, err, &opts)
	if strategyErr != nil {
		outcome = Outcome{
			Success:     false,
			Kind:        kind,
			Message:     "Recovery itself failed; please restart the workflow.",
			Suggestions: []string{"restart the workflow", "check the logs for both errors"},
			Detail:      fmt.Sprintf("original: %v; recovery: %v", err, strategyErr),
		}
	}
	outcome.Kind = kind

	h.records.append(Record{At: time.Now(), Kind: kind, Context: opts.Context, Recovered: outcome.Success})
	h.log.Info("error handled",
		"kind", string(kind),
		"recovered", outcome.Success,
		"fallback", outcome.Fallback,
		"duration", time.Since(start),
	)
	return outcome
}

// dispatch routes to the per-kind strategy, converting panics into errors so
// a misbehaving strategy still reaches the ultimate fallback.
func (h *Handler) dispatch(ctx context.Context, kind Kind, err error, opts *Options) (outcome Outcome, strategyErr error) {
	defer func() {
		if r := recover(); r != nil {
			strategyErr = fmt.Errorf("recovery strategy panicked: %v", r)
		}
	}()

	switch kind {
	case KindCapabilityTimeout:
		return h.recoverTimeout(opts), nil
	case KindCapabilityUnavailable:
		return h.recoverUnavailable(ctx, opts), nil
	case KindResourceNotFound:
		return h.recoverNotFound(opts), nil
	case KindResourceLocked:
		return h.recoverLocked(ctx, opts)
	case KindStateCorrupted:
		return h.recoverCorrupted(opts), nil
	case KindInvalidInput, KindValidationFailed:
		return h.rejectInvalid(kind, opts), nil
	case KindResourceExhaustion:
		return h.recoverExhaustion(opts), nil
	case KindRateLimited:
		return h.recoverRateLimited(ctx, opts)
	case KindNetworkFailure:
		return h.reportOffline(opts), nil
	default:
		return h.reportUnknown(err, opts), nil
	}
}

// recoverTimeout prefers partial results collected before the deadline; with
// nothing to salvage it substitutes the native analysis.
func (h *Handler) recoverTimeout(opts *Options) Outcome {
	if opts.Partial != nil {
		return Outcome{Success: true, Fallback: true, Data: opts.Partial, Message: UserMessage(KindCapabilityTimeout)}
	}
	return Outcome{Success: true, Fallback: true, Data: AnalyzeNative(opts.Requirement), Message: UserMessage(KindCapabilityTimeout)}
}

// recoverUnavailable runs the caller-named alternative capability when
// supplied, degrading to the native analysis when it is absent or fails.
func (h *Handler) recoverUnavailable(ctx context.Context, opts *Options) Outcome {
	if opts.Alternative != nil {
		if data, err := opts.Alternative(ctx); err == nil {
			return Outcome{Success: true, Fallback: true, Data: data, Message: UserMessage(KindCapabilityUnavailable)}
		}
	}
	return Outcome{Success: true, Fallback: true, Data: AnalyzeNative(opts.Requirement), Message: UserMessage(KindCapabilityUnavailable)}
}

// recoverNotFound synthesizes a type-appropriate default for the missing
// resource.
func (h *Handler) recoverNotFound(opts *Options) Outcome {
	var data any
	switch opts.ResourceType {
	case "metadata":
		data = map[string]any{
			"name":      opts.ResourceName,
			"created":   time.Now().UTC().Format(time.RFC3339),
			"phase":     "discovery",
			"recovered": true,
		}
	case "document":
		name := opts.ResourceName
		if name == "" {
			name = "untitled"
		}
		data = fmt.Sprintf("# %s\n\n_Recovered placeholder. Regenerate this document when possible._\n", name)
	default:
		data = ""
	}
	return Outcome{Success: true, Fallback: true, Data: data, Message: UserMessage(KindResourceNotFound)}
}

// recoverLocked retries the caller-supplied operation with exponential
// backoff. Without a retry operation there is nothing to do.
func (h *Handler) recoverLocked(ctx context.Context, opts *Options) (Outcome, error) {
	if opts.Retry == nil {
		return Outcome{Success: false, Message: UserMessage(KindResourceLocked) + " No retry operation was supplied."}, nil
	}

	delay := h.cfg.LockBackoff
	var lastErr error
	for attempt := 1; attempt <= h.cfg.LockRetries; attempt++ {
		data, err := opts.Retry(ctx)
		if err == nil {
			return Outcome{Success: true, Data: data, Message: UserMessage(KindResourceLocked)}, nil
		}
		lastErr = err
		if attempt < h.cfg.LockRetries {
			if serr := h.sleep(ctx, delay); serr != nil {
				return Outcome{}, serr
			}
			delay *= 2
		}
	}
	return Outcome{
		Success: false,
		Message: fmt.Sprintf("Still locked after %d attempts.", h.cfg.LockRetries),
		Detail:  lastErr.Error(),
	}, nil
}

// wellKnownArtifacts are probed newest-phase-first when reconstructing state.
var wellKnownArtifacts = []struct {
	name  string
	phase string
}{
	{"report", "synthesis"},
	{"analysis", "analysis"},
	{"answers", "questions"},
	{"requirement", "discovery"},
}

// recoverCorrupted rebuilds a minimal valid state by probing which sibling
// artifacts survive and inferring the furthest plausible phase.
func (h *Handler) recoverCorrupted(opts *Options) Outcome {
	phase := "discovery"
	var present []string
	if opts.ArtifactExists != nil {
		for _, a := range wellKnownArtifacts {
			if opts.ArtifactExists(a.name) {
				present = append(present, a.name)
			}
		}
		for _, a := range wellKnownArtifacts {
			if opts.ArtifactExists(a.name) {
				phase = a.phase
				break
			}
		}
	}
	return Outcome{
		Success:  true,
		Fallback: true,
		Data: map[string]any{
			"phase":        phase,
			"artifacts":    present,
			"recovered":    true,
			"recovered_at": time.Now().UTC().Format(time.RFC3339),
		},
		Message: UserMessage(KindStateCorrupted),
	}
}

var genericSuggestions = []string{
	"check the input format",
	"shorten or simplify the input",
	"consult the documentation for accepted values",
}

// rejectInvalid returns guidance instead of retrying: bad input never gets
// better on a second attempt.
func (h *Handler) rejectInvalid(kind Kind, opts *Options) Outcome {
	guidance := UserMessage(kind)
	switch opts.ResourceType {
	case "requirement":
		guidance = "The requirement text could not be processed; describe the feature in one or two plain sentences."
	case "answer":
		guidance = "The answer could not be interpreted; reply with yes, no or a short condition."
	case "import":
		guidance = "The imported session data is not in the expected format; export a fresh copy and retry."
	}
	return Outcome{Success: false, Message: guidance, Suggestions: genericSuggestions}
}

// recoverExhaustion sheds cache memory and reports reduced-capacity mode.
func (h *Handler) recoverExhaustion(opts *Options) Outcome {
	if opts.ClearCache != nil {
		opts.ClearCache()
	}
	return Outcome{
		Success:  true,
		Fallback: true,
		Data:     map[string]any{"mode": "reduced-capacity", "cache_cleared": opts.ClearCache != nil},
		Message:  UserMessage(KindResourceExhaustion),
	}
}

// recoverRateLimited waits out the throttle window then retries exactly once.
func (h *Handler) recoverRateLimited(ctx context.Context, opts *Options) (Outcome, error) {
	if opts.Retry == nil {
		return Outcome{Success: false, Message: UserMessage(KindRateLimited) + " No retry operation was supplied."}, nil
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = h.cfg.RateLimitDelay
	}
	if err := h.sleep(ctx, delay); err != nil {
		return Outcome{}, err
	}
	data, err := opts.Retry(ctx)
	if err != nil {
		return Outcome{Success: false, Message: "Still rate limited after waiting.", Detail: err.Error()}, nil
	}
	return Outcome{Success: true, Data: data, Message: UserMessage(KindRateLimited)}, nil
}

// reportOffline enumerates which capabilities are disabled without a network.
func (h *Handler) reportOffline(opts *Options) Outcome {
	msg := UserMessage(KindNetworkFailure)
	if len(opts.DisabledCapabilities) > 0 {
		msg = fmt.Sprintf("%s Disabled: %s.", msg, strings.Join(opts.DisabledCapabilities, ", "))
	}
	return Outcome{
		Success:  true,
		Fallback: true,
		Data:     map[string]any{"mode": "offline", "disabled": opts.DisabledCapabilities},
		Message:  msg,
	}
}

// reportUnknown makes no recovery attempt; it surfaces the raw detail for
// diagnostics alongside the generic status line.
func (h *Handler) reportUnknown(err error, opts *Options) Outcome {
	return Outcome{
		Success: false,
		Message: UserMessage(KindUnknown),
		Detail:  err.Error(),
		Data:    map[string]any{"context": opts.Context},
	}
}
