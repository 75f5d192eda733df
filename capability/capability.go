package capability

import "context"

// Well-known capability names. Callers may register additional names; these
// three get tailored fallback payloads and insight derivation.
const (
	// Decomposition breaks a requirement into components, risks and a
	// complexity estimate.
	Decomposition = "decomposition"
	// Prototyping sketches a UI outline for UI-related requirements.
	Prototyping = "prototyping"
	// Validation checks libraries and technical constraints against the
	// requirement.
	Validation = "validation"
)

// Input carries the requirement text handed to a backend, plus optional
// free-form hints the surrounding workflow wants to pass along.
type Input struct {
	Requirement string
	Hints       map[string]string
}

// Backend is the fixed async call contract every capability implementation
// satisfies. Implementations must honor ctx cancellation and deadlines; the
// orchestrator stops waiting when the per-task timeout expires whether or
// not the backend noticed.
type Backend interface {
	Name() string
	Analyze(ctx context.Context, in Input) (any, error)
}

// FuncBackend adapts a plain function into a Backend.
type FuncBackend struct {
	name string
	fn   func(ctx context.Context, in Input) (any, error)
}

// NewFuncBackend wraps fn as a Backend with the given capability name.
func NewFuncBackend(name string, fn func(ctx context.Context, in Input) (any, error)) *FuncBackend {
	return &FuncBackend{name: name, fn: fn}
}

// Name returns the capability name.
func (b *FuncBackend) Name() string { return b.name }

// Analyze invokes the wrapped function.
func (b *FuncBackend) Analyze(ctx context.Context, in Input) (any, error) {
	return b.fn(ctx, in)
}

// DecompositionResult is the payload shape produced by decomposition
// backends. The orchestrator derives risk insights from it.
type DecompositionResult struct {
	Components []string `json:"components"`
	Risks      []string `json:"risks"`
	Complexity string   `json:"complexity"`
}

// ValidationResult is the payload shape produced by validation backends. The
// orchestrator derives constraint insights from it.
type ValidationResult struct {
	Constraints []string `json:"constraints"`
	Verified    []string `json:"verified"`
}

// PrototypeResult is the payload shape produced by prototyping backends.
type PrototypeResult struct {
	Outline []string `json:"outline"`
	Notes   string   `json:"notes"`
}
