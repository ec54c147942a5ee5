// Package plugin defines the narrow capability interfaces the scheduler
// hands control to. Everything the teacher's pkg/plugin.Interface did
// with a single duck-typed Kubernetes plugin becomes, here, a small set of
// interfaces keyed by registry namespace (per spec.md §9 DESIGN NOTES):
// Engine, Backend, Integrator, Model, NoiseModel, Visualizer, Loader. The
// scheduler downcasts at the boundary where it hands a built plugin to the
// job's engine; it never inspects their internals itself.
package plugin

import "context"

// Named is satisfied by every plugin kind; it lets the scheduler and CLI
// report identity without knowing a plugin's concrete capability.
type Named interface {
	Name() string
}

// Result is the contract every Engine invocation must return. The source
// system used isinstance checks for this; here it's a compile-time
// interface, so the scheduler's only runtime check is for a nil Result,
// which it reports as "result-contract-violation".
type Result interface {
	// Data returns the engine's raw output (the source system's array
	// payload; opaque to the core).
	Data() any
	// Metadata returns engine- and run-specific bookkeeping attached to
	// the result (e.g. solver stats, physical parameters used).
	Metadata() map[string]any
	// Label is an optional name for this result and may be empty. The
	// scheduler routes and saves results under the owning job's output
	// label and does not read Label.
	Label() string
	// Save persists the result under path, choosing its own extension.
	Save(path string) error
}

// ProgressFunc is the callback contract an Engine may invoke during Run.
// percent, totalDurationEstimateSeconds and stage are nil when unknown.
type ProgressFunc func(percent *float64, totalDurationEstimateSeconds *float64, message string, stage *string)

// Engine performs the primary computation for a job. Run must block until
// the computation completes or ctx is cancelled.
type Engine interface {
	Named
	Run(ctx context.Context, data any) (Result, error)
}

// ProgressReportingEngine is the optional capability an Engine may also
// implement to receive progress callbacks. The scheduler type-asserts for
// this at the call boundary (spec.md §4.6 step 7's "feature-detected...
// type mismatch") instead of calling Run with a callback every engine
// must accept.
type ProgressReportingEngine interface {
	Engine
	RunWithProgress(ctx context.Context, data any, progress ProgressFunc) (Result, error)
}

// Backend is an opaque array/compute backend (NumPy/CuPy/Torch
// equivalents in the source system); the core never calls into it
// directly, only threads it through to the Engine/Model that requested it.
type Backend interface {
	Named
}

// Integrator is an opaque numerical stepping scheme (Euler-Maruyama,
// Milstein, ...).
type Integrator interface {
	Named
}

// Model is an opaque physical model (drift/diffusion definition).
type Model interface {
	Named
}

// NoiseModel is an opaque stochastic noise generator.
type NoiseModel interface {
	Named
}

// Visualizer renders a Result to disk; the core invokes it post-hoc and
// never inspects what it produces.
type Visualizer interface {
	Named
	Render(ctx context.Context, result Result, outDir string) error
}

// Analyzer performs post-run analysis over a Result (e.g. a PSD), itself
// producing a Result so it can be saved/routed like any other plugin
// output. This is the "analysis" namespace from spec.md §4.1.
type Analyzer interface {
	Named
	Analyze(ctx context.Context, result Result) (Result, error)
}

// Loader is the extensibility point spec.md §9 Open Question 4 calls for:
// an external-input loader registered under the "loader" namespace so a
// job's `input` field may reference a file on disk rather than an
// upstream job or engine name.
type Loader interface {
	Named
	Load(ctx context.Context, path string) (Result, error)
}
