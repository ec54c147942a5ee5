package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/qphase-sched/qphase-sched/internal/plugin"
	"github.com/qphase-sched/qphase-sched/internal/progress"
	"github.com/qphase-sched/qphase-sched/internal/registry"
	"github.com/qphase-sched/qphase-sched/internal/runstore"
	"github.com/qphase-sched/qphase-sched/internal/schema"
	"gopkg.in/yaml.v3"
)

type fakeResult struct {
	data  any
	saved string
}

func (r *fakeResult) Data() any                  { return r.data }
func (r *fakeResult) Metadata() map[string]any   { return map[string]any{"ok": true} }
func (r *fakeResult) Label() string              { return "" }
func (r *fakeResult) Save(path string) error     { r.saved = path; return nil }

type fakeEngine struct {
	name string
}

func (e *fakeEngine) Name() string { return e.name }
func (e *fakeEngine) Run(ctx context.Context, data any) (plugin.Result, error) {
	return &fakeResult{data: data}, nil
}
func (e *fakeEngine) RunWithProgress(ctx context.Context, data any, p plugin.ProgressFunc) (plugin.Result, error) {
	half := 0.5
	one := 1.0
	p(&half, nil, "halfway", nil)
	p(&one, nil, "done", nil)
	return &fakeResult{data: data}, nil
}

func decodeJobList(t *testing.T, doc string) *schema.JobList {
	t.Helper()
	var n schema.Node
	if err := yaml.Unmarshal([]byte(doc), &n); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	jl, err := schema.DecodeJobList(&n)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return jl
}

func TestRunSingleJobSucceeds(t *testing.T) {
	reg := registry.New()
	eng := &fakeEngine{name: "sde"}
	_ = reg.Register(registry.NSEngine, "sde", func(params map[string]any) (any, error) { return eng, nil }, false)

	jl := decodeJobList(t, "name: run1\nengine: {sde: {}}\n")
	sc := schema.DefaultSystemConfig()
	sc.Paths.OutputDir = t.TempDir()

	var updates []progress.Update
	results, err := New(Options{
		Registry:     reg,
		System:       sc,
		ProgressSink: func(u progress.Update) { updates = append(updates, u) },
	}).Run(context.Background(), jl)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("expected 1 successful result, got %+v", results)
	}
	if len(updates) == 0 {
		t.Fatalf("expected progress updates from a progress-reporting engine")
	}
}

func TestRunRoutesUpstreamResultToDownstreamJob(t *testing.T) {
	reg := registry.New()
	var seenInput any
	_ = reg.Register(registry.NSEngine, "sde", func(params map[string]any) (any, error) {
		return &fakeEngine{name: "sde"}, nil
	}, false)
	_ = reg.Register(registry.NSEngine, "psd", func(params map[string]any) (any, error) {
		return &capturingEngine{name: "psd", capture: &seenInput}, nil
	}, false)

	jl := decodeJobList(t, "- name: gen\n  engine: {sde: {}}\n- name: analyze\n  engine: {psd: {}}\n  input: gen\n")
	sc := schema.DefaultSystemConfig()
	sc.Paths.OutputDir = t.TempDir()

	results, err := New(Options{Registry: reg, System: sc}).Run(context.Background(), jl)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("expected all jobs to succeed, got %+v", results)
		}
	}
	if seenInput == nil {
		t.Fatalf("expected downstream job to receive upstream result's data")
	}
}

type capturingEngine struct {
	name    string
	capture *any
}

func (e *capturingEngine) Name() string { return e.name }
func (e *capturingEngine) Run(ctx context.Context, data any) (plugin.Result, error) {
	*e.capture = data
	return &fakeResult{data: data}, nil
}

func TestRunWithoutProgressSupportStillSucceeds(t *testing.T) {
	reg := registry.New()
	_ = reg.Register(registry.NSEngine, "sde", func(params map[string]any) (any, error) {
		return &capturingEngine{name: "sde", capture: new(any)}, nil
	}, false)

	jl := decodeJobList(t, "name: run1\nengine: {sde: {}}\n")
	sc := schema.DefaultSystemConfig()
	sc.Paths.OutputDir = t.TempDir()

	results, err := New(Options{Registry: reg, System: sc}).Run(context.Background(), jl)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !results[0].Success {
		t.Fatalf("expected success even without progress support: %+v", results[0])
	}
}

func TestDryRunSkipsEngineInvocation(t *testing.T) {
	reg := registry.New()
	invoked := false
	_ = reg.Register(registry.NSEngine, "sde", func(params map[string]any) (any, error) {
		invoked = true
		return &fakeEngine{name: "sde"}, nil
	}, false)

	jl := decodeJobList(t, "name: run1\nengine: {sde: {}}\n")
	sc := schema.DefaultSystemConfig()
	sc.Paths.OutputDir = t.TempDir()

	results, err := New(Options{Registry: reg, System: sc, DryRun: true}).Run(context.Background(), jl)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !results[0].Success || results[0].RunID != "dry_run" {
		t.Fatalf("expected dry-run success with run_id=dry_run, got %+v", results[0])
	}
	if invoked {
		t.Fatalf("expected dry-run to never build/instantiate the engine")
	}
}

func TestPartialFailureDoesNotHaltSession(t *testing.T) {
	reg := registry.New()
	_ = reg.Register(registry.NSEngine, "broken", func(params map[string]any) (any, error) {
		return nil, errFake{}
	}, false)
	_ = reg.Register(registry.NSEngine, "sde", func(params map[string]any) (any, error) {
		return &fakeEngine{name: "sde"}, nil
	}, false)

	jl := decodeJobList(t, "- name: fails\n  engine: {broken: {}}\n- name: ok\n  engine: {sde: {}}\n")
	sc := schema.DefaultSystemConfig()
	sc.Paths.OutputDir = t.TempDir()

	results, err := New(Options{Registry: reg, System: sc}).Run(context.Background(), jl)
	if err != nil {
		t.Fatalf("unexpected top-level err (partial failure should not abort): %v", err)
	}
	if results[0].Success {
		t.Fatalf("expected first job to fail")
	}
	if !results[1].Success {
		t.Fatalf("expected second job to still run and succeed")
	}
}

type errFake struct{}

func (errFake) Error() string { return "boom" }

func TestSessionResumeSkipsSucceededJobs(t *testing.T) {
	reg := registry.New()
	calls := 0
	_ = reg.Register(registry.NSEngine, "sde", func(params map[string]any) (any, error) {
		calls++
		return &fakeEngine{name: "sde"}, nil
	}, false)

	jl := decodeJobList(t, "- name: a\n  engine: {sde: {}}\n- name: b\n  engine: {sde: {}}\n")
	sc := schema.DefaultSystemConfig()
	sc.Paths.OutputDir = t.TempDir()
	sessionRoot := t.TempDir()

	first := New(Options{Registry: reg, System: sc, SessionRoot: sessionRoot})
	if _, err := first.Run(context.Background(), jl); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	firstCalls := calls

	second := New(Options{Registry: reg, System: sc, SessionRoot: sessionRoot})
	results, err := second.Run(context.Background(), jl)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if calls != firstCalls {
		t.Fatalf("expected resume to skip already-succeeded jobs without rebuilding the engine, calls went from %d to %d", firstCalls, calls)
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("expected resumed session to report success for all jobs: %+v", results)
		}
	}
	_ = time.Now
}

// TestSessionResumeRerunsUpstreamFeedingDownstreamJob guards against a
// resumed session skipping a Succeeded job whose output another job's
// `input` still needs this run: after the first run "analyze" is marked
// Failed in the session manifest, and jobResults is only populated for
// jobs that actually execute, so skipping "gen" here without rerunning it
// would leave "analyze" unable to resolve its upstream result.
func TestSessionResumeRerunsUpstreamFeedingDownstreamJob(t *testing.T) {
	reg := registry.New()
	_ = reg.Register(registry.NSEngine, "sde", func(params map[string]any) (any, error) {
		return &fakeEngine{name: "sde"}, nil
	}, false)
	var seenInput any
	_ = reg.Register(registry.NSEngine, "psd", func(params map[string]any) (any, error) {
		return &capturingEngine{name: "psd", capture: &seenInput}, nil
	}, false)

	jl := decodeJobList(t, "- name: gen\n  engine: {sde: {}}\n- name: analyze\n  engine: {psd: {}}\n  input: gen\n")
	sc := schema.DefaultSystemConfig()
	sc.Paths.OutputDir = t.TempDir()
	sessionRoot := t.TempDir()

	first := New(Options{Registry: reg, System: sc, SessionRoot: sessionRoot})
	if _, err := first.Run(context.Background(), jl); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	sm, ok, err := runstore.LoadSession(sessionRoot)
	if err != nil || !ok {
		t.Fatalf("expected a session manifest after the first run: ok=%v err=%v", ok, err)
	}
	if err := sm.UpdateJob(sessionRoot, "analyze", runstore.JobStatus{Status: "Failed"}); err != nil {
		t.Fatalf("marking analyze as Failed: %v", err)
	}

	seenInput = nil
	second := New(Options{Registry: reg, System: sc, SessionRoot: sessionRoot})
	results, err := second.Run(context.Background(), jl)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("expected resumed session to report success for all jobs: %+v", results)
		}
	}
	if seenInput == nil {
		t.Fatalf("expected downstream job to receive upstream result's data on resume, even though upstream was already Succeeded")
	}
}
