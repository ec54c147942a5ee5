package schema

import (
	"testing"

	"github.com/qphase-sched/qphase-sched/internal/errs"
)

func decodeJob(t *testing.T, doc string) (*JobConfig, error) {
	t.Helper()
	n := decode(t, doc)
	return DecodeJob(n)
}

func TestDecodeJobRequiresExactlyOneEngine(t *testing.T) {
	_, err := decodeJob(t, "name: run1\nengine: {}\n")
	if kind, ok := errs.KindOf(err); !ok || kind != errs.MissingEngine {
		t.Fatalf("expected MissingEngine, got %v", err)
	}

	_, err = decodeJob(t, "name: run1\nengine: {sde: {}, ode: {}}\n")
	if kind, ok := errs.KindOf(err); !ok || kind != errs.AmbiguousEngine {
		t.Fatalf("expected AmbiguousEngine, got %v", err)
	}
}

func TestDecodeJobCaseFoldsEngineName(t *testing.T) {
	job, err := decodeJob(t, "name: run1\nengine: {SDE: {dt: 0.01}}\n")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	name, _ := job.EngineName()
	if name != "sde" {
		t.Fatalf("expected case-folded engine name, got %q", name)
	}
}

func TestDecodeJobRejectsUnknownTopLevelKey(t *testing.T) {
	_, err := decodeJob(t, "name: run1\nengine: {sde: {}}\nbogus: 1\n")
	if kind, ok := errs.KindOf(err); !ok || kind != errs.SchemaInvalid {
		t.Fatalf("expected SchemaInvalid, got %v", err)
	}
}

func TestDecodeJobDefaultsOutputToName(t *testing.T) {
	job, err := decodeJob(t, "name: run1\nengine: {sde: {}}\n")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if job.EffectiveOutput() != "run1" {
		t.Fatalf("expected output to default to name, got %q", job.EffectiveOutput())
	}
}

func TestDecodeJobListRejectsDuplicateNames(t *testing.T) {
	n := decode(t, "- name: run1\n  engine: {sde: {}}\n- name: run1\n  engine: {sde: {}}\n")
	_, err := DecodeJobList(n)
	if kind, ok := errs.KindOf(err); !ok || kind != errs.SchemaInvalid {
		t.Fatalf("expected SchemaInvalid for duplicate names, got %v", err)
	}
}

func TestJobListIndexes(t *testing.T) {
	n := decode(t, "- name: a\n  engine: {sde: {}}\n- name: b\n  engine: {ode: {}}\n")
	jl, err := DecodeJobList(n)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	byName := jl.ByName()
	if len(byName) != 2 || byName["a"] == nil || byName["b"] == nil {
		t.Fatalf("unexpected ByName index: %v", byName)
	}
	byEngine := jl.ByEngine()
	if len(byEngine["sde"]) != 1 || len(byEngine["ode"]) != 1 {
		t.Fatalf("unexpected ByEngine index: %v", byEngine)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	job, err := decodeJob(t, "name: run1\nengine: {sde: {dt: 0.01}}\n")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	clone := job.Clone()
	clone.Engine.Fields["sde"].Fields["dt"] = NewScalar(0.02)

	orig, _ := job.Engine.Get("sde.dt")
	if orig.Scalar != 0.01 {
		t.Fatalf("clone mutation leaked into original: %v", orig.Scalar)
	}
}
