package expand

import (
	"testing"

	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/schema"
	"gopkg.in/yaml.v3"
)

func decodeJob(t *testing.T, doc string) *schema.JobConfig {
	t.Helper()
	var n schema.Node
	if err := yaml.Unmarshal([]byte(doc), &n); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	job, err := schema.DecodeJob(&n)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return job
}

func TestCartesianProductSize(t *testing.T) {
	job := decodeJob(t, "name: run1\nengine:\n  sde:\n    dt: [0.01, 0.02]\nparams:\n  amplitude: [1, 2, 3]\n")
	variants, err := Job(job, "cartesian", false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(variants) != 6 {
		t.Fatalf("expected 2*3=6 variants, got %d", len(variants))
	}
}

func TestNoAxesReturnsSingleJobUnchanged(t *testing.T) {
	job := decodeJob(t, "name: run1\nengine:\n  sde:\n    dt: 0.01\n")
	variants, err := Job(job, "cartesian", false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(variants) != 1 || variants[0].Name != "run1" {
		t.Fatalf("expected single unchanged job, got %v", variants)
	}
}

func TestZippedRequiresEqualOrScalarLengths(t *testing.T) {
	job := decodeJob(t, "name: run1\nengine:\n  sde:\n    dt: [0.01, 0.02, 0.03]\nparams:\n  amplitude: [1, 2]\n")
	_, err := Job(job, "zipped", false)
	if kind, ok := errs.KindOf(err); !ok || kind != errs.SweepLengthMismatch {
		t.Fatalf("expected SweepLengthMismatch, got %v", err)
	}
}

func TestZippedBroadcastsScalarAxis(t *testing.T) {
	job := decodeJob(t, "name: run1\nengine:\n  sde:\n    dt: [0.01, 0.02, 0.03]\nparams:\n  amplitude: [7]\n")
	variants, err := Job(job, "zipped", false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(variants))
	}
	for _, v := range variants {
		amp, _ := v.Params.Get("amplitude")
		if amp.Scalar != 7 {
			t.Fatalf("expected broadcast scalar 7, got %v", amp.Scalar)
		}
	}
}

func TestNumberingAppliesZeroPaddedSuffixes(t *testing.T) {
	job := decodeJob(t, "name: sweep\nengine:\n  sde:\n    dt: [0.01, 0.02]\n")
	variants, err := Job(job, "cartesian", true)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := []string{"sweep_001", "sweep_002"}
	for i, v := range variants {
		if v.Name != want[i] || v.Output != want[i] {
			t.Fatalf("expected %q, got name=%q output=%q", want[i], v.Name, v.Output)
		}
	}
}

func TestNumberingSkippedForSingleResult(t *testing.T) {
	job := decodeJob(t, "name: solo\nengine:\n  sde:\n    dt: 0.01\n")
	variants, err := Job(job, "cartesian", true)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if variants[0].Name != "solo" {
		t.Fatalf("expected name unchanged for single result, got %q", variants[0].Name)
	}
}

func TestDisabledScanReturnsListUnchanged(t *testing.T) {
	job := decodeJob(t, "name: run1\nengine:\n  sde:\n    dt: [0.01, 0.02]\n")
	jl := &schema.JobList{Jobs: []*schema.JobConfig{job}}
	sc := schema.DefaultSystemConfig()
	sc.ParameterScan.Enabled = false

	out, err := JobList(jl, sc)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != jl {
		t.Fatalf("expected the same JobList back unchanged")
	}
}

func TestStringDSLExpandsToLinspaceAxis(t *testing.T) {
	job := decodeJob(t, "name: run1\nengine:\n  sde:\n    dt: \"lin(0.0, 1.0, 3)\"\n")
	variants, err := Job(job, "cartesian", false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants from lin(...), got %d", len(variants))
	}
	dt, _ := variants[1].Engine.Get("sde.dt")
	if dt.Scalar != 0.5 {
		t.Fatalf("expected midpoint 0.5, got %v", dt.Scalar)
	}
}

func TestDictDSLExpandsLogAxis(t *testing.T) {
	job := decodeJob(t, "name: run1\nengine:\n  sde: {}\nparams:\n  freq:\n    log:\n      start: 0\n      stop: 2\n      num: 3\n")
	variants, err := Job(job, "cartesian", false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants from log DSL, got %d", len(variants))
	}
	first, _ := variants[0].Params.Get("freq")
	last, _ := variants[2].Params.Get("freq")
	if first.Scalar.(float64) != 1.0 || last.Scalar.(float64) != 100.0 {
		t.Fatalf("expected logspace 1..100, got %v..%v", first.Scalar, last.Scalar)
	}
}
