package validate

import (
	"testing"

	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/schema"
	"gopkg.in/yaml.v3"
)

func jobList(t *testing.T, doc string) *schema.JobList {
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

func TestInputResolvesToSiblingJobByName(t *testing.T) {
	jl := jobList(t, "- name: gen\n  engine: {sde: {}}\n- name: analyze\n  engine: {psd: {}}\n  input: gen\n")
	res, err := JobList(jl, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res["analyze"].Kind != InputJob || res["analyze"].UpstreamJob != "gen" {
		t.Fatalf("expected InputJob resolution to gen, got %+v", res["analyze"])
	}
}

func TestInputResolvesToUnambiguousEngine(t *testing.T) {
	jl := jobList(t, "- name: run1\n  engine: {sde: {}}\n- name: analyze\n  engine: {psd: {}}\n  input: sde\n")
	res, err := JobList(jl, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res["analyze"].Kind != InputEngine || res["analyze"].UpstreamJob != "run1" {
		t.Fatalf("expected InputEngine resolution to run1, got %+v", res["analyze"])
	}
}

func TestAmbiguousInputFailsWhenTwoJobsShareEngine(t *testing.T) {
	jl := jobList(t, "- name: run1\n  engine: {sde: {}}\n- name: run2\n  engine: {sde: {}}\n- name: analyze\n  engine: {psd: {}}\n  input: sde\n")
	_, err := JobList(jl, nil)
	if kind, ok := errs.KindOf(err); !ok || kind != errs.AmbiguousInput {
		t.Fatalf("expected AmbiguousInput, got %v", err)
	}
}

func TestUnmatchedInputTreatedAsExternalAndWarns(t *testing.T) {
	jl := jobList(t, "- name: analyze\n  engine: {psd: {}}\n  input: /data/trace.npy\n")
	var warned string
	res, err := JobList(jl, func(msg string) { warned = msg })
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res["analyze"].Kind != InputExternal || res["analyze"].Path != "/data/trace.npy" {
		t.Fatalf("expected InputExternal, got %+v", res["analyze"])
	}
	if warned == "" {
		t.Fatalf("expected a warning to be emitted for the unmatched input")
	}
}
