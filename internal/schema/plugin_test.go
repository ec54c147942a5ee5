package schema

import "testing"

func TestNormalizePluginEntryFlatShape(t *testing.T) {
	n := decode(t, "name: dummy\nparams:\n  x: 1\n")
	pc, err := NormalizePluginEntry("backend", n)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if pc.Name != "dummy" || pc.FullName() != "backend:dummy" {
		t.Fatalf("unexpected plugin config: %+v", pc)
	}
	if pc.ParamsMap()["x"] != 1 {
		t.Fatalf("expected params.x=1, got %v", pc.ParamsMap())
	}
}

func TestNormalizePluginEntryNestedShape(t *testing.T) {
	n := decode(t, "vdp:\n  mu: 0.5\n")
	pc, err := NormalizePluginEntry("model", n)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if pc.Name != "vdp" {
		t.Fatalf("expected name vdp, got %q", pc.Name)
	}
	if pc.ParamsMap()["mu"] != 0.5 {
		t.Fatalf("expected params.mu=0.5, got %v", pc.ParamsMap())
	}
}

func TestCollectPluginEntriesMultipleKinds(t *testing.T) {
	n := decode(t, "backend:\n  name: numpy\nmodel:\n  vdp:\n    mu: 1\n")
	entries, err := CollectPluginEntries(n)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestValidateNumericVectorRejectsNonNumeric(t *testing.T) {
	params := decode(t, "initial_condition: [1, \"bad\", 3]\n")
	if err := ValidateJobParams(params); err == nil {
		t.Fatalf("expected structural error for non-numeric entry")
	}
}

func TestValidateNumericVectorAcceptsAbsence(t *testing.T) {
	params := decode(t, "amplitude: 1\n")
	if err := ValidateJobParams(params); err != nil {
		t.Fatalf("unexpected err for absent ic field: %v", err)
	}
}
