package runstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAllocateRunDirNameShape(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)

	dir, err := AllocateRunDir(root, now)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	base := filepath.Base(dir)
	if !strings.HasPrefix(base, "2026-03-05T12-30-00Z_") {
		t.Fatalf("expected timestamp-prefixed dir name, got %q", base)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected run dir to exist: %v", err)
	}
}

func TestWriteSnapshotAndManifest(t *testing.T) {
	dir := t.TempDir()
	snap := NewSnapshot("run-1", 0, "job1", "", "job1", "sde", nil, nil, time.Now().UTC())
	if err := WriteSnapshot(dir, snap); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "snapshot.yaml")); err != nil {
		t.Fatalf("expected snapshot.yaml to exist: %v", err)
	}

	if err := WriteManifest(dir, Manifest{RunID: "run-1", JobIndex: 0, JobName: "job1"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		t.Fatalf("expected manifest.json to exist: %v", err)
	}
}

func TestSessionManifestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	sm := NewSession("session-1", time.Now())
	if err := sm.UpdateJob(root, "job1", JobStatus{Status: "Succeeded", RunID: "r1", OutputDir: "out1"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	loaded, ok, err := LoadSession(root)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !ok {
		t.Fatalf("expected session manifest to exist")
	}
	if !loaded.IsSucceeded("job1") {
		t.Fatalf("expected job1 to be recorded Succeeded")
	}
}

func TestLoadSessionMissingReturnsFalse(t *testing.T) {
	root := t.TempDir()
	_, ok, err := LoadSession(root)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok {
		t.Fatalf("expected no session manifest to be found")
	}
}
