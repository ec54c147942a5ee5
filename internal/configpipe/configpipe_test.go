package configpipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qphase-sched/qphase-sched/internal/errs"
)

func TestParseConfigFileRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weird.conf")
	if err := os.WriteFile(path, []byte("a: 1"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	_, err := ParseConfigFile(path)
	if kind, ok := errs.KindOf(err); !ok || kind != errs.ConfigNoParser {
		t.Fatalf("expected ConfigNoParser, got %v", err)
	}
}

func TestParseConfigFileRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("a: [1, 2\n"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	_, err := ParseConfigFile(path)
	if kind, ok := errs.KindOf(err); !ok || kind != errs.ConfigParseError {
		t.Fatalf("expected ConfigParseError, got %v", err)
	}
}

func TestParseConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.json")
	if err := os.WriteFile(path, []byte(`{"a": {"b": 1}}`), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	n, err := ParseConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	v, ok := n.Get("a.b")
	if !ok || v.Scalar.(float64) != 1 {
		t.Fatalf("expected a.b=1, got %v", v)
	}
}

func TestEmbeddedDefaultsParse(t *testing.T) {
	n, err := EmbeddedDefaults()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	v, ok := n.Get("parameter_scan.method")
	if !ok || v.Scalar != "cartesian" {
		t.Fatalf("expected embedded default method=cartesian, got %v", v)
	}
}

func TestLoadSystemConfigAppliesEnvPointedOverride(t *testing.T) {
	dir := t.TempDir()
	overridePath := filepath.Join(dir, "override.yaml")
	if err := os.WriteFile(overridePath, []byte("parameter_scan:\n  method: zipped\n"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	t.Setenv(EnvDefaultsFile, overridePath)

	env := NewEnv()
	sc, _, err := LoadSystemConfig(env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sc.ParameterScan.Method != "zipped" {
		t.Fatalf("expected overridden method zipped, got %q", sc.ParameterScan.Method)
	}
}

func TestFindJobFileLocatesFirstHit(t *testing.T) {
	dir := t.TempDir()
	jobsDir := filepath.Join(dir, "jobs")
	if err := os.MkdirAll(jobsDir, 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	jobPath := filepath.Join(jobsDir, "sweep1.yaml")
	if err := os.WriteFile(jobPath, []byte("name: sweep1\n"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	found, err := FindJobFile([]string{dir}, "sweep1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if found != jobPath {
		t.Fatalf("expected %q, got %q", jobPath, found)
	}
}

func TestFindJobFileNotFoundReportsSearchedDirs(t *testing.T) {
	dir := t.TempDir()
	_, err := FindJobFile([]string{dir}, "missing")
	if kind, ok := errs.KindOf(err); !ok || kind != errs.JobNotFound {
		t.Fatalf("expected JobNotFound, got %v", err)
	}
}

func TestListJobNamesDeduplicatesAndSorts(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	for _, d := range []string{dirA, dirB} {
		jobsDir := filepath.Join(d, "jobs")
		if err := os.MkdirAll(jobsDir, 0755); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}
	os.WriteFile(filepath.Join(dirA, "jobs", "b.yaml"), []byte("name: b\n"), 0644)
	os.WriteFile(filepath.Join(dirA, "jobs", "a.yaml"), []byte("name: a\n"), 0644)
	os.WriteFile(filepath.Join(dirB, "jobs", "a.yml"), []byte("name: a\n"), 0644)

	names, err := ListJobNames([]string{dirA, dirB})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected [a b], got %v", names)
	}
}
