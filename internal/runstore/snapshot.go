package runstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qphase-sched/qphase-sched/internal/buildinfo"
	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

// PluginSnapshot records one materialized plugin's identity and
// validated configuration for the reproducibility snapshot.
type PluginSnapshot struct {
	Kind   string         `yaml:"kind"`
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// Snapshot is the reproducibility record written at the start of each
// job (spec.md §4.6 step 6): effective config, engine + plugin
// identities, run_id, job_index, input/output labels, and a metadata
// block.
type Snapshot struct {
	RunID        string            `yaml:"run_id"`
	JobIndex     int               `yaml:"job_index"`
	JobName      string            `yaml:"job_name"`
	Input        string            `yaml:"input,omitempty"`
	Output       string            `yaml:"output"`
	EngineName   string            `yaml:"engine_name"`
	EngineParams map[string]any    `yaml:"engine_params"`
	Plugins      []PluginSnapshot  `yaml:"plugins,omitempty"`
	Metadata     map[string]any    `yaml:"metadata"`
}

// NewSnapshot builds a Snapshot, stamping the metadata block with the
// scheduler version and a creation timestamp.
func NewSnapshot(runID string, jobIndex int, jobName, input, output, engineName string, engineParams *schema.Node, plugins []PluginSnapshot, now time.Time) *Snapshot {
	return &Snapshot{
		RunID:        runID,
		JobIndex:     jobIndex,
		JobName:      jobName,
		Input:        input,
		Output:       output,
		EngineName:   engineName,
		EngineParams: nodeToMap(engineParams),
		Plugins:      plugins,
		Metadata: map[string]any{
			"scheduler_version": buildinfo.Version,
			"created_at":        now.UTC().Format(time.RFC3339),
		},
	}
}

func nodeToMap(n *schema.Node) map[string]any {
	if n == nil {
		return map[string]any{}
	}
	data, err := yaml.Marshal(n)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// WriteSnapshot persists the snapshot to <runDir>/snapshot.yaml. Callers
// must treat a non-nil error as best-effort per spec.md §4.6 step 6:
// "snapshot failure logs a warning but does not abort the job."
func WriteSnapshot(runDir string, snap *Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return errs.Wrap(errs.RuntimeIOError, err, "marshaling snapshot for run %q", snap.RunID)
	}
	path := filepath.Join(runDir, "snapshot.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errs.Wrap(errs.RuntimeIOError, err, "writing snapshot to %q", path)
	}
	return nil
}

// Manifest is the small machine-read record spec.md §6 names:
// "manifest.json # {run_id, job_index, job_name}".
type Manifest struct {
	RunID    string `json:"run_id"`
	JobIndex int    `json:"job_index"`
	JobName  string `json:"job_name"`
}

// WriteManifest persists manifest.json under runDir.
func WriteManifest(runDir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errs.Wrap(errs.RuntimeIOError, err, "marshaling manifest for run %q", m.RunID)
	}
	path := filepath.Join(runDir, "manifest.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errs.Wrap(errs.RuntimeIOError, err, "writing manifest to %q", path)
	}
	return nil
}
