// Package runstore allocates run directories, writes reproducibility
// snapshots, and maintains the session manifest used for resumption
// (spec.md §4.6's "Write snapshot"/"Resumption" and §6's Persisted
// layout). Snapshot/manifest serialization follows the teacher's
// mix of YAML for human-facing config and JSON for small machine-read
// records.
package runstore

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qphase-sched/qphase-sched/internal/errs"
)

// AllocateRunDir creates and returns
// "<outputDir>/<ISO8601-UTC-colons-as-hyphens>_<short-uuid>/" (spec.md
// §4.6 step 2). now is injected so callers (and tests) control the
// timestamp rather than relying on a wall-clock read inside the store.
func AllocateRunDir(outputDir string, now time.Time) (string, error) {
	ts := strings.ReplaceAll(now.UTC().Format(time.RFC3339), ":", "-")
	short := uuid.NewString()[:8]
	dir := filepath.Join(outputDir, ts+"_"+short)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errs.Wrap(errs.RuntimeIOError, err, "allocating run directory %q", dir)
	}
	return dir, nil
}

// NewRunID returns a fresh identifier for one job execution, distinct
// from the run directory's own short uuid suffix.
func NewRunID() string {
	return uuid.NewString()
}
