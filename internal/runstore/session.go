package runstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/nightlyone/lockfile"

	"github.com/qphase-sched/qphase-sched/internal/errs"
)

// JobStatus is one job's entry in the session manifest.
type JobStatus struct {
	Status    string `json:"status"` // Pending|Preparing|Running|Succeeded|Failed
	RunID     string `json:"run_id,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

// SessionManifest is spec.md §6's resumption record: "{session_id,
// start_time, status, jobs: {name -> {status, run_id, output_dir}}}".
type SessionManifest struct {
	SessionID string               `json:"session_id"`
	StartTime string               `json:"start_time"`
	Status    string               `json:"status"`
	Jobs      map[string]JobStatus `json:"jobs"`
}

// NewSession starts a fresh SessionManifest for sessionID.
func NewSession(sessionID string, now time.Time) *SessionManifest {
	return &SessionManifest{
		SessionID: sessionID,
		StartTime: now.UTC().Format(time.RFC3339),
		Status:    "Running",
		Jobs:      map[string]JobStatus{},
	}
}

func manifestPath(sessionRoot string) string {
	return filepath.Join(sessionRoot, "session_manifest.json")
}

func lockPath(sessionRoot string) string {
	return filepath.Join(sessionRoot, "session_manifest.lock")
}

// LoadSession reads an existing session manifest for resumption
// (spec.md §4.6 "Resumption"). Returns (nil, false, nil) if no manifest
// exists yet — the caller should start a fresh session in that case.
func LoadSession(sessionRoot string) (*SessionManifest, bool, error) {
	path := manifestPath(sessionRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(errs.RuntimeIOError, err, "reading session manifest %q", path)
	}
	var sm SessionManifest
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, false, errs.Wrap(errs.RuntimeIOError, err, "parsing session manifest %q", path)
	}
	return &sm, true, nil
}

// Save writes the manifest atomically: serialize to a temp file in the
// same directory, then rename over the destination (spec.md §5: "Shared
// resources... session manifest is written atomically (write to a temp
// file + rename) to tolerate interruption"). It locks the session root
// with nightlyone/lockfile for the duration of the write so concurrent
// CLI invocations against the same session don't interleave updates.
func (sm *SessionManifest) Save(sessionRoot string) error {
	lf, err := lockfile.New(lockPath(sessionRoot))
	if err != nil {
		return errs.Wrap(errs.RuntimeIOError, err, "constructing session lock %q", lockPath(sessionRoot))
	}
	if err := lf.TryLock(); err != nil {
		return errs.Wrap(errs.RuntimeIOError, err, "locking session manifest in %q", sessionRoot)
	}
	defer lf.Unlock()

	data, err := json.MarshalIndent(sm, "", "  ")
	if err != nil {
		return errs.Wrap(errs.RuntimeIOError, err, "marshaling session manifest")
	}

	dest := manifestPath(sessionRoot)
	tmp, err := os.CreateTemp(sessionRoot, "session_manifest-*.json.tmp")
	if err != nil {
		return errs.Wrap(errs.RuntimeIOError, err, "creating temp session manifest in %q", sessionRoot)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.RuntimeIOError, err, "writing temp session manifest %q", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.RuntimeIOError, err, "closing temp session manifest %q", tmpPath)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.RuntimeIOError, err, "renaming %q to %q", tmpPath, dest)
	}
	return nil
}

// UpdateJob sets a job's status entry and immediately persists the
// manifest (spec.md §4.6: "The manifest is updated atomically after
// every job transition").
func (sm *SessionManifest) UpdateJob(sessionRoot, jobName string, status JobStatus) error {
	sm.Jobs[jobName] = status
	return sm.Save(sessionRoot)
}

// IsSucceeded reports whether jobName is recorded as Succeeded, used by
// resumption to skip already-completed jobs.
func (sm *SessionManifest) IsSucceeded(jobName string) bool {
	js, ok := sm.Jobs[jobName]
	return ok && js.Status == "Succeeded"
}

// Finish marks the session complete and persists it.
func (sm *SessionManifest) Finish(sessionRoot, status string) error {
	sm.Status = status
	return sm.Save(sessionRoot)
}
