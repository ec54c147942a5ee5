// Package scheduler implements the centerpiece of the system: serial
// execution of an expanded JobList (spec.md §4.6). Its single public
// operation is "execute this JobList."
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/plugin"
	"github.com/qphase-sched/qphase-sched/internal/progress"
	"github.com/qphase-sched/qphase-sched/internal/qlog"
	"github.com/qphase-sched/qphase-sched/internal/registry"
	"github.com/qphase-sched/qphase-sched/internal/runstore"
	"github.com/qphase-sched/qphase-sched/internal/schema"
	"github.com/qphase-sched/qphase-sched/internal/validate"
)

// JobResult is spec.md §3's per-job outcome record.
type JobResult struct {
	JobIndex int
	JobName  string
	RunDir   string
	RunID    string
	Success  bool
	Error    string
}

// Options configures one Scheduler.Run invocation.
type Options struct {
	Registry     *registry.Registry
	System       *schema.SystemConfig
	GlobalConfig *schema.Node // from SystemConfig.Paths.GlobalFile, already parsed; nil if absent
	ProgressSink progress.Sink
	FailFast     bool
	DryRun       bool
	// SessionRoot, when non-empty, enables session persistence/resume:
	// the scheduler loads an existing session_manifest.json there (if
	// present), skips jobs already marked Succeeded, and updates the
	// manifest after every job transition.
	SessionRoot string
	Now         func() time.Time
}

// Scheduler executes an expanded, validated JobList strictly serially.
type Scheduler struct {
	opts Options
}

// New builds a Scheduler. opts.Now defaults to time.Now.
func New(opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default
	}
	return &Scheduler{opts: opts}
}

// Run executes jl in order, resolving each job's input from job_results,
// and returns one JobResult per job. It never returns early on a single
// job's failure unless opts.FailFast is set (spec.md §4.6 step 10:
// "partial-failure semantics").
func (s *Scheduler) Run(ctx context.Context, jl *schema.JobList) ([]JobResult, error) {
	resolutions, err := validate.JobList(jl, func(msg string) { qlog.Warn("%s", msg) })
	if err != nil {
		return nil, err
	}

	var session *runstore.SessionManifest
	if s.opts.SessionRoot != "" {
		loaded, ok, lerr := runstore.LoadSession(s.opts.SessionRoot)
		if lerr != nil {
			return nil, lerr
		}
		if ok {
			session = loaded
		} else {
			session = runstore.NewSession(runstore.NewRunID(), s.opts.Now())
		}
	}

	jobResults := map[string]plugin.Result{}
	results := make([]JobResult, 0, len(jl.Jobs))
	total := len(jl.Jobs)

	// Jobs whose result feeds another job's input must still run even if
	// a resumed session already marked them Succeeded: jobResults only
	// holds results produced this process, and no on-disk representation
	// of a Result is generic enough to rehydrate (spec.md §4.6 step 1).
	// Skipping them on resume would make every downstream job that reads
	// job_results fail with "upstream result ... not yet available" even
	// though the upstream genuinely succeeded.
	neededAsUpstream := map[string]bool{}
	for _, resolution := range resolutions {
		if resolution.UpstreamJob != "" {
			neededAsUpstream[resolution.UpstreamJob] = true
		}
	}

	for idx, job := range jl.Jobs {
		select {
		case <-ctx.Done():
			results = append(results, JobResult{JobIndex: idx, JobName: job.Name, Success: false, Error: ctx.Err().Error()})
			if session != nil {
				_ = session.UpdateJob(s.opts.SessionRoot, job.Name, runstore.JobStatus{Status: "Failed"})
			}
			return results, ctx.Err()
		default:
		}

		if session != nil && session.IsSucceeded(job.Name) && !neededAsUpstream[job.Name] {
			results = append(results, JobResult{JobIndex: idx, JobName: job.Name, Success: true})
			continue
		}

		res, runErr := s.runOne(ctx, job, idx, total, jobResults, resolutions[job.Name], session)
		results = append(results, res)
		if runErr != nil && s.opts.FailFast {
			return results, runErr
		}
	}
	if session != nil {
		_ = session.Finish(s.opts.SessionRoot, "Completed")
	}
	return results, nil
}

func (s *Scheduler) runOne(ctx context.Context, job *schema.JobConfig, idx, total int, jobResults map[string]plugin.Result, resolution validate.InputResolution, session *runstore.SessionManifest) (JobResult, error) {
	jr := JobResult{JobIndex: idx, JobName: job.Name}
	markFailed := func(err error) (JobResult, error) {
		jr.Success = false
		jr.Error = err.Error()
		qlog.LogError(err)
		if session != nil {
			_ = session.UpdateJob(s.opts.SessionRoot, job.Name, runstore.JobStatus{Status: "Failed"})
		}
		return jr, err
	}

	if session != nil {
		_ = session.UpdateJob(s.opts.SessionRoot, job.Name, runstore.JobStatus{Status: "Preparing"})
	}

	// Step 0: fold this job's system_override (if any) onto the session's
	// SystemConfig (spec.md §4.2 layer 5). Only this job's view of paths,
	// auto-save and progress interval are affected; s.opts.System itself
	// is left untouched for the jobs that follow.
	effectiveSystem := s.opts.System
	if job.SystemOverride != nil && !job.SystemOverride.IsEmpty() {
		merged := schema.DeepMerge(s.opts.System.ToNode(), job.SystemOverride)
		sc, err := schema.DecodeSystemConfig(merged)
		if err != nil {
			return markFailed(errs.Wrap(errs.SchemaInvalid, err, "job %q: invalid system_override", job.Name))
		}
		effectiveSystem = sc
	}

	// Step 1: resolve input.
	var inputData any
	if job.Input != "" {
		switch resolution.Kind {
		case validate.InputJob, validate.InputEngine:
			upstream, ok := jobResults[resolution.UpstreamJob]
			if !ok {
				return markFailed(errs.New(errs.RuntimeEngineError, "job %q: upstream result for %q is not yet available", job.Name, resolution.UpstreamJob))
			}
			inputData = upstream
		case validate.InputExternal:
			ext := loaderKeyForPath(resolution.Path)
			loader, err := s.opts.Registry.Create(registry.NSLoader+":"+ext, nil)
			if err != nil {
				return markFailed(errs.New(errs.ExternalInputUnsupported, "job %q: input %q references external data with no loader registered for %q", job.Name, job.Input, ext))
			}
			l, ok := loader.(plugin.Loader)
			if !ok {
				return markFailed(errs.New(errs.ExternalInputUnsupported, "job %q: registered loader for %q does not satisfy plugin.Loader", job.Name, job.Input))
			}
			result, err := l.Load(ctx, resolution.Path)
			if err != nil {
				return markFailed(errs.Wrap(errs.ExternalInputUnsupported, err, "job %q: loading external input %q", job.Name, job.Input))
			}
			inputData = result.Data()
		}
	}

	// Step 2: allocate run directory.
	runDir, err := runstore.AllocateRunDir(effectiveSystem.Paths.OutputDir, s.opts.Now())
	if err != nil {
		return markFailed(err)
	}
	jr.RunDir = runDir
	runID := runstore.NewRunID()
	jr.RunID = runID

	if s.opts.DryRun {
		runID = "dry_run"
		jr.RunID = runID
	}

	// Step 3: merge configuration (system defaults -> global plugin config
	// -> per-job overrides). The job's own declared plugins are the per-job
	// layer; here the global_file plugin configuration is merged under
	// them, so the job's values win.
	effectivePlugins := job.Plugins
	if s.opts.GlobalConfig != nil {
		effectivePlugins = schema.DeepMerge(s.opts.GlobalConfig, job.Plugins)
	}

	engineName, engineParams := job.EngineName()

	if s.opts.DryRun {
		snap := runstore.NewSnapshot(runID, idx, job.Name, job.Input, job.EffectiveOutput(), engineName, engineParams, nil, s.opts.Now())
		if err := runstore.WriteSnapshot(runDir, snap); err != nil {
			qlog.Warn("job %q: snapshot write failed: %v", job.Name, err)
		}
		jr.Success = true
		if session != nil {
			_ = session.UpdateJob(s.opts.SessionRoot, job.Name, runstore.JobStatus{Status: "Succeeded", RunID: runID, OutputDir: runDir})
		}
		return jr, nil
	}

	// Step 4: build plugins.
	pluginEntries, err := schema.CollectPluginEntries(effectivePlugins)
	if err != nil {
		return markFailed(errs.Wrap(errs.PluginBuildFailed, err, "job %q: normalizing plugin declarations", job.Name))
	}
	builtPlugins := map[string]any{}
	var snapshotPlugins []runstore.PluginSnapshot
	for _, pc := range pluginEntries {
		built, err := s.opts.Registry.Create(pc.FullName(), pc.ParamsMap())
		if err != nil {
			return markFailed(errs.Wrap(errs.PluginBuildFailed, err, "job %q: building plugin %s", job.Name, pc.FullName()))
		}
		builtPlugins[pc.Kind] = built
		builtPlugins[pc.Kind+"."+pc.Name] = built
		snapshotPlugins = append(snapshotPlugins, runstore.PluginSnapshot{Kind: pc.Kind, Name: pc.Name, Params: pc.ParamsMap()})
	}

	// Step 5: instantiate engine.
	builtEngine, err := s.opts.Registry.Create(registry.NSEngine+":"+engineName, mergeEngineParams(engineParams, builtPlugins))
	if err != nil {
		return markFailed(errs.Wrap(errs.EngineInitFailed, err, "job %q: instantiating engine %q", job.Name, engineName))
	}
	eng, ok := builtEngine.(plugin.Engine)
	if !ok {
		return markFailed(errs.New(errs.EngineInitFailed, "job %q: engine %q does not satisfy plugin.Engine", job.Name, engineName))
	}

	// Step 6: write snapshot, best-effort.
	snap := runstore.NewSnapshot(runID, idx, job.Name, job.Input, job.EffectiveOutput(), engineName, engineParams, snapshotPlugins, s.opts.Now())
	if err := runstore.WriteSnapshot(runDir, snap); err != nil {
		qlog.Warn("job %q: snapshot write failed: %v", job.Name, err)
	}
	if err := runstore.WriteManifest(runDir, runstore.Manifest{RunID: runID, JobIndex: idx, JobName: job.Name}); err != nil {
		qlog.Warn("job %q: manifest write failed: %v", job.Name, err)
	}

	if session != nil {
		_ = session.UpdateJob(s.opts.SessionRoot, job.Name, runstore.JobStatus{Status: "Running", RunID: runID, OutputDir: runDir})
	}

	// Step 7: run engine, feature-detecting progress support.
	tracker := progress.NewTracker(job.Name, idx+1, total, durationOf(effectiveSystem.ProgressUpdateInterval), s.opts.ProgressSink)
	var result plugin.Result
	if progressive, ok := eng.(plugin.ProgressReportingEngine); ok {
		result, err = progressive.RunWithProgress(ctx, inputData, tracker.Report)
	} else {
		qlog.Warn("job %q: engine %q does not support progress reporting; progress disabled", job.Name, engineName)
		result, err = eng.Run(ctx, inputData)
	}
	if err != nil {
		return markFailed(errs.Wrap(errs.RuntimeEngineError, err, "job %q: engine %q failed", job.Name, engineName))
	}

	// Step 8: validate result.
	if result == nil {
		return markFailed(errs.New(errs.ResultContractViolation, "job %q: engine %q returned a nil result", job.Name, engineName))
	}

	// Step 9: route output.
	jobResults[job.Name] = result
	outputLabel := job.EffectiveOutput()
	if outputLabel != job.Name {
		jobResults[outputLabel] = result
	}
	if effectiveSystem.AutoSaveResults {
		savePath := filepath.Join(runDir, outputLabel)
		if err := result.Save(savePath); err != nil {
			return markFailed(errs.Wrap(errs.RuntimeIOError, err, "job %q: saving result to %q", job.Name, savePath))
		}
	}

	// Step 10: transition + report.
	jr.Success = true
	tracker.Terminal(fmt.Sprintf("job %q complete", job.Name))
	if session != nil {
		_ = session.UpdateJob(s.opts.SessionRoot, job.Name, runstore.JobStatus{Status: "Succeeded", RunID: runID, OutputDir: runDir})
	}
	return jr, nil
}

// loaderKeyForPath derives the registry.NSLoader lookup key from an
// external input reference's file extension (e.g. "trace.npy" -> "npy"),
// defaulting to "default" for extensionless paths. The core itself never
// reads the file or inspects its contents; this is purely a dispatch key
// for a plugin-supplied loader.
func loaderKeyForPath(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "default"
	}
	return ext[1:]
}

func durationOf(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// mergeEngineParams flattens the engine's own parameters plus the built
// plugins map into the single params bag internal/registry.Factory
// expects, so an engine factory can read both its scalar parameters and
// its built plugin instances (spec.md §4.6 step 5: "passing the plugins
// map").
func mergeEngineParams(engineParams *schema.Node, builtPlugins map[string]any) map[string]any {
	out := map[string]any{}
	if engineParams != nil {
		for k, v := range flattenNode(engineParams) {
			out[k] = v
		}
	}
	out["plugins"] = builtPlugins
	return out
}

func flattenNode(n *schema.Node) map[string]any {
	if n == nil || n.Kind != schema.KindMapping {
		return map[string]any{}
	}
	out := make(map[string]any, len(n.Fields))
	for k, v := range n.Fields {
		out[k] = nodeToAny(v)
	}
	return out
}

func nodeToAny(n *schema.Node) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case schema.KindScalar:
		return n.Scalar
	case schema.KindSequence:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			items[i] = nodeToAny(it)
		}
		return items
	case schema.KindMapping:
		return flattenNode(n)
	default:
		return nil
	}
}
