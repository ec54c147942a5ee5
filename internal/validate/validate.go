// Package validate runs the scheduler's two-stage pre-execution check
// (spec.md §4.5) over an already-expanded JobList: engine cardinality,
// then data-flow resolution of each job's `input` reference. Validation
// failures abort before any job runs.
package validate

import (
	"fmt"

	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

// InputKind classifies how a job's `input` field was resolved.
type InputKind int

const (
	// InputJob means the reference names a sibling job directly.
	InputJob InputKind = iota
	// InputEngine means the reference names an engine used by exactly one
	// earlier job, resolved to that job.
	InputEngine
	// InputExternal means the reference matched neither a job nor an
	// unambiguous engine name, and is treated as an external file path.
	InputExternal
)

// InputResolution is the outcome of resolving one job's `input` field.
type InputResolution struct {
	Kind       InputKind
	UpstreamJob string // populated for InputJob/InputEngine; the job name to read job_results from
	Path       string  // populated for InputExternal; the literal input string
}

// Stage A: engine cardinality. DecodeJob already enforces this at parse
// time, but the validator re-checks so that a JobList assembled any other
// way (tests, future programmatic callers) still gets the guarantee
// before Stage B and the scheduler run it.
func CheckEngineCardinality(jl *schema.JobList) error {
	for _, job := range jl.Jobs {
		if job.Engine == nil || job.Engine.Kind != schema.KindMapping || len(job.Engine.Fields) == 0 {
			return errs.New(errs.MissingEngine, "job %q declares no engine", job.Name)
		}
		if len(job.Engine.Fields) > 1 {
			return errs.New(errs.AmbiguousEngine, "job %q declares %d engine entries, expected exactly one", job.Name, len(job.Engine.Fields))
		}
	}
	return nil
}

// CheckDataFlow runs Stage B over jl in list order (the same order the
// scheduler executes in, so "earlier job" means "earlier in this slice").
// warn, if non-nil, is called once per input resolved as an external
// path, per spec.md §4.5 ("only logged, not verified at this stage").
func CheckDataFlow(jl *schema.JobList, warn func(message string)) (map[string]InputResolution, error) {
	byName := jl.ByName()
	resolutions := make(map[string]InputResolution, len(jl.Jobs))

	engineSeenCount := map[string]int{}
	engineSeenJob := map[string]string{}

	for _, job := range jl.Jobs {
		engineName, _ := job.EngineName()

		if job.Input != "" {
			switch {
			case byName[job.Input] != nil:
				resolutions[job.Name] = InputResolution{Kind: InputJob, UpstreamJob: job.Input}
			case engineSeenCount[job.Input] == 1:
				resolutions[job.Name] = InputResolution{Kind: InputEngine, UpstreamJob: engineSeenJob[job.Input]}
			case engineSeenCount[job.Input] > 1:
				return nil, errs.New(errs.AmbiguousInput,
					"job %q: input %q matches %d earlier jobs using engine %q; name the job explicitly",
					job.Name, job.Input, engineSeenCount[job.Input], job.Input)
			default:
				resolutions[job.Name] = InputResolution{Kind: InputExternal, Path: job.Input}
				if warn != nil {
					warn(fmt.Sprintf("job %q: input %q does not match any job or engine name; treating as an external file path", job.Name, job.Input))
				}
			}
		}

		engineSeenCount[engineName]++
		engineSeenJob[engineName] = job.Name
	}
	return resolutions, nil
}

// JobList runs both stages in order, returning the data-flow resolution
// table the scheduler consults when resolving each job's input.
func JobList(jl *schema.JobList, warn func(message string)) (map[string]InputResolution, error) {
	if err := CheckEngineCardinality(jl); err != nil {
		return nil, err
	}
	return CheckDataFlow(jl, warn)
}
