package schema

import (
	"strings"

	"github.com/qphase-sched/qphase-sched/internal/errs"
)

// JobConfig is one declared unit of work (spec.md §3 "JobConfig"). Engine,
// Plugins and Params are kept as Node trees rather than flattened Go
// structs so the expander (internal/expand) can walk them generically for
// sweep axes, and so unknown nested keys round-trip untouched.
type JobConfig struct {
	Name            string
	Engine          *Node
	Plugins         *Node
	Params          *Node
	Input           string
	Output          string
	SystemOverride  *Node // raw mapping, merged onto SystemConfig by internal/scheduler for this job only
	Combinator      string // "" | "cartesian" | "zipped"
}

// DecodeJob builds a JobConfig from a parsed mapping Node (the unmarshalled
// body of one job-file document), rejecting unknown top-level keys per
// spec.md §6: "Unknown top-level keys are rejected; unknown nested keys
// under params and plugin bodies are preserved."
func DecodeJob(n *Node) (*JobConfig, error) {
	if n == nil || n.Kind != KindMapping {
		return nil, errs.New(errs.SchemaInvalid, "job document must be a mapping")
	}
	allowed := map[string]bool{
		"name": true, "engine": true, "plugins": true, "params": true,
		"input": true, "output": true, "system": true, "combinator": true,
	}
	for k := range n.Fields {
		if !allowed[k] {
			return nil, errs.New(errs.SchemaInvalid, "unknown top-level job key %q", k)
		}
	}

	job := &JobConfig{}

	nameNode, ok := n.Fields["name"]
	if !ok || nameNode.Kind != KindScalar {
		return nil, errs.New(errs.SchemaInvalid, "job is missing required field \"name\"")
	}
	name, isStr := nameNode.Scalar.(string)
	if !isStr || strings.TrimSpace(name) == "" {
		return nil, errs.New(errs.SchemaInvalid, "job \"name\" must be a non-empty string")
	}
	job.Name = name

	if e, ok := n.Fields["engine"]; ok {
		job.Engine = e
	}
	if p, ok := n.Fields["plugins"]; ok {
		job.Plugins = p
	}
	if p, ok := n.Fields["params"]; ok {
		job.Params = p
	}
	if in, ok := n.Fields["input"]; ok && in.Kind == KindScalar {
		if s, ok := in.Scalar.(string); ok {
			job.Input = s
		}
	}
	if out, ok := n.Fields["output"]; ok && out.Kind == KindScalar {
		if s, ok := out.Scalar.(string); ok {
			job.Output = s
		}
	}
	if c, ok := n.Fields["combinator"]; ok && c.Kind == KindScalar {
		if s, ok := c.Scalar.(string); ok {
			if s != "cartesian" && s != "zipped" {
				return nil, errs.New(errs.SchemaInvalid, "job %q: combinator must be \"cartesian\" or \"zipped\", got %q", name, s)
			}
			job.Combinator = s
		}
	}
	if sysNode, ok := n.Fields["system"]; ok {
		if sysNode.Kind != KindMapping {
			return nil, errs.New(errs.SchemaInvalid, "job %q: system_override must be a mapping", name)
		}
		job.SystemOverride = sysNode
	}

	if err := validateJobInvariants(job); err != nil {
		return nil, err
	}
	if err := ValidateJobParams(job.Params); err != nil {
		return nil, errs.Wrap(errs.SchemaInvalid, err, "job %q", job.Name)
	}
	return job, nil
}

// validateJobInvariants enforces spec.md §4.3/§3: exactly one engine entry
// after normalization (engine names case-folded).
func validateJobInvariants(job *JobConfig) error {
	if job.Engine == nil || job.Engine.Kind != KindMapping || len(job.Engine.Fields) == 0 {
		return errs.New(errs.MissingEngine, "job %q declares no engine", job.Name)
	}
	if len(job.Engine.Fields) > 1 {
		return errs.New(errs.AmbiguousEngine, "job %q declares %d engine entries, expected exactly one", job.Name, len(job.Engine.Fields))
	}
	normalized := NewMapping()
	for k, v := range job.Engine.Fields {
		normalized.Fields[strings.ToLower(k)] = v
	}
	job.Engine = normalized
	return nil
}

// EngineName returns the single normalized engine name and its parameter
// node. Callers must call this only after DecodeJob has validated
// exactly-one-entry.
func (j *JobConfig) EngineName() (string, *Node) {
	for k, v := range j.Engine.Fields {
		return k, v
	}
	return "", nil
}

// EffectiveOutput returns Output, defaulting to Name per spec.md §3.
func (j *JobConfig) EffectiveOutput() string {
	if j.Output != "" {
		return j.Output
	}
	return j.Name
}

// Clone deep-copies a JobConfig, used by the expander to produce one fresh
// copy per expanded variant (spec.md §3: "immutable through expansion;
// each expansion produces a fresh copy").
func (j *JobConfig) Clone() *JobConfig {
	clone := *j
	clone.Engine = j.Engine.Clone()
	clone.Plugins = j.Plugins.Clone()
	clone.Params = j.Params.Clone()
	clone.SystemOverride = j.SystemOverride.Clone()
	return &clone
}

// JobList is an ordered sequence of JobConfig (spec.md §3). Order defines
// execution order when dependencies do not force otherwise.
type JobList struct {
	Jobs []*JobConfig
}

// DecodeJobList builds a JobList from a sequence of job documents (a job
// file may contain one job or a YAML sequence of several).
func DecodeJobList(n *Node) (*JobList, error) {
	jl := &JobList{}
	switch {
	case n == nil:
		return jl, nil
	case n.Kind == KindSequence:
		for _, item := range n.Items {
			job, err := DecodeJob(item)
			if err != nil {
				return nil, err
			}
			jl.Jobs = append(jl.Jobs, job)
		}
	case n.Kind == KindMapping:
		job, err := DecodeJob(n)
		if err != nil {
			return nil, err
		}
		jl.Jobs = append(jl.Jobs, job)
	default:
		return nil, errs.New(errs.SchemaInvalid, "job file must contain a mapping or a sequence of mappings")
	}

	seen := make(map[string]bool, len(jl.Jobs))
	for _, job := range jl.Jobs {
		if seen[job.Name] {
			return nil, errs.New(errs.SchemaInvalid, "duplicate job name %q", job.Name)
		}
		seen[job.Name] = true
	}
	return jl, nil
}

// ByName indexes the JobList for O(1) name lookup (spec.md §4.5's
// jobs_by_name).
func (jl *JobList) ByName() map[string]*JobConfig {
	out := make(map[string]*JobConfig, len(jl.Jobs))
	for _, j := range jl.Jobs {
		out[j.Name] = j
	}
	return out
}

// ByEngine indexes the JobList by engine name for O(1) lookup of candidate
// upstream jobs (spec.md §4.5's jobs_by_engine).
func (jl *JobList) ByEngine() map[string][]*JobConfig {
	out := make(map[string][]*JobConfig)
	for _, j := range jl.Jobs {
		name, _ := j.EngineName()
		out[name] = append(out[name], j)
	}
	return out
}
