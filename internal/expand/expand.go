package expand

import (
	"fmt"

	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

// axisRoots are the three JobConfig sections the expander scans for sweep
// axes, per spec.md §4.4: "The expander collects all sweep axes found
// anywhere in engine, plugins.*, and params."
var axisRoots = []string{"engine", "plugins", "params"}

// JobList expands every JobConfig in jl according to sc.ParameterScan,
// implementing spec.md §4.4 and invariant 1 from §8: when
// parameter_scan.enabled is false, expand(L) == L unchanged.
func JobList(jl *schema.JobList, sc *schema.SystemConfig) (*schema.JobList, error) {
	if !sc.ParameterScan.Enabled {
		return jl, nil
	}
	out := &schema.JobList{}
	for _, job := range jl.Jobs {
		expanded, err := Job(job, sc.ParameterScan.Method, sc.ParameterScan.NumberedOutputs)
		if err != nil {
			return nil, err
		}
		out.Jobs = append(out.Jobs, expanded...)
	}
	return out, nil
}

// Job expands a single JobConfig into one or more scalar-valued
// JobConfigs. method is the global SystemConfig.parameter_scan.method,
// overridden per-job by JobConfig.Combinator when set (spec.md §6).
// numbered controls spec.md §4.4's auto-numbering of the produced names.
func Job(job *schema.JobConfig, method string, numbered bool) ([]*schema.JobConfig, error) {
	combinator := method
	if job.Combinator != "" {
		combinator = job.Combinator
	}

	resolved := job.Clone()
	var err error
	resolved.Engine, err = ResolveDSL(resolved.Engine)
	if err != nil {
		return nil, errs.Wrap(errs.SchemaInvalid, err, "job %q: engine", job.Name)
	}
	resolved.Plugins, err = ResolveDSL(resolved.Plugins)
	if err != nil {
		return nil, errs.Wrap(errs.SchemaInvalid, err, "job %q: plugins", job.Name)
	}
	resolved.Params, err = ResolveDSL(resolved.Params)
	if err != nil {
		return nil, errs.Wrap(errs.SchemaInvalid, err, "job %q: params", job.Name)
	}

	var axes []schema.Axis
	roots := map[string]*schema.Node{"engine": resolved.Engine, "plugins": resolved.Plugins, "params": resolved.Params}
	for _, root := range axisRoots {
		if n, ok := roots[root]; ok && n != nil {
			axes = append(axes, schema.CollectAxes(n, root)...)
		}
	}
	// re-sort: CollectAxes only orders the axes within one root, and
	// axisRoots is not in lexicographic order ("params" sorts before
	// "plugins").
	sortAxesByPath(axes)

	if len(axes) == 0 {
		return []*schema.JobConfig{resolved}, nil
	}

	var variants []*schema.JobConfig
	switch combinator {
	case "zipped":
		variants, err = expandZipped(resolved, axes)
	default:
		variants = expandCartesian(resolved, axes)
	}
	if err != nil {
		return nil, err
	}
	Number(variants, numbered)
	return variants, nil
}

func sortAxesByPath(axes []schema.Axis) {
	for i := 1; i < len(axes); i++ {
		for j := i; j > 0 && axes[j-1].Path > axes[j].Path; j-- {
			axes[j-1], axes[j] = axes[j], axes[j-1]
		}
	}
}

// expandCartesian yields the full Cartesian product over all axes, in
// lexicographic order of the flattened key paths (spec.md §4.4, invariant
// 2 from §8: |expand_cartesian({J})| = product of axis lengths).
func expandCartesian(base *schema.JobConfig, axes []schema.Axis) []*schema.JobConfig {
	counts := make([]int, len(axes))
	total := 1
	for i, ax := range axes {
		counts[i] = len(ax.Values)
		total *= counts[i]
	}

	variants := make([]*schema.JobConfig, 0, total)
	indices := make([]int, len(axes))
	for n := 0; n < total; n++ {
		variants = append(variants, applyAxisSelection(base, axes, indices))
		for i := len(indices) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < counts[i] {
				break
			}
			indices[i] = 0
		}
	}
	return variants
}

// expandZipped requires every axis length equal to some common L or equal
// to 1 (scalar-broadcast), yielding L jobs where axis i receives its i-th
// element. Length mismatches fail with sweep-length-mismatch.
func expandZipped(base *schema.JobConfig, axes []schema.Axis) ([]*schema.JobConfig, error) {
	L := 1
	for _, ax := range axes {
		if len(ax.Values) > 1 {
			if L != 1 && L != len(ax.Values) {
				return nil, errs.New(errs.SweepLengthMismatch,
					"job %q: zipped sweep requires equal axis lengths or 1 (scalar-broadcast); axis %q has length %d, expected %d",
					base.Name, ax.Path, len(ax.Values), L)
			}
			L = len(ax.Values)
		}
	}
	for _, ax := range axes {
		if len(ax.Values) != 1 && len(ax.Values) != L {
			return nil, errs.New(errs.SweepLengthMismatch,
				"job %q: zipped sweep requires equal axis lengths or 1 (scalar-broadcast); axis %q has length %d, expected %d",
				base.Name, ax.Path, len(ax.Values), L)
		}
	}

	variants := make([]*schema.JobConfig, 0, L)
	for i := 0; i < L; i++ {
		indices := make([]int, len(axes))
		for a, ax := range axes {
			if len(ax.Values) == 1 {
				indices[a] = 0
			} else {
				indices[a] = i
			}
		}
		variants = append(variants, applyAxisSelection(base, axes, indices))
	}
	return variants, nil
}

// applyAxisSelection produces one fresh JobConfig copy with each axis
// replaced by its indices[i]-th value (spec.md §3: "each expansion
// produces a fresh copy").
func applyAxisSelection(base *schema.JobConfig, axes []schema.Axis, indices []int) *schema.JobConfig {
	job := base.Clone()
	roots := map[string]*schema.Node{"engine": job.Engine, "plugins": job.Plugins, "params": job.Params}
	for i, ax := range axes {
		root, section := splitRoot(ax.Path)
		target, ok := roots[root]
		if !ok || target == nil {
			continue
		}
		_ = target.Set(section, axes[i].Values[indices[i]])
	}
	return job
}

func splitRoot(path string) (root, rest string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}

// Number applies spec.md §4.4's auto-numbering: if numbered is true and
// more than one job was produced, every job's name and output label
// become "<base>_<NNN>" with zero-padded 1-based indices (invariant 4
// from §8: every produced name matches <base>_\d{3,} with contiguous
// indices from 001). A single produced job keeps its base name.
func Number(jobs []*schema.JobConfig, numbered bool) {
	if !numbered || len(jobs) <= 1 {
		return
	}
	width := 3
	if len(jobs) >= 1000 {
		width = len(fmt.Sprintf("%d", len(jobs)))
	}
	for i, job := range jobs {
		suffix := fmt.Sprintf("_%0*d", width, i+1)
		base := job.Name
		job.Name = base + suffix
		job.Output = base + suffix
	}
}
