// Package expand implements the job expander (spec.md §4.4): Cartesian
// and zipped parameter-sweep expansion, plus the sweep-value DSL
// supplementing bare YAML lists (SPEC_FULL.md §5.1), grounded on
// QPhaseSDE_cli/config/loader.py's _values_from_dsl/_linspace/_logspace10.
package expand

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

var dslStringPattern = regexp.MustCompile(`^(lin|linspace|log|logspace)\s*\(\s*([^)]*)\s*\)\s*$`)

// ResolveDSL walks a config tree and replaces any sweep-value DSL form
// (string "lin(a,b,n)"/"log(a,b,n)", or mapping {lin:{start,stop,num}} /
// {log:{...}} / {values:[...]}) with a concrete Sequence node, so the
// ordinary list-valued axis detection in schema.CollectAxes picks it up
// unchanged. Ordinary scalars, lists, and mappings pass through as-is.
func ResolveDSL(n *schema.Node) (*schema.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case schema.KindScalar:
		if s, ok := n.Scalar.(string); ok {
			if vals, matched, err := resolveStringDSL(s); err != nil {
				return nil, err
			} else if matched {
				return floatsToNode(vals), nil
			}
		}
		return n, nil
	case schema.KindSequence:
		items := make([]*schema.Node, len(n.Items))
		for i, it := range n.Items {
			resolved, err := ResolveDSL(it)
			if err != nil {
				return nil, err
			}
			items[i] = resolved
		}
		return &schema.Node{Kind: schema.KindSequence, Items: items}, nil
	case schema.KindMapping:
		if resolved, matched, err := resolveMappingDSL(n); err != nil {
			return nil, err
		} else if matched {
			return resolved, nil
		}
		out := schema.NewMapping()
		for k, v := range n.Fields {
			resolved, err := ResolveDSL(v)
			if err != nil {
				return nil, err
			}
			out.Fields[k] = resolved
		}
		return out, nil
	default:
		return n, nil
	}
}

func resolveStringDSL(s string) (values []float64, matched bool, err error) {
	trimmed := strings.TrimSpace(s)
	m := dslStringPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, false, nil
	}
	kind, argsRaw := m[1], m[2]
	var parts []string
	for _, p := range strings.Split(argsRaw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 3 {
		return nil, false, nil
	}
	a, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, false, errs.New(errs.SchemaInvalid, "invalid sweep DSL %q: %v", s, err)
	}
	b, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, false, errs.New(errs.SchemaInvalid, "invalid sweep DSL %q: %v", s, err)
	}
	nf, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nil, false, errs.New(errs.SchemaInvalid, "invalid sweep DSL %q: %v", s, err)
	}
	n := int(nf)
	if n < 1 {
		n = 1
	}
	switch kind {
	case "lin", "linspace":
		return linspace(a, b, n), true, nil
	default:
		return logspace10(a, b, n), true, nil
	}
}

func resolveMappingDSL(n *schema.Node) (*schema.Node, bool, error) {
	if v, ok := n.Fields["values"]; ok && v.Kind == schema.KindSequence {
		return v, true, nil
	}
	if v, ok := n.Fields["val"]; ok && v.Kind == schema.KindSequence {
		return v, true, nil
	}
	if payload, ok := n.Fields["lin"]; ok {
		a, b, count, err := linLogArgs(payload, "lin")
		if err != nil {
			return nil, false, err
		}
		return floatsToNode(linspace(a, b, count)), true, nil
	}
	if payload, ok := n.Fields["linspace"]; ok {
		a, b, count, err := linLogArgs(payload, "linspace")
		if err != nil {
			return nil, false, err
		}
		return floatsToNode(linspace(a, b, count)), true, nil
	}
	if payload, ok := n.Fields["log"]; ok {
		a, b, count, err := linLogArgs(payload, "log")
		if err != nil {
			return nil, false, err
		}
		return floatsToNode(logspace10(a, b, count)), true, nil
	}
	if payload, ok := n.Fields["logspace"]; ok {
		a, b, count, err := linLogArgs(payload, "logspace")
		if err != nil {
			return nil, false, err
		}
		return floatsToNode(logspace10(a, b, count)), true, nil
	}
	return nil, false, nil
}

// linLogArgs accepts either {start, stop, num} or a 3-element sequence
// [start, stop, num], mirroring _values_from_dsl's dict-DSL handling.
func linLogArgs(payload *schema.Node, label string) (start, stop float64, num int, err error) {
	switch payload.Kind {
	case schema.KindMapping:
		start, err = numericField(payload, "start", label)
		if err != nil {
			return 0, 0, 0, err
		}
		stop, err = numericField(payload, "stop", label)
		if err != nil {
			return 0, 0, 0, err
		}
		n := 1.0
		if v, ok := payload.Fields["num"]; ok {
			n, err = asFloat(v)
			if err != nil {
				return 0, 0, 0, errs.New(errs.SchemaInvalid, "%s.num must be numeric", label)
			}
		}
		num = int(n)
	case schema.KindSequence:
		if len(payload.Items) < 3 {
			return 0, 0, 0, errs.New(errs.SchemaInvalid, "%s requires [start, stop, num]", label)
		}
		start, err = asFloat(payload.Items[0])
		if err != nil {
			return 0, 0, 0, err
		}
		stop, err = asFloat(payload.Items[1])
		if err != nil {
			return 0, 0, 0, err
		}
		nf, err2 := asFloat(payload.Items[2])
		if err2 != nil {
			return 0, 0, 0, err2
		}
		num = int(nf)
	default:
		return 0, 0, 0, errs.New(errs.SchemaInvalid, "%s must be a mapping or a 3-element list", label)
	}
	if num < 1 {
		num = 1
	}
	return start, stop, num, nil
}

func numericField(n *schema.Node, key, label string) (float64, error) {
	v, ok := n.Fields[key]
	if !ok {
		return 0, errs.New(errs.SchemaInvalid, "%s.%s is required", label, key)
	}
	return asFloat(v)
}

func asFloat(n *schema.Node) (float64, error) {
	if n == nil || n.Kind != schema.KindScalar {
		return 0, errs.New(errs.SchemaInvalid, "expected a numeric scalar")
	}
	switch v := n.Scalar.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, errs.New(errs.SchemaInvalid, "cannot parse %q as a number", v)
		}
		return f, nil
	default:
		return 0, errs.New(errs.SchemaInvalid, "expected a numeric scalar, got %v", v)
	}
}

func linspace(a, b float64, n int) []float64 {
	if n <= 1 {
		return []float64{a}
	}
	step := (b - a) / float64(n-1)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a + float64(i)*step
	}
	return out
}

func logspace10(aExp, bExp float64, n int) []float64 {
	if n <= 1 {
		return []float64{math.Pow(10, aExp)}
	}
	step := (bExp - aExp) / float64(n-1)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Pow(10, aExp+float64(i)*step)
	}
	return out
}

func floatsToNode(xs []float64) *schema.Node {
	items := make([]*schema.Node, len(xs))
	for i, x := range xs {
		items[i] = schema.NewScalar(x)
	}
	return &schema.Node{Kind: schema.KindSequence, Items: items}
}
