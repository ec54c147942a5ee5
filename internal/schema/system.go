package schema

import (
	"strings"

	"github.com/qphase-sched/qphase-sched/internal/errs"
)

// Paths groups the filesystem locations SystemConfig governs (spec.md §3).
type Paths struct {
	OutputDir  string
	GlobalFile string
	PluginDirs []string
	ConfigDirs []string
}

// ParameterScan controls job-expansion behavior (spec.md §3/§4.4).
type ParameterScan struct {
	Enabled         bool
	Method          string // "cartesian" | "zipped"
	NumberedOutputs bool
}

// SystemConfig is the process-wide configuration (spec.md §3). It is
// always the end product of internal/configpipe's layered merge; callers
// should not construct one by hand outside of tests.
type SystemConfig struct {
	Paths                  Paths
	AutoSaveResults        bool
	ParameterScan          ParameterScan
	ProgressUpdateInterval float64
}

// DefaultSystemConfig returns the package defaults, layer 1 of spec.md
// §4.2's defaulting pipeline.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		Paths: Paths{
			OutputDir:  "./runs",
			GlobalFile: "",
			PluginDirs: nil,
			ConfigDirs: []string{"./config"},
		},
		AutoSaveResults: true,
		ParameterScan: ParameterScan{
			Enabled:         true,
			Method:          "cartesian",
			NumberedOutputs: true,
		},
		ProgressUpdateInterval: 1.0,
	}
}

// DecodeSystemConfig converts a merged mapping Node into a validated
// SystemConfig, enforcing spec.md §4.3/§6: numeric ranges, the
// parameter_scan.method enum, and non-empty path fields.
func DecodeSystemConfig(n *Node) (*SystemConfig, error) {
	sc := DefaultSystemConfig()
	if n == nil || n.Kind != KindMapping {
		return sc, nil
	}

	if pathsNode, ok := n.Fields["paths"]; ok {
		if pathsNode.Kind != KindMapping {
			return nil, errs.New(errs.SchemaInvalid, "system.paths must be a mapping")
		}
		if v, ok := stringField(pathsNode, "output_dir"); ok {
			sc.Paths.OutputDir = v
		}
		if v, ok := stringField(pathsNode, "global_file"); ok {
			sc.Paths.GlobalFile = v
		}
		if v, ok := pathsNode.Fields["plugin_dirs"]; ok {
			dirs, err := stringList(v, "system.paths.plugin_dirs")
			if err != nil {
				return nil, err
			}
			sc.Paths.PluginDirs = dirs
		}
		if v, ok := pathsNode.Fields["config_dirs"]; ok {
			dirs, err := stringList(v, "system.paths.config_dirs")
			if err != nil {
				return nil, err
			}
			sc.Paths.ConfigDirs = dirs
		}
		for _, dir := range append(append([]string{}, sc.Paths.PluginDirs...), sc.Paths.ConfigDirs...) {
			if strings.TrimSpace(dir) == "" {
				return nil, errs.New(errs.SchemaInvalid, "system.paths entries must be non-empty")
			}
		}
		if sc.Paths.OutputDir == "" {
			return nil, errs.New(errs.SchemaInvalid, "system.paths.output_dir must be non-empty")
		}
	}

	if v, ok := n.Fields["auto_save_results"]; ok {
		b, err := boolScalar(v, "system.auto_save_results")
		if err != nil {
			return nil, err
		}
		sc.AutoSaveResults = b
	}

	if scanNode, ok := n.Fields["parameter_scan"]; ok {
		if scanNode.Kind != KindMapping {
			return nil, errs.New(errs.SchemaInvalid, "system.parameter_scan must be a mapping")
		}
		if v, ok := scanNode.Fields["enabled"]; ok {
			b, err := boolScalar(v, "system.parameter_scan.enabled")
			if err != nil {
				return nil, err
			}
			sc.ParameterScan.Enabled = b
		}
		if v, ok := stringField(scanNode, "method"); ok {
			if v != "cartesian" && v != "zipped" {
				return nil, errs.New(errs.SchemaInvalid, "system.parameter_scan.method must be \"cartesian\" or \"zipped\", got %q", v)
			}
			sc.ParameterScan.Method = v
		}
		if v, ok := scanNode.Fields["numbered_outputs"]; ok {
			b, err := boolScalar(v, "system.parameter_scan.numbered_outputs")
			if err != nil {
				return nil, err
			}
			sc.ParameterScan.NumberedOutputs = b
		}
	}

	if v, ok := n.Fields["progress_update_interval"]; ok {
		f, err := floatScalar(v, "system.progress_update_interval")
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, errs.New(errs.SchemaInvalid, "system.progress_update_interval must be >= 0, got %v", f)
		}
		sc.ProgressUpdateInterval = f
	}

	return sc, nil
}

// ToNode re-serializes a SystemConfig into a mapping Node, used when a
// SystemConfig needs to be deep-merged with a raw overlay (e.g. a job's
// system_override) via schema.DeepMerge.
func (sc *SystemConfig) ToNode() *Node {
	n := NewMapping()
	paths := NewMapping()
	paths.Fields["output_dir"] = NewScalar(sc.Paths.OutputDir)
	paths.Fields["global_file"] = NewScalar(sc.Paths.GlobalFile)
	paths.Fields["plugin_dirs"] = stringsToNode(sc.Paths.PluginDirs)
	paths.Fields["config_dirs"] = stringsToNode(sc.Paths.ConfigDirs)
	n.Fields["paths"] = paths

	n.Fields["auto_save_results"] = NewScalar(sc.AutoSaveResults)

	scan := NewMapping()
	scan.Fields["enabled"] = NewScalar(sc.ParameterScan.Enabled)
	scan.Fields["method"] = NewScalar(sc.ParameterScan.Method)
	scan.Fields["numbered_outputs"] = NewScalar(sc.ParameterScan.NumberedOutputs)
	n.Fields["parameter_scan"] = scan

	n.Fields["progress_update_interval"] = NewScalar(sc.ProgressUpdateInterval)
	return n
}

func stringsToNode(ss []string) *Node {
	items := make([]*Node, len(ss))
	for i, s := range ss {
		items[i] = NewScalar(s)
	}
	return &Node{Kind: KindSequence, Items: items}
}

func stringField(n *Node, key string) (string, bool) {
	v, ok := n.Fields[key]
	if !ok || v.Kind != KindScalar {
		return "", false
	}
	s, ok := v.Scalar.(string)
	return s, ok
}

func stringList(n *Node, field string) ([]string, error) {
	if n.Kind != KindSequence {
		return nil, errs.New(errs.SchemaInvalid, "%s must be a list", field)
	}
	out := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		s, ok := stringScalar(item)
		if !ok {
			return nil, errs.New(errs.SchemaInvalid, "%s entries must be strings", field)
		}
		out = append(out, s)
	}
	return out, nil
}

func stringScalar(n *Node) (string, bool) {
	if n == nil || n.Kind != KindScalar {
		return "", false
	}
	s, ok := n.Scalar.(string)
	return s, ok
}

func boolScalar(n *Node, field string) (bool, error) {
	if n.Kind != KindScalar {
		return false, errs.New(errs.SchemaInvalid, "%s must be a boolean", field)
	}
	b, ok := n.Scalar.(bool)
	if !ok {
		return false, errs.New(errs.SchemaInvalid, "%s must be a boolean, got %v", field, n.Scalar)
	}
	return b, nil
}

func floatScalar(n *Node, field string) (float64, error) {
	if n.Kind != KindScalar {
		return 0, errs.New(errs.SchemaInvalid, "%s must be numeric", field)
	}
	switch v := n.Scalar.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, errs.New(errs.SchemaInvalid, "%s must be numeric, got %v", field, n.Scalar)
	}
}
