package configpipe

import (
	_ "embed"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/qlog"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

//go:embed defaults.yaml
var embeddedDefaults []byte

// EmbeddedDefaults returns layer 1 of spec.md §4.2's defaulting pipeline:
// the package-shipped defaults.
func EmbeddedDefaults() (*schema.Node, error) {
	return ParseConfigBytes("defaults.yaml", embeddedDefaults)
}

// Env wraps the viper instance used purely to resolve WHERE each config
// layer lives — env-var overrides and search paths — never to merge
// config content itself (see package doc).
type Env struct {
	v *viper.Viper
}

// NewEnv builds an Env bound to the process environment, mirroring the
// teacher's viper.BindEnv calls in pkg/worker.LoadConfig.
func NewEnv() *Env {
	v := viper.New()
	v.SetEnvPrefix(AppName)
	v.AutomaticEnv()
	_ = v.BindEnv("defaults_file", EnvDefaultsFile)
	_ = v.BindEnv("system_params", EnvSystemParams)
	_ = v.BindEnv("config", EnvConfigFile)
	return &Env{v: v}
}

// DefaultsFile returns the env-pointed defaults file path (layer 3),
// empty if unset.
func (e *Env) DefaultsFile() string { return e.v.GetString("defaults_file") }

// SystemParamsFile returns the env-pointed system-overrides file path
// (layer 4), empty if unset.
func (e *Env) SystemParamsFile() string { return e.v.GetString("system_params") }

// ConfigFile returns QPHASE_CONFIG, empty if unset. LoadSystemConfig and
// job-file discovery do not consult it: config discovery is the same
// whether or not it is set.
func (e *Env) ConfigFile() string { return e.v.GetString("config") }

// LoadSystemConfig runs spec.md §4.2's layered defaulting pipeline
// (layers 1-4; layer 5, the per-job system_override, is applied later by
// the scheduler for the single job it concerns) and returns the decoded
// SystemConfig plus the merged raw tree (kept around so callers can
// layer a job's system_override on top via schema.DeepMerge without
// re-parsing).
func LoadSystemConfig(env *Env) (*schema.SystemConfig, *schema.Node, error) {
	merged, err := EmbeddedDefaults()
	if err != nil {
		return nil, nil, errs.Wrap(errs.ConfigParseError, err, "parsing embedded defaults")
	}

	if site := UserSiteFile(); site != "" {
		if node, ok, err := tryParse(site); err != nil {
			return nil, nil, err
		} else if ok {
			merged = schema.DeepMerge(merged, node)
		}
	}

	if df := env.DefaultsFile(); df != "" {
		node, ok, err := tryParse(df)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			qlog.Warn("defaults file %q (from %s) does not exist; skipping", df, EnvDefaultsFile)
		} else {
			merged = schema.DeepMerge(merged, node)
		}
	}

	if sp := env.SystemParamsFile(); sp != "" {
		node, ok, err := tryParse(sp)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			qlog.Warn("system overrides file %q (from %s) does not exist; skipping", sp, EnvSystemParams)
		} else {
			merged = schema.DeepMerge(merged, node)
		}
	}

	sc, err := schema.DecodeSystemConfig(merged)
	if err != nil {
		return nil, nil, err
	}
	return sc, merged, nil
}

func tryParse(path string) (*schema.Node, bool, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, false, nil
	}
	node, err := ParseConfigFile(path)
	if err != nil {
		return nil, false, err
	}
	return node, true, nil
}

// FindJobFile resolves a bare job name X against each configDirs/jobs/
// directory in order, matching X.yaml or X.yml; the first hit wins
// (spec.md §4.2). Failure reports the directories searched plus every
// job name that would have matched across all of them.
func FindJobFile(configDirs []string, name string) (string, error) {
	var searched []string
	for _, dir := range configDirs {
		jobsDir := filepath.Join(dir, "jobs")
		searched = append(searched, jobsDir)
		for _, ext := range []string{".yaml", ".yml"} {
			candidate := filepath.Join(jobsDir, name+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	candidates, _ := ListJobNames(configDirs)
	return "", errs.New(errs.JobNotFound,
		"job %q not found; searched %s; discoverable jobs: %s",
		name, strings.Join(searched, ", "), strings.Join(candidates, ", "))
}

// ListJobNames enumerates every discoverable job name across configDirs,
// used by `run jobs --list` and job-not-found's diagnostic candidate
// list. Names are deduplicated and sorted.
func ListJobNames(configDirs []string) ([]string, error) {
	seen := map[string]bool{}
	for _, dir := range configDirs {
		jobsDir := filepath.Join(dir, "jobs")
		matches, err := doublestar.Glob(os.DirFS(jobsDir), "*.y*ml")
		if err != nil {
			continue
		}
		for _, m := range matches {
			ext := filepath.Ext(m)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			seen[strings.TrimSuffix(filepath.Base(m), ext)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
