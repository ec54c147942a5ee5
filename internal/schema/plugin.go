package schema

import (
	"strings"

	"github.com/qphase-sched/qphase-sched/internal/errs"
)

// PluginConfig is a validated per-plugin record (spec.md §3): a plugin
// name paired with its parameters. The core does not know a plugin's own
// schema (spec.md §3: "a validated record whose schema is supplied by the
// plugin class"), so PluginConfig carries parameters as a raw Node rather
// than a plugin-specific struct; eligibility for sweep expansion
// ("scanable hint") is represented implicitly — any list-valued field
// found under Params is a sweep axis, since the core has no per-field
// metadata from the plugin class to consult. Plugins that need stricter
// field validation perform it themselves inside their Factory.
type PluginConfig struct {
	Kind   string
	Name   string
	Params *Node
}

// NormalizePluginEntry converts one `plugins.<kind>` body into a
// PluginConfig, accepting both input shapes spec.md §4.6 step 4 names:
//
//	Flat:   {name: "<plugin_name>", params: {...}}
//	Nested: {<plugin_name>: {...params...}}
//
// A body with a "name" key is treated as flat form. Otherwise it must have
// exactly one key, which is taken as the plugin name (nested form); a
// body with several keys and no "name" is rejected.
func NormalizePluginEntry(kind string, body *Node) (*PluginConfig, error) {
	if body == nil || body.Kind != KindMapping {
		return nil, errs.New(errs.SchemaInvalid, "plugins.%s must be a mapping", kind)
	}

	if nameNode, ok := body.Fields["name"]; ok {
		name, ok := stringScalar(nameNode)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errs.New(errs.SchemaInvalid, "plugins.%s.name must be a non-empty string", kind)
		}
		params := body.Fields["params"]
		if params == nil {
			params = NewMapping()
		}
		return &PluginConfig{Kind: kind, Name: name, Params: params}, nil
	}

	if len(body.Fields) != 1 {
		return nil, errs.New(errs.SchemaInvalid, "plugins.%s must be either {name, params} or a single {<plugin_name>: {...}} entry", kind)
	}
	for name, params := range body.Fields {
		if params.Kind != KindMapping {
			params = NewMapping()
		}
		return &PluginConfig{Kind: kind, Name: name, Params: params}, nil
	}
	return nil, errs.New(errs.SchemaInvalid, "plugins.%s is empty", kind)
}

// CollectPluginEntries normalizes every declared plugin_kind under a
// job's `plugins` mapping.
func CollectPluginEntries(plugins *Node) ([]*PluginConfig, error) {
	if plugins == nil || plugins.IsEmpty() {
		return nil, nil
	}
	if plugins.Kind != KindMapping {
		return nil, errs.New(errs.SchemaInvalid, "plugins must be a mapping")
	}
	out := make([]*PluginConfig, 0, len(plugins.Fields))
	for kind, body := range plugins.Fields {
		pc, err := NormalizePluginEntry(kind, body)
		if err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, nil
}

// FullName returns the registry key "<kind>:<name>" for this plugin
// entry, as consumed by internal/registry.Create.
func (p *PluginConfig) FullName() string {
	return p.Kind + ":" + p.Name
}

// ParamsMap flattens Params into the map[string]any shape
// internal/registry.Factory expects.
func (p *PluginConfig) ParamsMap() map[string]any {
	flat := toPlain(p.Params)
	m, ok := flat.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}
