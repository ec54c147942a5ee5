package configpipe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/qphase-sched/qphase-sched/internal/errs"
	"github.com/qphase-sched/qphase-sched/internal/schema"
	"gopkg.in/yaml.v3"
)

// ParseConfigFile reads path and decodes it into a schema.Node, choosing
// a codec by extension: .yaml/.yml via gopkg.in/yaml.v3, .json via
// encoding/json (spec.md §6's "snapshot.yaml"/"manifest.json" split
// reused here for config files a site might maintain either way). Any
// other extension fails with config-no-parser; malformed content fails
// with config-parse-error.
func ParseConfigFile(path string) (*schema.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.RuntimeIOError, err, "reading config file %q", path)
	}
	return ParseConfigBytes(path, data)
}

// ParseConfigBytes decodes raw config content, dispatching on the
// filename's extension the same way ParseConfigFile does.
func ParseConfigBytes(filename string, data []byte) (*schema.Node, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		var n schema.Node
		if err := yaml.Unmarshal(data, &n); err != nil {
			return nil, errs.Wrap(errs.ConfigParseError, err, "parsing YAML config %q", filename)
		}
		return &n, nil
	case ".json":
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errs.Wrap(errs.ConfigParseError, err, "parsing JSON config %q", filename)
		}
		return fromJSONValue(raw), nil
	default:
		return nil, errs.New(errs.ConfigNoParser, "no parser available for config file %q (unrecognized extension %q)", filename, ext)
	}
}

func fromJSONValue(v any) *schema.Node {
	switch val := v.(type) {
	case nil:
		return &schema.Node{Kind: schema.KindNull}
	case map[string]any:
		fields := make(map[string]*schema.Node, len(val))
		for k, vv := range val {
			fields[k] = fromJSONValue(vv)
		}
		return &schema.Node{Kind: schema.KindMapping, Fields: fields}
	case []any:
		items := make([]*schema.Node, len(val))
		for i, vv := range val {
			items[i] = fromJSONValue(vv)
		}
		return &schema.Node{Kind: schema.KindSequence, Items: items}
	default:
		return schema.NewScalar(val)
	}
}
