package app

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/qphase-sched/qphase-sched/internal/registry"
)

// NewCmdTemplate builds `template <namespace.name>` (spec.md §6): emit a
// skeleton YAML mapping for a plugin, seeded from its registered
// "defaults" metadata when present, or just its bare name otherwise.
func NewCmdTemplate() *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:   "template <namespace.name>",
		Short: "Emit a skeleton YAML mapping for a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.configureLogging(); err != nil {
				return err
			}
			ns, name := splitNamespacedName(args[0])
			meta, err := registry.Default.Describe(ns + ":" + name)
			if err != nil {
				return err
			}

			body := map[string]any{}
			if defaults, ok := meta["defaults"].(map[string]any); ok {
				for k, v := range defaults {
					body[k] = v
				}
			}

			skeleton := map[string]any{
				name: body,
			}
			out, err := yaml.Marshal(skeleton)
			if err != nil {
				return err
			}
			printf(cmd, "%s", out)
			return nil
		},
	}
	addCommonFlags(cmd.Flags(), &common)
	return cmd
}
