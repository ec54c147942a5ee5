package app

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/qphase-sched/qphase-sched/internal/registry"
)

// NewCmdShow builds `show <namespace.name>` (spec.md §6): print a
// registered plugin's introspection metadata, including its parameter
// schema defaults when the registration supplied one via
// registry.WithMeta(map[string]any{"defaults": ...}).
func NewCmdShow() *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:   "show <namespace.name>",
		Short: "Print a registered plugin's schema defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.configureLogging(); err != nil {
				return err
			}
			meta, err := registry.Default.Describe(namespacedFullName(args[0]))
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				printf(cmd, "%s: %v\n", k, meta[k])
			}
			return nil
		},
	}
	addCommonFlags(cmd.Flags(), &common)
	return cmd
}

// namespacedFullName normalizes a "namespace.name" CLI argument into the
// registry's "namespace:name" lookup form.
func namespacedFullName(arg string) string {
	ns, name := splitNamespacedName(arg)
	return ns + ":" + name
}
