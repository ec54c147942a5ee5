package app

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/qphase-sched/qphase-sched/internal/registry"
)

// NewCmdList builds the top-level `list [namespace]` command (spec.md
// §6): enumerate the whole registry, or one namespace within it.
func NewCmdList() *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:   "list [namespace]",
		Short: "Enumerate registry contents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.configureLogging(); err != nil {
				return err
			}
			namespace := ""
			if len(args) == 1 {
				namespace = args[0]
			}
			byNS := registry.Default.List(namespace)
			namespaces := make([]string, 0, len(byNS))
			for ns := range byNS {
				namespaces = append(namespaces, ns)
			}
			sort.Strings(namespaces)
			for _, ns := range namespaces {
				for _, name := range byNS[ns] {
					printf(cmd, "%s.%s\n", ns, name)
				}
			}
			return nil
		},
	}
	addCommonFlags(cmd.Flags(), &common)
	return cmd
}
