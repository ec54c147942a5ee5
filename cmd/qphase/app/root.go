package app

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the qphase CLI (spec.md §6's "External
// Interfaces" table), the entrypoint's counterpart to the teacher's
// NewSonobuoyCommand.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "qphase",
		Short: "Expand, validate and run declarative simulation job sweeps",
		Long:  "qphase is a declarative, YAML-configured runtime that expands parameter sweeps, resolves job dependencies, and executes jobs against a pluggable engine registry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(NewCmdRun())
	root.AddCommand(NewCmdList())
	root.AddCommand(NewCmdShow())
	root.AddCommand(NewCmdTemplate())
	root.AddCommand(NewCmdConfig())
	root.AddCommand(NewCmdInit())
	root.AddCommand(NewCmdVersion())

	return root
}
