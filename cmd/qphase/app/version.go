package app

import (
	"github.com/spf13/cobra"

	"github.com/qphase-sched/qphase-sched/internal/buildinfo"
)

// NewCmdVersion prints the scheduler version, grounded on the teacher's
// own `version` subcommand (minus the Kubernetes API-version probe, which
// has no analogue here).
func NewCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the qphase version",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			printf(cmd, "qphase version: %s\n", buildinfo.Version)
			if buildinfo.GitSHA != "" {
				printf(cmd, "git sha: %s\n", buildinfo.GitSHA)
			}
			return nil
		},
	}
}
