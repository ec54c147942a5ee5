package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/qphase-sched/qphase-sched/internal/configpipe"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

const exampleJob = `name: example
engine:
  sde: {}
params:
  duration: 10.0
`

// NewCmdInit builds `init [--force]` (spec.md §6): scaffold a minimal
// workspace of ./config/jobs/ (found by the default config_dirs entry
// ./config), ./system.yaml and one example job file.
func NewCmdInit() *cobra.Command {
	var common commonFlags
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project skeleton in the current directory",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.configureLogging(); err != nil {
				return err
			}

			jobsDir := filepath.Join("config", "jobs")
			if err := os.MkdirAll(jobsDir, 0755); err != nil {
				return err
			}

			defaults, err := configpipe.EmbeddedDefaults()
			if err != nil {
				return err
			}
			if err := writeSkeletonFile("system.yaml", defaults, force); err != nil {
				return err
			}
			if err := writeSkeletonBytes(filepath.Join(jobsDir, "example.yaml"), []byte(exampleJob), force); err != nil {
				return err
			}

			printf(cmd, "initialized workspace: system.yaml, %s\n", filepath.Join(jobsDir, "example.yaml"))
			return nil
		},
	}
	addCommonFlags(cmd.Flags(), &common)
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

func writeSkeletonFile(path string, n *schema.Node, force bool) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	return writeSkeletonBytes(path, data, force)
}

func writeSkeletonBytes(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; pass --force to overwrite", path)
		}
	}
	return os.WriteFile(path, data, 0644)
}
