package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qphase-sched/qphase-sched/internal/configpipe"
	"github.com/qphase-sched/qphase-sched/internal/expand"
	"github.com/qphase-sched/qphase-sched/internal/progress"
	"github.com/qphase-sched/qphase-sched/internal/registry"
	"github.com/qphase-sched/qphase-sched/internal/scheduler"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

type runJobsFlags struct {
	common   commonFlags
	list     bool
	dryRun   bool
	failFast bool
	session  string
}

// NewCmdRun builds the `run` command group: `run jobs <name>` and
// `run list` (spec.md §6's first three CLI rows).
func NewCmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute job files or enumerate registered engines",
	}
	cmd.AddCommand(newCmdRunJobs())
	cmd.AddCommand(newCmdRunList())
	return cmd
}

func newCmdRunJobs() *cobra.Command {
	var f runJobsFlags
	cmd := &cobra.Command{
		Use:   "jobs [name]",
		Short: "Locate, expand, validate and execute a job file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.common.configureLogging(); err != nil {
				return err
			}
			sc, _, err := loadSystem()
			if err != nil {
				return err
			}

			if f.list {
				names, err := configpipe.ListJobNames(sc.Paths.ConfigDirs)
				if err != nil {
					return err
				}
				for _, n := range names {
					printf(cmd, "%s\n", n)
				}
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("run jobs requires exactly one job name unless --list is given")
			}

			return runJobFile(cmd, sc, args[0], f)
		},
	}
	addCommonFlags(cmd.Flags(), &f.common)
	cmd.Flags().BoolVar(&f.list, "list", false, "enumerate discoverable job names instead of running one")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "validate and snapshot every job without invoking engines")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "abort the session on the first job failure")
	cmd.Flags().StringVar(&f.session, "session", "", "session root directory enabling resume; defaults to a fresh, non-resumable run")
	return cmd
}

func runJobFile(cmd *cobra.Command, sc *schema.SystemConfig, name string, f runJobsFlags) error {
	path, err := configpipe.FindJobFile(sc.Paths.ConfigDirs, name)
	if err != nil {
		return err
	}
	node, err := configpipe.ParseConfigFile(path)
	if err != nil {
		return err
	}
	jl, err := schema.DecodeJobList(node)
	if err != nil {
		return err
	}
	jl, err = expand.JobList(jl, sc)
	if err != nil {
		return err
	}

	gc, err := globalConfig(sc)
	if err != nil {
		return err
	}

	renderer := progress.NewTerminalRenderer(os.Stdout)
	sched := scheduler.New(scheduler.Options{
		Registry:     registry.Default,
		System:       sc,
		GlobalConfig: gc,
		ProgressSink: renderer.Sink(),
		FailFast:     f.failFast,
		DryRun:       f.dryRun,
		SessionRoot:  f.session,
	})

	results, runErr := sched.Run(context.Background(), jl)
	failures := 0
	for _, r := range results {
		status := "OK"
		if !r.Success {
			status = "FAILED: " + r.Error
			failures++
		}
		printf(cmd, "[%d/%d] %-24s %s\n", r.JobIndex+1, len(results), r.JobName, status)
	}
	if failures > 0 || runErr != nil {
		return fmt.Errorf("%d of %d jobs failed", failures, len(results))
	}
	return nil
}

func newCmdRunList() *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Enumerate registered engines",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.configureLogging(); err != nil {
				return err
			}
			names := registry.Default.List(registry.NSEngine)[registry.NSEngine]
			for _, n := range names {
				printf(cmd, "%s\n", n)
			}
			return nil
		},
	}
	addCommonFlags(cmd.Flags(), &common)
	return cmd
}
