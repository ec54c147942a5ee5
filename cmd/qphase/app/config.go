package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/qphase-sched/qphase-sched/internal/configpipe"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

type configShowFlags struct {
	common commonFlags
	system bool
	global bool
}

// NewCmdConfig builds the `config show|set|reset` group (spec.md §6).
func NewCmdConfig() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit the layered configuration",
	}
	cmd.AddCommand(newCmdConfigShow())
	cmd.AddCommand(newCmdConfigSet())
	cmd.AddCommand(newCmdConfigReset())
	return cmd
}

func newCmdConfigShow() *cobra.Command {
	var f configShowFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.common.configureLogging(); err != nil {
				return err
			}
			sc, merged, err := loadSystem()
			if err != nil {
				return err
			}

			if f.global {
				gc, err := globalConfig(sc)
				if err != nil {
					return err
				}
				if gc == nil {
					printf(cmd, "# no global_file configured\n")
					return nil
				}
				return printYAML(cmd, gc)
			}
			if f.system {
				return printYAML(cmd, sc.ToNode())
			}
			return printYAML(cmd, merged)
		},
	}
	addCommonFlags(cmd.Flags(), &f.common)
	cmd.Flags().BoolVar(&f.system, "system", false, "print only the decoded SystemConfig")
	cmd.Flags().BoolVar(&f.global, "global", false, "print only the configured global_file")
	return cmd
}

func printYAML(cmd *cobra.Command, n *schema.Node) error {
	out, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	printf(cmd, "%s", out)
	return nil
}

func newCmdConfigSet() *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a dotted-path key into the user site config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.configureLogging(); err != nil {
				return err
			}
			path := configpipe.UserSiteFile()
			if path == "" {
				return fmt.Errorf("could not determine a user config directory on this platform")
			}

			node, err := readOrEmptyMapping(path)
			if err != nil {
				return err
			}
			if err := node.Set(args[0], schema.NewScalar(parseScalar(args[1]))); err != nil {
				return err
			}
			return writeNodeFile(path, node)
		},
	}
	addCommonFlags(cmd.Flags(), &common)
	return cmd
}

func newCmdConfigReset() *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the user site config to the package defaults",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.configureLogging(); err != nil {
				return err
			}
			path := configpipe.UserSiteFile()
			if path == "" {
				return fmt.Errorf("could not determine a user config directory on this platform")
			}
			defaults, err := configpipe.EmbeddedDefaults()
			if err != nil {
				return err
			}
			return writeNodeFile(path, defaults)
		},
	}
	addCommonFlags(cmd.Flags(), &common)
	return cmd
}

func readOrEmptyMapping(path string) (*schema.Node, error) {
	if _, err := os.Stat(path); err != nil {
		return schema.NewMapping(), nil
	}
	return configpipe.ParseConfigFile(path)
}

func writeNodeFile(path string, n *schema.Node) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// parseScalar interprets a CLI value as bool/float/string, matching the
// loose scalar typing `config set` needs for spec.md's SystemConfig
// fields (booleans for auto_save_results, floats for
// progress_update_interval, strings otherwise).
func parseScalar(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
