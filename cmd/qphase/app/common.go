package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/qphase-sched/qphase-sched/internal/configpipe"
	"github.com/qphase-sched/qphase-sched/internal/qlog"
	"github.com/qphase-sched/qphase-sched/internal/registry"
	"github.com/qphase-sched/qphase-sched/internal/schema"
)

// commonFlags holds the execution flags shared across subcommands
// (spec.md §6: "Flags common to execution: --verbose, --log-file,
// --log-json, --suppress-warnings").
type commonFlags struct {
	verbose          bool
	logFile          string
	logJSON          bool
	suppressWarnings bool
}

func addCommonFlags(fs *pflag.FlagSet, f *commonFlags) {
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug-level logging, including cause chains")
	fs.StringVar(&f.logFile, "log-file", "", "append structured logs to this file in addition to stderr")
	fs.BoolVar(&f.logJSON, "log-json", false, "emit logs as JSON rather than text")
	fs.BoolVar(&f.suppressWarnings, "suppress-warnings", false, "raise the log level to error, hiding warnings")
}

func (f *commonFlags) configureLogging() error {
	return qlog.Configure(qlog.Options{
		Verbose:          f.verbose,
		JSON:             f.logJSON,
		SuppressWarnings: f.suppressWarnings,
		LogFile:          f.logFile,
	})
}

// loadSystem runs the layered configuration pipeline and returns both the
// decoded SystemConfig and the raw merged tree, the latter kept around so
// `config show` can print it verbatim.
func loadSystem() (*schema.SystemConfig, *schema.Node, error) {
	return configpipe.LoadSystemConfig(configpipe.NewEnv())
}

// globalConfig loads SystemConfig.Paths.GlobalFile if set, returning nil
// (not an error) when no global file is configured.
func globalConfig(sc *schema.SystemConfig) (*schema.Node, error) {
	if sc.Paths.GlobalFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(sc.Paths.GlobalFile); err != nil {
		return nil, nil
	}
	return configpipe.ParseConfigFile(sc.Paths.GlobalFile)
}

// splitNamespacedName splits "namespace.name" into its parts for the
// `show`/`template` commands, defaulting to the "default" namespace when
// no dot is present.
func splitNamespacedName(arg string) (namespace, name string) {
	for i := len(arg) - 1; i >= 0; i-- {
		if arg[i] == '.' {
			return arg[:i], arg[i+1:]
		}
	}
	return registry.NSDefault, arg
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
