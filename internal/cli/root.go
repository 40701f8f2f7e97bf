package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-stamp/internal/config"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type globalOptions struct {
	ConfigPath  string
	StoreDriver string
	StorePath   string
	LogLevel    string
	LogFormat   string
	JSON        bool
	Verbose     bool
}

type commandDeps struct {
	out     io.Writer
	build   BuildInfo
	globals *globalOptions
	env     func() map[string]string
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	return newRootCommand(out, build, config.EnvMap)
}

func newRootCommand(out io.Writer, build BuildInfo, env func() map[string]string) *cobra.Command {
	globals := &globalOptions{}
	deps := commandDeps{out: out, build: build, globals: globals, env: env}

	cmd := &cobra.Command{
		Use:           "stamp",
		Short:         "Persisted-state version manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&globals.ConfigPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&globals.StoreDriver, "store-driver", "", "Storage driver: file, sqlite or memory")
	flags.StringVar(&globals.StorePath, "store-path", "", "Storage location for the file and sqlite drivers")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&globals.LogFormat, "log-format", "", "Log format: console or json")
	flags.BoolVar(&globals.JSON, "json", false, "Print results as JSON")
	flags.BoolVarP(&globals.Verbose, "verbose", "v", false, "Force debug logging regardless of configuration")

	cmd.AddCommand(newCheckCommand(deps))
	cmd.AddCommand(newStatusCommand(deps))
	cmd.AddCommand(newCompareCommand(deps))
	cmd.AddCommand(newResetCommand(deps))
	cmd.AddCommand(newVersionCommand(deps))
	return cmd
}

// flagLayer turns explicitly set persistent flags into a config layer.
func (d commandDeps) flagLayer(cmd *cobra.Command) config.Config {
	var layer config.Config
	set := func(name string, target **string, value string) {
		if cmd.Flags().Changed(name) {
			v := value
			*target = &v
		}
	}
	set("store-driver", &layer.Store.Driver, d.globals.StoreDriver)
	set("store-path", &layer.Store.Path, d.globals.StorePath)
	set("log-level", &layer.Logging.Level, d.globals.LogLevel)
	set("log-format", &layer.Logging.Format, d.globals.LogFormat)
	return layer
}

func printJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
