package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-stamp/internal/config"
)

type statusOutput struct {
	Version     string   `json:"version,omitempty"`
	HasVersion  bool     `json:"has_version"`
	LastCleanup string   `json:"last_cleanup,omitempty"`
	Present     []string `json:"present"`
	Unknown     []string `json:"unknown,omitempty"`
	Driver      string   `json:"driver"`
	Path        string   `json:"path,omitempty"`
	Sources     []string `json:"config_sources"`
}

func newStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored version tag and which feature keys hold data",
		Example: "  stamp status\n" +
			"  stamp --store-driver sqlite --store-path state.db --json status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("status does not accept positional arguments")
			}
			rt, err := deps.loadRuntime(cmd, config.CheckConfig{})
			if err != nil {
				return mapCommandError(err)
			}
			defer rt.Close()

			manager, err := rt.manager()
			if err != nil {
				return mapCommandError(err)
			}
			status, err := manager.Status(cmd.Context())
			if err != nil {
				return mapCommandError(err)
			}

			out := statusOutput{
				Version:    status.Version,
				HasVersion: status.HasVersion,
				Present:    append([]string{}, status.Present...),
				Unknown:    status.Unknown,
				Driver:     rt.cfg.Driver(),
				Path:       rt.cfg.StorePath(),
			}
			if !status.LastCleanup.IsZero() {
				out.LastCleanup = status.LastCleanup.UTC().Format(time.RFC3339)
			}
			for _, source := range rt.report.Sources {
				out.Sources = append(out.Sources, source.String())
			}

			if deps.globals.JSON {
				return mapCommandError(printJSON(deps.out, out))
			}
			_, err = fmt.Fprintf(deps.out,
				"version=%s cleanup=%s driver=%s present=%s unknown=%s\n",
				valueOr(out.Version, "-"),
				valueOr(out.LastCleanup, "-"),
				out.Driver,
				valueOr(strings.Join(out.Present, ","), "-"),
				valueOr(strings.Join(out.Unknown, ","), "-"),
			)
			return mapCommandError(err)
		},
	}
}
