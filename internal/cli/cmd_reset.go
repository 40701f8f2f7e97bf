package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-stamp/internal/config"
)

func newResetCommand(deps commandDeps) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every registered feature key, keeping the version tag",
		Example: "  stamp reset --yes\n" +
			"  stamp --config stamp.yaml reset --yes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("reset does not accept positional arguments")
			}
			if !yes {
				return usageErrorf("reset deletes stored data; pass --yes to confirm")
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
			removed, resetErr := manager.Reset(cmd.Context())

			if deps.globals.JSON {
				if err := printJSON(deps.out, map[string]any{"removed": removed}); err != nil {
					return mapCommandError(err)
				}
			} else if _, err := fmt.Fprintf(deps.out, "removed=%s\n", valueOr(strings.Join(removed, ","), "-")); err != nil {
				return mapCommandError(err)
			}
			return mapCommandError(resetErr)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
