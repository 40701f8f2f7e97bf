package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	stamp "github.com/goliatone/go-stamp"
)

type compareOutput struct {
	Stored  string        `json:"stored"`
	Current string        `json:"current"`
	Compare int           `json:"compare"`
	Outcome stamp.Outcome `json:"outcome"`
}

func newCompareCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <stored> <current>",
		Short: "Classify a version transition without touching storage",
		Example: "  stamp compare 2.9.0 2.10.0\n" +
			"  stamp --json compare 1.5.0 2.0.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageErrorf("compare requires <stored> and <current>")
			}
			out := compareOutput{
				Stored:  args[0],
				Current: args[1],
				Compare: stamp.Compare(args[0], args[1]),
				Outcome: stamp.Classify(args[0], true, args[1]),
			}
			if deps.globals.JSON {
				return mapCommandError(printJSON(deps.out, out))
			}
			_, err := fmt.Fprintf(deps.out, "compare=%d outcome=%s\n", out.Compare, out.Outcome)
			return mapCommandError(err)
		},
	}
}
