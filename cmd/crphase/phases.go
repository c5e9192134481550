package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/randalmurphal/crphase/pkg/crphase"
	"github.com/spf13/cobra"
)

func newPhasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phases [NAME]",
		Short: "List phase names, or show which phase NAME selects",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				k := crphase.ParseKind(args[0])
				fmt.Fprintln(out, k)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PHASE\tALIASES")
			for _, k := range crphase.Kinds() {
				aliases := strings.Join(k.Aliases(), ",")
				if aliases == "" {
					aliases = "-"
				}
				fmt.Fprintf(w, "%s\t%s\n", k, aliases)
			}
			return w.Flush()
		},
	}
}
