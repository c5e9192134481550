// Command crphase validates crphase configuration and inspects checkpoint
// attempt journals.
//
// Usage:
//
//	crphase phases [NAME]
//	crphase config check [--file crphase.yaml] [--phase ...]
//	crphase journal list --db journal.db
//	crphase journal show --db journal.db ATTEMPT_ID
//	crphase journal delete --db journal.db ATTEMPT_ID
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crphase",
		Short:         "Inspect checkpoint phases, configuration, and attempt journals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPhasesCmd(),
		newConfigCmd(),
		newJournalCmd(),
	)
	return root
}
