package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/randalmurphal/crphase/pkg/crphase/config"
	"github.com/randalmurphal/crphase/pkg/crphase/journal"
	"github.com/spf13/cobra"
)

const timeFormat = "2006-01-02 15:04:05.000"

func newJournalCmd() *cobra.Command {
	var db string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the checkpoint attempt journal",
	}
	cmd.PersistentFlags().StringVar(&db, "db", os.Getenv(config.EnvPrefix+"JOURNAL_PATH"), "SQLite journal path")
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	open := func() (journal.Store, error) {
		if db == "" {
			return nil, errors.New("no journal: pass --db or set CRPHASE_JOURNAL_PATH")
		}
		if _, err := os.Stat(db); err != nil {
			return nil, fmt.Errorf("journal %s: %w", db, err)
		}
		return journal.NewSQLiteStore(db)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Summarize every attempt, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()

				attempts, err := store.Attempts()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), attempts)
				}
				return writeAttempts(cmd.OutOrStdout(), attempts)
			},
		},
		&cobra.Command{
			Use:   "show ATTEMPT_ID",
			Short: "Print every entry of one attempt (--json: one object per line)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()

				entries, err := store.List(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSONLines(cmd.OutOrStdout(), entries)
				}
				return writeEntries(cmd.OutOrStdout(), entries)
			},
		},
		&cobra.Command{
			Use:   "delete ATTEMPT_ID",
			Short: "Remove one attempt from the journal",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()

				if _, err := store.List(args[0]); err != nil {
					return err
				}
				if err := store.DeleteAttempt(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONLines(w io.Writer, entries []journal.Entry) error {
	for i := range entries {
		data, err := entries[i].Marshal()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return err
		}
	}
	return nil
}

func writeAttempts(w io.Writer, attempts []journal.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTEMPT\tPHASE\tSTAGE\tENTRIES\tSTARTED\tDURATION")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			a.AttemptID, a.Phase, a.Stage, a.Entries,
			a.StartedAt.Local().Format(timeFormat),
			a.UpdatedAt.Sub(a.StartedAt).Round(time.Millisecond),
		)
	}
	return tw.Flush()
}

func writeEntries(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tSTAGE\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			e.Sequence, e.Timestamp.Local().Format(timeFormat), e.Stage, e.Detail)
	}
	return tw.Flush()
}
