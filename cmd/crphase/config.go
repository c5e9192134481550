package main

import (
	"fmt"

	"github.com/randalmurphal/crphase/pkg/crphase"
	"github.com/randalmurphal/crphase/pkg/crphase/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with crphase settings",
	}
	cmd.AddCommand(newConfigCheckCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	var file string
	// flagged only supplies help text and defaults; changed flags are
	// replayed onto the loaded settings.
	flagged := config.Defaults()

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load settings from file, environment, and flags, and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(file)
			if err != nil {
				return err
			}

			overrides := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
			config.BindFlags(overrides, &s)
			var setErr error
			cmd.Flags().Visit(func(f *pflag.Flag) {
				if f.Name == "file" || setErr != nil {
					return
				}
				setErr = overrides.Set(f.Name, f.Value.String())
			})
			if setErr != nil {
				return setErr
			}
			if err := config.Validate(s); err != nil {
				return err
			}

			data, err := yaml.Marshal(settingsMap(s))
			if err != nil {
				return fmt.Errorf("encode settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON settings file")
	config.BindFlags(cmd.Flags(), &flagged)
	return cmd
}

// settingsMap renders s with its config keys plus the resolved phase kind.
func settingsMap(s config.Settings) map[string]any {
	return map[string]any{
		"phase":        s.Phase,
		"phase_kind":   crphase.ParseKind(s.Phase).String(),
		"debug":        s.Debug,
		"log_level":    s.LogLevel,
		"log_format":   s.LogFormat,
		"journal_path": s.JournalPath,
		"metrics":      s.Metrics,
		"tracing":      s.Tracing,
	}
}
