// Package main is the entry point for the joingate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/flemzord/joingate/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "joingate",
		Short:         "Telegram bot that gates access behind channel membership",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), serveCmd(), configCmd(), initCmd(), webhookCmd(), serviceCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "joingate %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func runParams(cfgPath string) app.RunParams {
	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook endpoint until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return app.RunContext(cmd.Context(), runParams(cfgPath))
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and print it with secrets redacted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			cfg, source, err := app.LoadConfig(path)
			if err != nil {
				return err
			}
			redacted, err := app.RedactedConfig(cfg)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(redacted)
			if err != nil {
				return fmt.Errorf("rendering config: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Configuration OK (source: %s)\n\n", source)
			_, err = w.Write(out)
			return err
		},
	})
	return cmd
}
