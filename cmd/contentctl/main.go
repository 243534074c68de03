package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/content-flow/pkg/contentflow/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "contentctl",
		Short: "Content flow administration tool",
		Long: `Administration tool for the content flow service.

Reads the same environment variables as the server (DATABASE_URL, DB_SCHEMA,
JWT_SECRET, REPORT_S3_BUCKET, ...).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewReportCommand())
	rootCmd.AddCommand(NewTokenCommand())

	return rootCmd
}

// loadConfig reads the environment configuration. Verbose raises the log level.
func loadConfig(cmd *cobra.Command) (*config.ServerConfig, error) {
	opts := []config.Option{config.WithEnv()}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts = append(opts, config.WithLogging("debug", "text"))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
