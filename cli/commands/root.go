// Package commands provides the CLI command implementations for stoat.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// NewRootCommand creates the root command for the stoat CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stoat",
		Short: "Aggregate runtime toolkit for Go",
		Long: `Stoat runs event-sourced aggregates: commands in, events out,
with snapshots, replay recovery, and per-aggregate workers.

Quick Start:

  stoat migrate             Create the event log schema
  stoat stream info <id>    Inspect an event stream
  stoat diagnose            Check your setup

Documentation:

  https://github.com/AshkanYarmoradi/go-stoat`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("dsn", "",
		"PostgreSQL connection string (defaults to $STOAT_DATABASE_URL)")
	rootCmd.PersistentFlags().String("schema", "stoat", "Database schema name")

	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewStreamCommand())
	rootCmd.AddCommand(NewDiagnoseCommand())
	rootCmd.AddCommand(NewVersionCommand(Version, Commit, BuildDate))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	return nil
}

// databaseURL resolves the connection string from the --dsn flag or the
// STOAT_DATABASE_URL environment variable.
func databaseURL(cmd *cobra.Command) (string, error) {
	dsn, err := cmd.Root().PersistentFlags().GetString("dsn")
	if err != nil {
		return "", err
	}
	if dsn == "" {
		dsn = os.Getenv("STOAT_DATABASE_URL")
	}
	if dsn == "" {
		return "", fmt.Errorf("no connection string: pass --dsn or set STOAT_DATABASE_URL")
	}
	return dsn, nil
}

// commandContext derives a bounded context from the command's context.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}
