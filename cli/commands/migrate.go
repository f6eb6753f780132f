package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-stoat/adapters/postgres"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the event log schema",
		Long: `Create the PostgreSQL schema, tables, and indexes used by the
event log. Safe to run repeatedly: existing objects are left alone.

Examples:
  stoat migrate --dsn postgres://localhost/app
  STOAT_DATABASE_URL=postgres://localhost/app stoat migrate --schema billing`,
		RunE: runMigrate,
	}

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dsn, err := databaseURL(cmd)
	if err != nil {
		return err
	}
	schema, err := cmd.Flags().GetString("schema")
	if err != nil {
		return err
	}

	adapter, err := postgres.NewAdapter(dsn, postgres.WithSchema(schema))
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer adapter.Close()

	ctx, cancel := commandContext(cmd, 30*time.Second)
	defer cancel()

	if err := adapter.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Creating schema %q...\n", schema)

	if err := adapter.Initialize(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Event log schema is up to date")
	return nil
}
