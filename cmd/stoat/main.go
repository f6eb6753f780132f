// stoat is the command-line interface for the go-stoat aggregate runtime.
//
// Usage:
//
//	stoat <command> [flags]
//
// Commands:
//
//	migrate     Create or update the event log schema
//	stream      Inspect event streams
//	diagnose    Run diagnostic checks on your setup
//	version     Show version information
//
// Examples:
//
//	# Create the event log schema
//	stoat migrate --dsn postgres://localhost/app
//
//	# Inspect a stream
//	stoat stream info Account-abc123
//	stoat stream events Account-abc123 --data
//
//	# Run diagnostics
//	stoat diagnose
package main

import (
	"os"

	"github.com/AshkanYarmoradi/go-stoat/cli/commands"

	// Register PostgreSQL driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Build information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Set version info
	commands.Version = version
	commands.Commit = commit
	commands.BuildDate = buildDate

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
