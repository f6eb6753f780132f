package commands

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	stoat "github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters/postgres"
)

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run diagnostic checks",
		Long: `Run diagnostic checks on your stoat setup.

This command verifies:
  - Go version
  - Configuration file validity
  - Database connectivity
  - Event log schema existence
  - System resources`,
		Aliases: []string{"diag", "doctor"},
		RunE:    runDiagnose,
	}

	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	checks := []DiagnosticCheck{
		{Name: "Go Version", Check: checkGoVersion},
		{Name: "Configuration", Check: checkConfiguration},
		{Name: "Database Connection", Check: func() CheckResult { return checkDatabaseConnection(cmd) }},
		{Name: "Event Log Schema", Check: func() CheckResult { return checkEventLogSchema(cmd) }},
		{Name: "System Resources", Check: checkSystemResources},
	}

	results := make([]CheckResult, 0, len(checks))
	allPassed := true

	fmt.Fprintln(out, "Running diagnostics...")
	fmt.Fprintln(out)

	for _, check := range checks {
		result := check.Check()
		results = append(results, result)

		switch result.Status {
		case StatusOK:
			fmt.Fprintf(out, "  [ OK ] %s\n", check.Name)
		case StatusWarning:
			fmt.Fprintf(out, "  [WARN] %s\n", check.Name)
			allPassed = false
		default:
			fmt.Fprintf(out, "  [FAIL] %s\n", check.Name)
			allPassed = false
		}

		if result.Message != "" {
			fmt.Fprintf(out, "         %s\n", result.Message)
		}
	}

	fmt.Fprintln(out)

	if allPassed {
		fmt.Fprintln(out, "All checks passed. Your stoat setup is healthy.")
		return nil
	}

	fmt.Fprintln(out, "Some checks failed or have warnings.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Recommendations:")
	for _, r := range results {
		if r.Recommendation != "" {
			fmt.Fprintf(out, "  - %s\n", r.Recommendation)
		}
	}

	return nil
}

// CheckStatus represents the status of a diagnostic check
type CheckStatus int

const (
	StatusOK CheckStatus = iota
	StatusWarning
	StatusError
)

// CheckResult represents the result of a diagnostic check
type CheckResult struct {
	Name           string
	Status         CheckStatus
	Message        string
	Recommendation string
}

// newCheckResult creates a CheckResult with the given name.
func newCheckResult(name string, status CheckStatus, message string) CheckResult {
	return CheckResult{Name: name, Status: status, Message: message}
}

// withRecommendation adds a recommendation to a CheckResult.
func (r CheckResult) withRecommendation(rec string) CheckResult {
	r.Recommendation = rec
	return r
}

// DiagnosticCheck represents a diagnostic check function
type DiagnosticCheck struct {
	Name  string
	Check func() CheckResult
}

func checkGoVersion() CheckResult {
	version := runtime.Version()
	if version < "go1.22" {
		return newCheckResult("Go Version", StatusWarning, version).
			withRecommendation("Upgrade to Go 1.22 or later")
	}
	return newCheckResult("Go Version", StatusOK, version)
}

func checkConfiguration() CheckResult {
	const name = "Configuration"
	const path = "stoat.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return newCheckResult(name, StatusOK, "No stoat.yaml found, defaults apply")
	}
	cfg, err := stoat.LoadConfig(path)
	if err != nil {
		return newCheckResult(name, StatusError, fmt.Sprintf("Invalid config: %v", err)).
			withRecommendation("Check stoat.yaml syntax and values")
	}
	return newCheckResult(name, StatusOK,
		fmt.Sprintf("Snapshot threshold: %d, mailbox size: %d", cfg.SnapshotThreshold, cfg.MailboxSize))
}

func checkDatabaseConnection(cmd *cobra.Command) CheckResult {
	const name = "Database Connection"

	dsn, err := databaseURL(cmd)
	if err != nil {
		return newCheckResult(name, StatusWarning, "No database URL configured").
			withRecommendation("Pass --dsn or set STOAT_DATABASE_URL to check connectivity")
	}

	ctx, cancel := commandContext(cmd, 5*time.Second)
	defer cancel()

	adapter, err := postgres.NewAdapter(dsn)
	if err != nil {
		return newCheckResult(name, StatusError, err.Error()).
			withRecommendation("Verify the connection string")
	}
	defer adapter.Close()

	if err := adapter.Ping(ctx); err != nil {
		return newCheckResult(name, StatusError, err.Error()).
			withRecommendation("Verify database credentials and server status")
	}
	return newCheckResult(name, StatusOK, "Connected")
}

func checkEventLogSchema(cmd *cobra.Command) CheckResult {
	const name = "Event Log Schema"

	dsn, err := databaseURL(cmd)
	if err != nil {
		return newCheckResult(name, StatusWarning, "Skipped (no database URL)")
	}
	schema, err := cmd.Flags().GetString("schema")
	if err != nil {
		return newCheckResult(name, StatusError, err.Error())
	}

	ctx, cancel := commandContext(cmd, 5*time.Second)
	defer cancel()

	adapter, err := postgres.NewAdapter(dsn, postgres.WithSchema(schema))
	if err != nil {
		return newCheckResult(name, StatusError, err.Error())
	}
	defer adapter.Close()

	var count int
	err = adapter.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_schema = $1 AND table_name IN ('streams', 'events', 'snapshots')`,
		schema).Scan(&count)
	if err != nil {
		return newCheckResult(name, StatusError, err.Error()).
			withRecommendation("Check database permissions")
	}
	if count < 3 {
		return newCheckResult(name, StatusWarning,
			fmt.Sprintf("%d of 3 tables exist in schema %q", count, schema)).
			withRecommendation("Run 'stoat migrate' to create the event log schema")
	}
	return newCheckResult(name, StatusOK, fmt.Sprintf("Schema %q is complete", schema))
}

func checkSystemResources() CheckResult {
	const name = "System Resources"
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	allocMB := float64(m.Alloc) / 1024 / 1024
	sysMB := float64(m.Sys) / 1024 / 1024
	message := fmt.Sprintf("Memory: %.1f MB used, %.1f MB total", allocMB, sysMB)

	if allocMB > 500 {
		return newCheckResult(name, StatusWarning, message).
			withRecommendation("Consider optimizing memory usage")
	}
	return newCheckResult(name, StatusOK, message)
}
