package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-stoat/adapters"
	"github.com/AshkanYarmoradi/go-stoat/adapters/postgres"
)

// NewStreamCommand creates the stream command
func NewStreamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Inspect event streams",
		Long: `Inspect event streams in the event log.

Examples:
  stoat stream info Account-abc123     # Show stream version and event count
  stoat stream events Account-abc123   # List the events in a stream
  stoat stream events Account-abc123 --from 50`,
	}

	cmd.AddCommand(newStreamInfoCommand())
	cmd.AddCommand(newStreamEventsCommand())

	return cmd
}

func newStreamInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info STREAM_ID",
		Short: "Show stream metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			streamID := args[0]

			adapter, err := openAdapter(cmd)
			if err != nil {
				return err
			}
			defer adapter.Close()

			ctx, cancel := commandContext(cmd, 10*time.Second)
			defer cancel()

			info, err := adapter.GetStreamInfo(ctx, streamID)
			if err != nil {
				var notFound *adapters.StreamNotFoundError
				if errors.As(err, &notFound) {
					return fmt.Errorf("stream %q does not exist", streamID)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stream:   %s\n", info.StreamID)
			fmt.Fprintf(out, "Category: %s\n", info.Category)
			fmt.Fprintf(out, "Version:  %d\n", info.Version)
			fmt.Fprintf(out, "Events:   %d\n", info.EventCount)
			return nil
		},
	}
}

func newStreamEventsCommand() *cobra.Command {
	var fromVersion int64
	var showData bool

	cmd := &cobra.Command{
		Use:   "events STREAM_ID",
		Short: "List events in a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			streamID := args[0]

			adapter, err := openAdapter(cmd)
			if err != nil {
				return err
			}
			defer adapter.Close()

			ctx, cancel := commandContext(cmd, 30*time.Second)
			defer cancel()

			events, err := adapter.Load(ctx, streamID, fromVersion)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No events in stream %q from version %d\n", streamID, fromVersion)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tPOSITION\tTYPE\tTIMESTAMP")
			for _, e := range events {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n",
					e.Version, e.GlobalPosition, e.Type, e.Timestamp.Format(time.RFC3339))
				if showData {
					fmt.Fprintf(w, "\t\t%s\t\n", string(e.Data))
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&fromVersion, "from", 0, "Only show events after this version")
	cmd.Flags().BoolVar(&showData, "data", false, "Include event payloads in the output")

	return cmd
}

func openAdapter(cmd *cobra.Command) (*postgres.PostgresAdapter, error) {
	dsn, err := databaseURL(cmd)
	if err != nil {
		return nil, err
	}
	schema, err := cmd.Flags().GetString("schema")
	if err != nil {
		return nil, err
	}
	adapter, err := postgres.NewAdapter(dsn, postgres.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return adapter, nil
}
