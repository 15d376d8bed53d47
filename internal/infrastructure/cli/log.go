package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	logFile      string
	logAggregate string
	logType      string
	logSince     time.Duration
	logJSON      bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show broadcast deltas recorded in the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := logFile
		if path == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.EventLog
		}
		if path == "" {
			return NewCLIError("no event log configured", "Set event_log in the config file or pass --file", nil)
		}

		deltas, err := loadDeltas(storage.NewFileEventStore(path))
		if err != nil {
			return fmt.Errorf("failed to read event log: %w", err)
		}
		return printDeltas(cmd.OutOrStdout(), deltas, logJSON)
	},
}

func init() {
	logCmd.Flags().StringVar(&logFile, "file", "", "Event log path (defaults to event_log from the config)")
	logCmd.Flags().StringVar(&logAggregate, "aggregate", "", "Only deltas for this draft or plan id")
	logCmd.Flags().StringVar(&logType, "type", "", "Only deltas of this type, e.g. draft_delta")
	logCmd.Flags().DurationVar(&logSince, "since", 0, "Only deltas newer than this, e.g. 30m")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "Print one JSON object per line")
	RootCmd.AddCommand(logCmd)
}

func loadDeltas(store *storage.FileEventStore) ([]events.Delta, error) {
	var (
		deltas []events.Delta
		err    error
	)
	switch {
	case logAggregate != "":
		deltas, err = store.LoadByAggregate(logAggregate)
	case logType != "":
		deltas, err = store.LoadByType(logType)
	case logSince > 0:
		deltas, err = store.LoadSince(time.Now().Add(-logSince))
	default:
		deltas, err = store.LoadAll()
	}
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if logSince > 0 {
		cutoff = time.Now().Add(-logSince)
	}
	kept := deltas[:0]
	for _, d := range deltas {
		if logType != "" && d.Type != logType {
			continue
		}
		if !cutoff.IsZero() && d.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}

func printDeltas(w io.Writer, deltas []events.Delta, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, d := range deltas {
			if err := enc.Encode(d); err != nil {
				return err
			}
		}
		return nil
	}
	if len(deltas) == 0 {
		_, err := fmt.Fprintln(w, "No events recorded.")
		return err
	}
	for _, d := range deltas {
		actor := d.Actor
		if actor == "" {
			actor = "-"
		}
		if _, err := fmt.Fprintf(w, "%s  %-22s %-28s v%-4d %-18s %s\n",
			d.Timestamp.Format(time.RFC3339), d.Type, d.Topic, d.Version, d.Op, actor); err != nil {
			return err
		}
	}
	return nil
}
