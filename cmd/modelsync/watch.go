package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"modelsync/internal/manager"
	"modelsync/internal/pubsub"
)

// watchLine is one JSON line printed by watch.
type watchLine struct {
	Time    time.Time        `json:"time"`
	Type    pubsub.EventType `json:"type"`
	Name    string           `json:"name"`
	ModelID string           `json:"model_id,omitempty"`
	Fields  map[string]any   `json:"fields,omitempty"`
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print live model and connection events as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			st, err := a.buildStack()
			if err != nil {
				return err
			}
			defer func() { _ = st.shutdown() }()

			sub := st.broker.Subscribe(ctx)
			errc, err := st.start(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			for ev := range sub {
				if err := enc.Encode(toWatchLine(ev)); err != nil {
					return err
				}
			}
			return <-errc
		},
	}
}

func toWatchLine(ev pubsub.Event[manager.Event]) watchLine {
	return watchLine{
		Time:    ev.Timestamp,
		Type:    ev.Type,
		Name:    ev.Payload.Name,
		ModelID: ev.Payload.ModelID,
		Fields:  ev.Payload.Fields,
	}
}
