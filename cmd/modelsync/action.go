package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"modelsync/internal/apiclient"
	"modelsync/internal/manager"
	"modelsync/internal/registry"
	"modelsync/internal/tracing"
	"modelsync/pkg/types"
)

type actionFunc func(context.Context, string) (types.ActionResponse, error)

// actionTarget is the state a --wait action waits for.
var actionTarget = map[string]registry.State{
	"download": registry.StateDownloaded,
	"load":     registry.StateReady,
	"unload":   registry.StateDownloaded,
}

func apiAction(c *apiclient.Client, verb string) actionFunc {
	switch verb {
	case "download":
		return c.Download
	case "load":
		return c.Load
	}
	return c.Unload
}

func managerAction(m *manager.Manager, verb string) actionFunc {
	switch verb {
	case "download":
		return m.Download
	case "load":
		return m.Load
	}
	return m.Unload
}

func newActionCmd(a *app, verb, short string) *cobra.Command {
	var wait bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     verb + " <model-id>",
		Short:   short,
		Example: fmt.Sprintf("  modelsync %s z-image-turbo-4bit --wait", verb),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !wait {
				api, err := a.buildAPI(tracing.Noop())
				if err != nil {
					return err
				}
				ack, err := apiAction(api, verb)(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("%s %s: %s", verb, id, apiclient.DetailOf(err))
				}
				fmt.Fprintln(a.out, ack.Message)
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return a.actAndWait(ctx, verb, id)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Follow the push channel until the model reaches "+string(actionTarget[verb]))
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (0 waits until interrupted)")
	return cmd
}

// actAndWait performs verb through the manager and follows model_changed
// events until id reaches the target state or fails.
func (a *app) actAndWait(ctx context.Context, verb, id string) error {
	st, err := a.buildStack()
	if err != nil {
		return err
	}
	defer func() { _ = st.shutdown() }()

	sub := st.broker.Subscribe(ctx)
	if _, err := st.start(ctx); err != nil {
		return err
	}
	ack, err := managerAction(st.mgr, verb)(ctx, id)
	if err != nil {
		return fmt.Errorf("%s %s: %s", verb, id, apiclient.DetailOf(err))
	}
	fmt.Fprintln(a.out, ack.Message)

	target := actionTarget[verb]
	if v, ok := st.mgr.View(id); ok && v.State == string(target) {
		fmt.Fprintf(a.out, "%s: %s\n", id, v.State)
		return nil
	}
	for ev := range sub {
		e := ev.Payload
		if e.Name != manager.EventModelChanged || e.ModelID != id {
			continue
		}
		state, _ := e.Fields["state"].(string)
		if pct, ok := e.Fields["percent"].(float64); ok {
			fmt.Fprintf(a.out, "%s: %s %.1f%%\n", id, state, pct)
		}
		switch registry.State(state) {
		case target:
			fmt.Fprintf(a.out, "%s: %s\n", id, state)
			return nil
		case registry.StateError:
			return fmt.Errorf("%s: %v", id, e.Fields["error"])
		}
	}
	return ctx.Err()
}
