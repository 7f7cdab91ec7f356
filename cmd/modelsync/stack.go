package main

import (
	"context"
	"errors"
	"time"

	"modelsync/internal/apiclient"
	"modelsync/internal/httpapi"
	"modelsync/internal/manager"
	"modelsync/internal/pubsub"
	"modelsync/internal/session"
	"modelsync/internal/tracing"
)

var _ httpapi.Service = (*manager.Manager)(nil)

// stack is the wired client: backend API, push session and the manager
// owning the registry, with events fanned out through broker.
type stack struct {
	tp     *tracing.Provider
	api    *apiclient.Client
	sess   *session.Manager
	mgr    *manager.Manager
	broker *pubsub.Broker[manager.Event]
}

func (a *app) buildAPI(tp *tracing.Provider) (*apiclient.Client, error) {
	return apiclient.New(apiclient.Config{
		BaseURL:        a.cfg.ServerURL,
		RequestTimeout: a.cfg.RequestTimeout(),
		Tracer:         tp.Tracer(),
		Logger:         a.log,
	})
}

func (a *app) buildStack() (*stack, error) {
	tp, err := tracing.NewProvider(a.cfg.Tracing)
	if err != nil {
		return nil, err
	}
	api, err := a.buildAPI(tp)
	if err != nil {
		return nil, err
	}
	pushURL, err := a.cfg.PushURL()
	if err != nil {
		return nil, err
	}
	sess := session.New(session.Config{
		ReconnectInterval: a.cfg.ReconnectInterval(),
		PingInterval:      a.cfg.PingInterval(),
		ReadTimeout:       a.cfg.ReadTimeout(),
		Logger:            a.log,
	})
	broker := pubsub.NewBroker[manager.Event]()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Session:      sess,
		Backend:      api,
		PushURL:      pushURL,
		DefaultModel: a.cfg.DefaultModel,
		ResultsTTL:   a.cfg.ResultsTTL(),
		Publisher:    manager.NewBrokerPublisher(broker),
		Tracer:       tp.Tracer(),
		Logger:       a.log,
	})
	return &stack{tp: tp, api: api, sess: sess, mgr: mgr, broker: broker}, nil
}

// start runs the manager loop and waits for the first snapshot. The returned
// channel yields Run's result once ctx ends.
func (s *stack) start(ctx context.Context) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() { errc <- s.mgr.Run(ctx) }()
	select {
	case <-s.mgr.Started():
	case err := <-errc:
		return errc, err
	}
	if err := s.mgr.Refresh(ctx); err != nil {
		if manager.IsNotRunning(err) {
			return errc, <-errc
		}
		return errc, err
	}
	return errc, nil
}

// shutdown releases the broker and flushes spans.
func (s *stack) shutdown() error {
	s.broker.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tp.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
