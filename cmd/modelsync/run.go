package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"modelsync/internal/httpapi"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep the model registry in sync and serve the local API",
		Example: "  modelsync run --server-url http://gpu-box:8000 --listen 127.0.0.1:8089\n" +
			"  MODELSYNC_TRACING_ENABLED=true modelsync run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	f := cmd.Flags()
	f.String("listen", "", "Local API listen address (env MODELSYNC_LISTEN_ADDR)")
	f.String("default-model", "", "Model selected at startup (env MODELSYNC_DEFAULT_MODEL)")
	f.String("cors-origins", "", "Comma-separated allowed CORS origins; enables CORS (env MODELSYNC_CORS_ORIGINS)")
	f.Int("reconnect-interval-ms", 0, "Delay before reconnecting the push channel (env MODELSYNC_RECONNECT_INTERVAL_MS)")
	f.Int("ping-interval-ms", 0, "Application ping interval, negative disables (env MODELSYNC_PING_INTERVAL_MS)")
	f.Bool("tracing", false, "Enable OpenTelemetry tracing (env MODELSYNC_TRACING_ENABLED)")
	f.String("tracing-exporter", "", "Trace exporter: stdout|otlp|none (env MODELSYNC_TRACING_EXPORTER)")
	bindFlags(a.v, f, map[string]string{
		"listen_addr":           "listen",
		"default_model":         "default-model",
		"cors_origins":          "cors-origins",
		"reconnect_interval_ms": "reconnect-interval-ms",
		"ping_interval_ms":      "ping-interval-ms",
		"tracing.enabled":       "tracing",
		"tracing.exporter":      "tracing-exporter",
	})
	return cmd
}

// serve runs the sync loop and the local API until ctx ends.
func (a *app) serve(ctx context.Context) error {
	st, err := a.buildStack()
	if err != nil {
		return err
	}
	defer func() {
		if err := st.shutdown(); err != nil {
			a.log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	httpapi.SetLogger(a.log)
	httpapi.SetBaseContext(ctx)
	if len(a.cfg.CORSOrigins) > 0 {
		httpapi.SetCORSOptions(true, a.cfg.CORSOrigins, nil, nil)
	}
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           httpapi.NewMux(st.mgr, st.broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() { errc <- st.mgr.Run(ctx) }()
	go func() {
		a.log.Info().Str("addr", a.cfg.ListenAddr).Str("server_url", a.cfg.ServerURL).Msg("modelsync listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return runErr
}
