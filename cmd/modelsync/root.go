package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"modelsync/internal/common/fsutil"
	"modelsync/internal/config"
)

const defaultConfigDir = "~/.config/modelsync"

// app carries the resolved configuration shared by every subcommand.
type app struct {
	cfgPath string
	v       *viper.Viper
	cfg     config.Config
	log     zerolog.Logger
	out     io.Writer
	logOut  io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), logOut: os.Stderr}
	root := &cobra.Command{
		Use:           "modelsync",
		Short:         "Live model state client for an image generation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "Config file (yaml|json|toml); defaults to "+defaultConfigDir+"/config.*")
	pf.String("server-url", "", "Backend origin, e.g. http://localhost:8000 (env MODELSYNC_SERVER_URL)")
	pf.String("ws-path", "", "Push channel path on the backend (env MODELSYNC_WS_PATH)")
	pf.Int("request-timeout-ms", 0, "Backend request timeout in ms (env MODELSYNC_REQUEST_TIMEOUT_MS)")
	pf.String("log-level", "", "Log level: debug|info|warn|error (env MODELSYNC_LOG_LEVEL)")
	pf.String("log-format", "", "Log format: console|json (env MODELSYNC_LOG_FORMAT)")
	bindFlags(a.v, pf, map[string]string{
		"server_url":         "server-url",
		"ws_path":            "ws-path",
		"request_timeout_ms": "request-timeout-ms",
		"log_level":          "log-level",
		"log_format":         "log-format",
	})

	root.AddCommand(
		newRunCmd(a),
		newWatchCmd(a),
		newModelsCmd(a),
		newActionCmd(a, "download", "Start downloading a model"),
		newActionCmd(a, "load", "Load a downloaded model"),
		newActionCmd(a, "unload", "Unload a model"),
		newGenerateCmd(a),
	)
	return root
}

// bindFlags maps viper keys to flags. Only changed flags count as set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// load resolves file, environment and flag settings, in that order.
func (a *app) load() error {
	path := a.cfgPath
	if path == "" {
		found, err := fsutil.FindConfig(defaultConfigDir)
		if err != nil {
			return err
		}
		path = found
	} else if p, err := fsutil.ExpandHome(path); err != nil || !fsutil.PathExists(p) {
		return fmt.Errorf("config file not found: %s", path)
	}

	cfg := config.Defaults()
	if path != "" {
		fc, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = config.ApplyDefaults(fc)
	}
	cfg = config.Overlay(cfg, a.v)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cfg.LogLevel, cfg.LogFormat, a.logOut)
	if path != "" {
		a.log.Debug().Str("path", path).Msg("config loaded")
	}
	return nil
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
