package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"modelsync/internal/common/fsutil"
	"modelsync/internal/tracing"
)

// Config holds runtime parameters for the client.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	// ServerURL is the backend origin, e.g. http://localhost:8000.
	ServerURL string `json:"server_url" yaml:"server_url" toml:"server_url"`
	// WSPath is the push-channel path on ServerURL.
	WSPath              string `json:"ws_path" yaml:"ws_path" toml:"ws_path"`
	ReconnectIntervalMS int    `json:"reconnect_interval_ms" yaml:"reconnect_interval_ms" toml:"reconnect_interval_ms"`
	// PingIntervalMS < 0 disables application pings.
	PingIntervalMS int `json:"ping_interval_ms" yaml:"ping_interval_ms" toml:"ping_interval_ms"`
	// ReadTimeoutMS < 0 disables the read deadline.
	ReadTimeoutMS     int      `json:"read_timeout_ms" yaml:"read_timeout_ms" toml:"read_timeout_ms"`
	RequestTimeoutMS  int      `json:"request_timeout_ms" yaml:"request_timeout_ms" toml:"request_timeout_ms"`
	ListenAddr        string   `json:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
	DefaultModel      string   `json:"default_model" yaml:"default_model" toml:"default_model"`
	LogLevel          string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat         string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	ResultsTTLSeconds int      `json:"results_ttl_seconds" yaml:"results_ttl_seconds" toml:"results_ttl_seconds"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	Tracing tracing.Config `json:"tracing" yaml:"tracing" toml:"tracing"`
}

// Defaults returns the configuration used when nothing is specified.
func Defaults() Config {
	return Config{
		ServerURL:           "http://localhost:8000",
		WSPath:              "/ws",
		ReconnectIntervalMS: 3000,
		PingIntervalMS:      25000,
		ReadTimeoutMS:       75000,
		RequestTimeoutMS:    30000,
		ListenAddr:          "127.0.0.1:8089",
		LogLevel:            "info",
		LogFormat:           "console",
		ResultsTTLSeconds:   3600,
		Tracing:             tracing.DefaultConfig(),
	}
}

// ApplyDefaults fills zero fields of cfg from Defaults.
func ApplyDefaults(cfg Config) Config {
	d := Defaults()
	if cfg.ServerURL == "" {
		cfg.ServerURL = d.ServerURL
	}
	if cfg.WSPath == "" {
		cfg.WSPath = d.WSPath
	}
	if cfg.ReconnectIntervalMS <= 0 {
		cfg.ReconnectIntervalMS = d.ReconnectIntervalMS
	}
	if cfg.PingIntervalMS == 0 {
		cfg.PingIntervalMS = d.PingIntervalMS
	}
	if cfg.ReadTimeoutMS == 0 {
		cfg.ReadTimeoutMS = d.ReadTimeoutMS
	}
	if cfg.RequestTimeoutMS <= 0 {
		cfg.RequestTimeoutMS = d.RequestTimeoutMS
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = d.ListenAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = d.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = d.LogFormat
	}
	if cfg.ResultsTTLSeconds <= 0 {
		cfg.ResultsTTLSeconds = d.ResultsTTLSeconds
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = d.Tracing.Exporter
	}
	if cfg.Tracing.OTLPEndpoint == "" {
		cfg.Tracing.OTLPEndpoint = d.Tracing.OTLPEndpoint
	}
	if cfg.Tracing.SampleRate <= 0 {
		cfg.Tracing.SampleRate = d.Tracing.SampleRate
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = d.Tracing.ServiceName
	}
	return cfg
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml. A leading ~ is expanded.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
