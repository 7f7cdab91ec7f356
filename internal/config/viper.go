package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. MODELSYNC_SERVER_URL.
const EnvPrefix = "MODELSYNC"

// Keys understood by Overlay. Nested tracing keys use a dot.
var overlayKeys = []struct {
	key   string
	apply func(*Config, *viper.Viper, string)
}{
	{"server_url", func(c *Config, v *viper.Viper, k string) { c.ServerURL = v.GetString(k) }},
	{"ws_path", func(c *Config, v *viper.Viper, k string) { c.WSPath = v.GetString(k) }},
	{"reconnect_interval_ms", func(c *Config, v *viper.Viper, k string) { c.ReconnectIntervalMS = v.GetInt(k) }},
	{"ping_interval_ms", func(c *Config, v *viper.Viper, k string) { c.PingIntervalMS = v.GetInt(k) }},
	{"read_timeout_ms", func(c *Config, v *viper.Viper, k string) { c.ReadTimeoutMS = v.GetInt(k) }},
	{"request_timeout_ms", func(c *Config, v *viper.Viper, k string) { c.RequestTimeoutMS = v.GetInt(k) }},
	{"listen_addr", func(c *Config, v *viper.Viper, k string) { c.ListenAddr = v.GetString(k) }},
	{"default_model", func(c *Config, v *viper.Viper, k string) { c.DefaultModel = v.GetString(k) }},
	{"log_level", func(c *Config, v *viper.Viper, k string) { c.LogLevel = v.GetString(k) }},
	{"log_format", func(c *Config, v *viper.Viper, k string) { c.LogFormat = v.GetString(k) }},
	{"results_ttl_seconds", func(c *Config, v *viper.Viper, k string) { c.ResultsTTLSeconds = v.GetInt(k) }},
	{"cors_origins", func(c *Config, v *viper.Viper, k string) { c.CORSOrigins = SplitCSV(v.GetString(k)) }},
	{"tracing.enabled", func(c *Config, v *viper.Viper, k string) { c.Tracing.Enabled = v.GetBool(k) }},
	{"tracing.exporter", func(c *Config, v *viper.Viper, k string) { c.Tracing.Exporter = v.GetString(k) }},
	{"tracing.otlp_endpoint", func(c *Config, v *viper.Viper, k string) { c.Tracing.OTLPEndpoint = v.GetString(k) }},
	{"tracing.sample_rate", func(c *Config, v *viper.Viper, k string) { c.Tracing.SampleRate = v.GetFloat64(k) }},
}

// NewViper returns a viper instance reading MODELSYNC_* environment variables
// for every overlay key (dots become underscores).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range overlayKeys {
		_ = v.BindEnv(k.key)
	}
	return v
}

// Overlay applies every key explicitly set in v (changed flag or present env
// var) on top of base. Flag defaults do not count as set.
func Overlay(base Config, v *viper.Viper) Config {
	for _, k := range overlayKeys {
		if v.IsSet(k.key) {
			k.apply(&base, v, k.key)
		}
	}
	return base
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty
// entries.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
