package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate reports configuration errors that defaults cannot repair.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url must be an http(s) URL, got %q", c.ServerURL)
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("ws_path must start with '/', got %q", c.WSPath)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// PushURL derives the WebSocket URL from ServerURL and WSPath
// (http -> ws, https -> wss).
func (c Config) PushURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("parse server_url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("server_url scheme must be http or https, got %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + c.WSPath
	return u.String(), nil
}

func (c Config) ReconnectInterval() time.Duration { return ms(c.ReconnectIntervalMS) }
func (c Config) PingInterval() time.Duration { return ms(c.PingIntervalMS) }
func (c Config) ReadTimeout() time.Duration { return ms(c.ReadTimeoutMS) }
func (c Config) RequestTimeout() time.Duration { return ms(c.RequestTimeoutMS) }
func (c Config) ResultsTTL() time.Duration { return time.Duration(c.ResultsTTLSeconds) * time.Second }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
