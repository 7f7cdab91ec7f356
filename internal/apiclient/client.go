// Package apiclient is the REST collaborator of the sync subsystem: it
// fetches model snapshots and triggers lifecycle actions and generations on
// the backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"modelsync/internal/tracing"
	"modelsync/pkg/types"
)

const (
	defaultRequestTimeout  = 30 * time.Second
	defaultGenerateTimeout = 10 * time.Minute
	defaultConnectTimeout  = 5 * time.Second
	maxErrorBody           = 4096
)

// Config configures a Client.
type Config struct {
	// BaseURL is the backend origin, e.g. http://localhost:8000.
	BaseURL string
	// RequestTimeout bounds model list and action calls.
	RequestTimeout time.Duration
	// GenerateTimeout bounds a generation call; generations are slow.
	GenerateTimeout time.Duration
	ConnectTimeout  time.Duration
	HTTPClient      *http.Client
	Tracer          trace.Tracer
	Logger          zerolog.Logger
}

// Client talks to the backend REST API. Safe for concurrent use.
type Client struct {
	base            string
	requestTimeout  time.Duration
	generateTimeout time.Duration
	http            *http.Client
	tracer          trace.Tracer
	log             zerolog.Logger
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: base url must be http(s), got %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = defaultGenerateTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	cli := cfg.HTTPClient
	if cli == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.ConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Deadlines come from the request context.
		cli = &http.Client{Transport: tr, Timeout: 0}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return &Client{
		base:            strings.TrimRight(u.String(), "/"),
		requestTimeout:  cfg.RequestTimeout,
		generateTimeout: cfg.GenerateTimeout,
		http:            cli,
		tracer:          tracer,
		log:             cfg.Logger.With().Str("component", "apiclient").Logger(),
	}, nil
}

// BaseURL returns the normalized backend origin.
func (c *Client) BaseURL() string { return c.base }

// ListModels fetches the full model snapshot (GET /api/models).
func (c *Client) ListModels(ctx context.Context) ([]types.Model, error) {
	var out types.ModelsResponse
	if err := c.do(ctx, "list_models", http.MethodGet, "/api/models", nil, &out, c.requestTimeout); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// GetModel fetches one model (GET /api/models/{id}).
func (c *Client) GetModel(ctx context.Context, modelID string) (types.Model, error) {
	var out types.Model
	err := c.do(ctx, "get_model", http.MethodGet, "/api/models/"+url.PathEscape(modelID), nil, &out, c.requestTimeout)
	return out, err
}

// Download asks the backend to start downloading modelID.
func (c *Client) Download(ctx context.Context, modelID string) (types.ActionResponse, error) {
	return c.action(ctx, "download", modelID)
}

// Load asks the backend to load modelID into memory.
func (c *Client) Load(ctx context.Context, modelID string) (types.ActionResponse, error) {
	return c.action(ctx, "load", modelID)
}

// Unload asks the backend to release modelID.
func (c *Client) Unload(ctx context.Context, modelID string) (types.ActionResponse, error) {
	return c.action(ctx, "unload", modelID)
}

func (c *Client) action(ctx context.Context, verb, modelID string) (types.ActionResponse, error) {
	var out types.ActionResponse
	if strings.TrimSpace(modelID) == "" {
		return out, errors.New("apiclient: empty model id")
	}
	path := "/api/models/" + url.PathEscape(modelID) + "/" + verb
	err := c.do(ctx, verb, http.MethodPost, path, nil, &out, c.requestTimeout)
	return out, err
}

// Generate runs a generation (POST /api/generate) and blocks until the
// backend answers.
func (c *Client) Generate(ctx context.Context, req types.GenerationRequest) (types.GeneratedImage, error) {
	var out types.GeneratedImage
	err := c.do(ctx, "generate", http.MethodPost, "/api/generate", req, &out, c.generateTimeout)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any, timeout time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, tracing.SpanAPIRequest, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrHTTPMethod, method),
			attribute.String(tracing.AttrHTTPPath, path),
		))
	start := time.Now()
	code := "error"
	defer func() {
		requestsTotal.WithLabelValues(op, code).Inc()
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var body io.Reader
	if in != nil {
		b, merr := json.Marshal(in)
		if merr != nil {
			return fmt.Errorf("apiclient: encode %s: %w", op, merr)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("apiclient: %s: %w", op, ctx.Err())
		}
		return fmt.Errorf("apiclient: %s: %w", op, err)
	}
	defer resp.Body.Close()
	code = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		uerr := &UpstreamError{Status: resp.StatusCode, Detail: parseDetail(b)}
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("detail", uerr.Detail).Msg("upstream error")
		return uerr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode %s response: %w", op, err)
	}
	return nil
}
