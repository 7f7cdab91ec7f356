package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"modelsync/internal/tracing"
	"modelsync/pkg/types"
)

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "://nope"} {
		if _, err := New(Config{BaseURL: u}); err == nil {
			t.Fatalf("expected error for %q", u)
		}
	}
}

func TestListModels(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/models" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[
			{"id":"m1","name":"One","state":"ready","progress":{"total_size":0,"downloaded_size":0,"current_file":"","files_completed":0,"total_files":0,"speed":0,"eta":0,"percent":0},"error":null,"is_current":true},
			{"id":"m2","state":"downloading","progress":{"total_size":100,"downloaded_size":40,"percent":40}}
		]}`))
	}))
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0].ID != "m1" || models[1].State != "downloading" {
		t.Fatalf("unexpected models: %+v", models)
	}
	if models[1].Progress == nil || models[1].Progress.DownloadedSize != 40 {
		t.Fatalf("progress not decoded: %+v", models[1].Progress)
	}
	if c.BaseURL() == "" || c.BaseURL()[len(c.BaseURL())-1] == '/' {
		t.Fatalf("base url should be trimmed: %q", c.BaseURL())
	}
}

func TestActions_PathAndAck(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(types.ActionResponse{Message: "ok", ModelID: "m1"})
	}))
	ctx := context.Background()
	for _, call := range []func(context.Context, string) (types.ActionResponse, error){c.Download, c.Load, c.Unload} {
		ack, err := call(ctx, "m1")
		if err != nil || ack.ModelID != "m1" {
			t.Fatalf("ack=%+v err=%v", ack, err)
		}
	}
	want := []string{"/api/models/m1/download", "/api/models/m1/load", "/api/models/m1/unload"}
	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path[%d]=%s want %s", i, paths[i], want[i])
		}
	}
	if _, err := c.Load(ctx, " "); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestUpstreamErrorDetail(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Model m1 is still loading."}`))
	}))
	_, err := c.Generate(context.Background(), types.GenerationRequest{Prompt: "x", ModelID: "m1"})
	if !IsUpstream(err) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	ue := err.(*UpstreamError)
	if ue.Status != http.StatusBadRequest || ue.Detail != "Model m1 is still loading." {
		t.Fatalf("unexpected upstream error: %+v", ue)
	}
	if DetailOf(err) != "Model m1 is still loading." {
		t.Fatalf("DetailOf = %q", DetailOf(err))
	}
}

func TestParseDetail(t *testing.T) {
	cases := map[string]string{
		`{"detail":"Model not found"}`:                              "Model not found",
		`{"detail":[{"msg":"field required"},{"msg":"too large"}]}`: "field required; too large",
		`Internal Server Error`:                                     "Internal Server Error",
		`{"other":1}`:                                               `{"other":1}`,
		`{"detail":{"code":7}}`:                                     `{"code":7}`,
	}
	for in, want := range cases {
		if got := parseDetail([]byte(in)); got != want {
			t.Fatalf("parseDetail(%s) = %q want %q", in, got, want)
		}
	}
}

func TestGenerate_SendsBodyAndDecodes(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if r.Header.Get("Content-Type") != "application/json" || req.Prompt != "cat" || req.Width != 512 {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(types.GeneratedImage{ImageID: "img1", ImageURL: "/api/images/img1", Seed: 7, ModelID: req.ModelID})
	}))
	img, err := c.Generate(context.Background(), types.GenerationRequest{Prompt: "cat", ModelID: "m1", Width: 512, Height: 512})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if img.ImageID != "img1" || img.Seed != 7 || img.ModelID != "m1" {
		t.Fatalf("unexpected image: %+v", img)
	}
}

func TestRequestTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)
	c, err := New(Config{BaseURL: srv.URL, RequestTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.ListModels(context.Background()); err == nil || IsUpstream(err) {
		t.Fatalf("expected a timeout error, got %v", err)
	}
}

func TestSpansRecorded(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	p := tracing.NewProviderWithProcessor(tracing.Config{ServiceName: "test"}, rec)
	defer p.Shutdown(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Model not found"}`))
	}))
	defer srv.Close()
	c, err := New(Config{BaseURL: srv.URL, Tracer: p.Tracer()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, _ = c.GetModel(context.Background(), "nope")

	ended := rec.Ended()
	if len(ended) != 1 || ended[0].Name() != tracing.SpanAPIRequest {
		t.Fatalf("expected one api span, got %d", len(ended))
	}
	if len(ended[0].Events()) == 0 {
		t.Fatalf("expected the error to be recorded on the span")
	}
}
