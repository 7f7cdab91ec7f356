package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"modelsync/pkg/types"
)

// backend is a minimal REST stand-in for the model server.
func backend(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/models", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.ModelsResponse{Models: []types.Model{
			{ID: "m1", Name: "Model One", State: "downloading", Progress: &types.Progress{TotalSize: 200, DownloadedSize: 50}},
			{ID: "m2", Name: "Model Two", State: "ready"},
		}})
	})
	mux.HandleFunc("POST /api/models/{id}/{verb}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.PathValue("verb")+":"+r.PathValue("id"))
		mu.Unlock()
		if r.PathValue("id") != "m1" && r.PathValue("id") != "m2" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Model not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(types.ActionResponse{Message: "Loading started", ModelID: r.PathValue("id")})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestModelsCommand_Table(t *testing.T) {
	srv, _ := backend(t)
	out, err := execute(t, "models", "--server-url", srv.URL, "--log-level", "error")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out, "m1") || !strings.Contains(out, "25.0%") {
		t.Fatalf("missing progress row: %q", out)
	}
	lines := strings.Split(out, "\n")
	var selected string
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "*") {
			selected = l
		}
	}
	if !strings.Contains(selected, "m2") {
		t.Fatalf("expected m2 selected, got %q", out)
	}
}

func TestModelsCommand_JSON(t *testing.T) {
	srv, _ := backend(t)
	out, err := execute(t, "models", "--json", "--server-url", srv.URL)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var body types.LocalModelsResponse
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("json: %v (%q)", err, out)
	}
	if body.Selected != "m2" || len(body.Models) != 2 || body.Models[0].Progress == nil {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestActionCommand(t *testing.T) {
	srv, calls := backend(t)
	out, err := execute(t, "load", "m1", "--server-url", srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.TrimSpace(out) != "Loading started" || len(*calls) != 1 || (*calls)[0] != "load:m1" {
		t.Fatalf("out=%q calls=%v", out, *calls)
	}
	if _, err := execute(t, "unload", "ghost", "--server-url", srv.URL); err == nil || !strings.Contains(err.Error(), "Model not found") {
		t.Fatalf("expected upstream detail, got %v", err)
	}
	if _, err := execute(t, "download", "--server-url", srv.URL); err == nil {
		t.Fatalf("expected missing argument error")
	}
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	srv, _ := backend(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	if err := os.WriteFile(path, []byte("server_url = \"http://127.0.0.1:1\"\ndefault_model = \"m1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "models", "--json", "--config", path, "--server-url", srv.URL)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var body types.LocalModelsResponse
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	// default_model from the file, server_url from the flag.
	if body.Selected != "m1" {
		t.Fatalf("selected=%q", body.Selected)
	}

	if _, err := execute(t, "models", "--config", filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected missing config error")
	}
}

func TestEnvOverridesServerURL(t *testing.T) {
	srv, _ := backend(t)
	t.Setenv("MODELSYNC_SERVER_URL", srv.URL)
	if _, err := execute(t, "models"); err != nil {
		t.Fatalf("models via env: %v", err)
	}
	t.Setenv("MODELSYNC_SERVER_URL", "not a url")
	if _, err := execute(t, "models"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("warn", "json", &buf)
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"message":"shown"`) {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	if got := newLogger("bogus", "console", &buf).GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("level=%v", got)
	}
}
