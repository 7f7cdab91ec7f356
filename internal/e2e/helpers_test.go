package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"modelsync/internal/apiclient"
	"modelsync/internal/httpapi"
	"modelsync/internal/manager"
	"modelsync/internal/pubsub"
	"modelsync/internal/session"
	"modelsync/pkg/types"
)

// fakeBackend serves the model server's REST API and push channel from
// in-memory state. Tests drive lifecycle progress by pushing status frames.
type fakeBackend struct {
	*httptest.Server

	mu      sync.Mutex
	order   []string
	models  map[string]types.Model
	conns   []*wsConn
	accepts int
	calls   []string
}

type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteJSON(v)
}

func newFakeBackend(t *testing.T, models ...types.Model) *fakeBackend {
	t.Helper()
	b := &fakeBackend{models: make(map[string]types.Model)}
	for _, m := range models {
		b.order = append(b.order, m.ID)
		b.models[m.ID] = m
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/models", b.handleList)
	mux.HandleFunc("POST /api/models/{id}/{verb}", b.handleAction)
	mux.HandleFunc("POST /api/generate", b.handleGenerate)
	mux.HandleFunc("GET /ws", b.handleWS)
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) snapshot() []types.Model {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Model, 0, len(b.order))
	for _, id := range b.order {
		m := b.models[id]
		if m.Progress == nil {
			m.Progress = &types.Progress{}
		}
		out = append(out, m)
	}
	return out
}

func (b *fakeBackend) setState(id, state string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.models[id]
	m.State = state
	b.models[id] = m
}

func (b *fakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(types.ModelsResponse{Models: b.snapshot()})
}

func (b *fakeBackend) handleAction(w http.ResponseWriter, r *http.Request) {
	id, verb := r.PathValue("id"), r.PathValue("verb")
	b.mu.Lock()
	b.calls = append(b.calls, verb+":"+id)
	_, ok := b.models[id]
	b.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Model not found"}`))
		return
	}
	msg := map[string]string{"download": "Download started", "load": "Loading started", "unload": "Model unloaded"}[verb]
	switch verb {
	case "download":
		b.setState(id, "downloading")
	case "load":
		b.setState(id, "loading")
	case "unload":
		b.setState(id, "downloaded")
	}
	_ = json.NewEncoder(w).Encode(types.ActionResponse{Message: msg, ModelID: id})
}

func (b *fakeBackend) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerationRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	m, ok := b.models[req.ModelID]
	b.mu.Unlock()
	if !ok || m.State != "ready" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Model is not loaded. Please load the model first."}`))
		return
	}
	b.broadcast(types.GenerationStartMessage{Type: types.MsgGenerationStart, Prompt: req.Prompt, ModelID: req.ModelID})
	img := types.GeneratedImage{
		ImageID: "img-1", ImageURL: "/api/images/img-1", Prompt: req.Prompt, ModelID: req.ModelID,
		Width: req.Width, Height: req.Height, Seed: 7, GenerationTime: 1.5,
	}
	b.broadcast(types.GenerationCompleteMessage{Type: types.MsgGenerationComplete, ImageID: img.ImageID, Prompt: req.Prompt, GenerationTime: 1.5})
	_ = json.NewEncoder(w).Encode(img)
}

func (b *fakeBackend) handleWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	c, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &wsConn{c: c}
	b.mu.Lock()
	b.conns = append(b.conns, conn)
	b.accepts++
	b.mu.Unlock()
	_ = conn.send(map[string]any{"type": types.MsgInitialState, "models": b.snapshot()})
	defer c.Close()
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		if strings.Contains(string(data), `"ping"`) {
			_ = conn.send(map[string]string{"type": types.MsgPong})
		}
	}
}

// broadcast writes v to every open push connection.
func (b *fakeBackend) broadcast(v any) {
	b.mu.Lock()
	conns := append([]*wsConn(nil), b.conns...)
	b.mu.Unlock()
	for _, c := range conns {
		_ = c.send(v)
	}
}

func (b *fakeBackend) pushStatus(id, state string, progress *types.Progress, errMsg *string) {
	b.setState(id, state)
	b.broadcast(types.ModelStatusMessage{Type: types.MsgModelStatus, ModelID: id, State: state, Progress: progress, Error: errMsg})
}

// dropConnections kills every push socket without a close frame.
func (b *fakeBackend) dropConnections() {
	b.mu.Lock()
	conns := b.conns
	b.conns = nil
	b.mu.Unlock()
	for _, c := range conns {
		_ = c.c.NetConn().Close()
	}
}

func (b *fakeBackend) acceptCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accepts
}

// client is the full client stack wired against a fake backend, with the
// local API served from an httptest server.
type client struct {
	mgr    *manager.Manager
	sess   *session.Manager
	broker *pubsub.Broker[manager.Event]
	api    *httptest.Server
}

func newClient(t *testing.T, b *fakeBackend) *client {
	t.Helper()
	api, err := apiclient.New(apiclient.Config{BaseURL: b.URL, RequestTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("apiclient: %v", err)
	}
	sess := session.New(session.Config{ReconnectInterval: 50 * time.Millisecond, PingInterval: 20 * time.Millisecond})
	broker := pubsub.NewBroker[manager.Event]()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Session:   sess,
		Backend:   api,
		PushURL:   "ws" + strings.TrimPrefix(b.URL, "http") + "/ws",
		Publisher: manager.NewBrokerPublisher(broker),
	})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Run(ctx) }()
	srv := httptest.NewServer(httpapi.NewMux(mgr, broker))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Errorf("Run did not return")
		}
		broker.Close()
	})
	return &client{mgr: mgr, sess: sess, broker: broker, api: srv}
}

// waitPush waits until the backend accepted n push connections and the
// client reports the channel open.
func (c *client) waitPush(t *testing.T, b *fakeBackend, n int) {
	t.Helper()
	eventually(t, "push channel open", func() bool { return b.acceptCount() == n && c.sess.Connected() })
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			t.Fatalf("GET %s: decode %q: %v", url, body, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, v any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if v != nil && len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			t.Fatalf("POST %s: decode %q: %v", url, data, err)
		}
	}
	return resp.StatusCode
}

func (c *client) models(t *testing.T) types.LocalModelsResponse {
	t.Helper()
	var out types.LocalModelsResponse
	if code := getJSON(t, c.api.URL+"/models", &out); code != http.StatusOK {
		t.Fatalf("/models status=%d", code)
	}
	return out
}

func (c *client) state(t *testing.T, id string) string {
	t.Helper()
	for _, m := range c.models(t).Models {
		if m.ID == id {
			return m.State
		}
	}
	return ""
}
