package manager

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"modelsync/internal/session"
	"modelsync/pkg/types"
)

// fakeSession is an in-memory PushSession.
type fakeSession struct {
	mu           sync.Mutex
	msgs         chan types.Envelope
	opened       int
	closed       int
	connected    bool
	onConnect    func()
	onDisconnect func()
}

func newFakeSession() *fakeSession { return &fakeSession{msgs: make(chan types.Envelope, 16)} }

func (f *fakeSession) Open(ctx context.Context, url string) error {
	f.mu.Lock()
	f.opened++
	f.connected = true
	cb := f.onConnect
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *fakeSession) Close(reason string) {
	f.mu.Lock()
	f.closed++
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeSession) Messages() <-chan types.Envelope { return f.msgs }

func (f *fakeSession) SetCallbacks(onConnect, onDisconnect func()) {
	f.mu.Lock()
	f.onConnect, f.onDisconnect = onConnect, onDisconnect
	f.mu.Unlock()
}

func (f *fakeSession) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSession) LastError() string { return "" }

func (f *fakeSession) State() session.State {
	if f.Connected() {
		return session.StateOpen
	}
	return session.StateClosed
}

func (f *fakeSession) push(t *testing.T, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	env, err := types.ParseEnvelope(b)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	f.msgs <- env
}

// fakeBackend is an in-memory Backend.
type fakeBackend struct {
	mu        sync.Mutex
	models    []types.Model
	listErr   error
	actionErr map[string]error
	calls     []string
	genGate   chan struct{}
	genErr    error
	genImage  types.GeneratedImage
	genReqs   []types.GenerationRequest
}

func (b *fakeBackend) ListModels(ctx context.Context) ([]types.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "list")
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]types.Model(nil), b.models...), nil
}

func (b *fakeBackend) act(verb, id string) (types.ActionResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, verb+":"+id)
	if err := b.actionErr[verb]; err != nil {
		return types.ActionResponse{}, err
	}
	return types.ActionResponse{Message: verb + " ok", ModelID: id}, nil
}

func (b *fakeBackend) Download(ctx context.Context, id string) (types.ActionResponse, error) {
	return b.act("download", id)
}

func (b *fakeBackend) Load(ctx context.Context, id string) (types.ActionResponse, error) {
	return b.act("load", id)
}

func (b *fakeBackend) Unload(ctx context.Context, id string) (types.ActionResponse, error) {
	return b.act("unload", id)
}

func (b *fakeBackend) Generate(ctx context.Context, req types.GenerationRequest) (types.GeneratedImage, error) {
	b.mu.Lock()
	gate := b.genGate
	b.genReqs = append(b.genReqs, req)
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return types.GeneratedImage{}, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.genErr != nil {
		return types.GeneratedImage{}, b.genErr
	}
	img := b.genImage
	img.ModelID = req.ModelID
	return img, nil
}

func (b *fakeBackend) callCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == name {
			n++
		}
	}
	return n
}

func model(id, state string) types.Model {
	return types.Model{ID: id, Name: id, State: state}
}

func status(id, state string, p *types.Progress) types.ModelStatusMessage {
	return types.ModelStatusMessage{Type: types.MsgModelStatus, ModelID: id, State: state, Progress: p}
}

// startManager runs a manager against fakes until the test ends and waits for
// the first snapshot to land.
func startManager(t *testing.T, be *fakeBackend) (*Manager, *fakeSession, *MemoryPublisher) {
	t.Helper()
	sess := newFakeSession()
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{Session: sess, Backend: be, PushURL: "ws://test/ws", Publisher: pub})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Errorf("Run did not return")
		}
	})
	waitFor(t, "initial snapshot", func() bool { return len(pub.Named(EventSnapshotApplied)) > 0 || len(pub.Named(EventSnapshotFailed)) > 0 })
	return m, sess, pub
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
