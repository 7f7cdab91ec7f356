package manager

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"modelsync/internal/generation"
	"modelsync/internal/registry"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultResultsTTL = time.Hour
	defaultTaskBuffer = 64
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Session PushSession
	Backend Backend
	// PushURL is the WebSocket endpoint handed to Session.Open.
	PushURL string
	// Registry is created when nil.
	Registry *registry.Registry
	// DefaultModel is the initial explicit selection, if any.
	DefaultModel string
	// ResultsTTL is how long completed generations stay listed.
	ResultsTTL time.Duration
	TaskBuffer int
	Publisher  EventPublisher
	Tracer     trace.Tracer
	Logger     zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		sess:      cfg.Session,
		api:       cfg.Backend,
		pushURL:   cfg.PushURL,
		reg:       cfg.Registry,
		explicit:  cfg.DefaultModel,
		pub:       cfg.Publisher,
		tracer:    cfg.Tracer,
		log:       cfg.Logger.With().Str("component", "manager").Logger(),
		startTime: time.Now(),
		started:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	// Apply defaults if unset
	if m.reg == nil {
		m.reg = registry.New()
	}
	if m.pub == nil {
		m.pub = noopPublisher{}
	}
	if m.tracer == nil {
		m.tracer = noop.NewTracerProvider().Tracer("noop")
	}
	ttl := cfg.ResultsTTL
	if ttl <= 0 {
		ttl = defaultResultsTTL
	}
	m.results = cache.New(ttl, 2*ttl)
	buf := cfg.TaskBuffer
	if buf <= 0 {
		buf = defaultTaskBuffer
	}
	m.tasks = make(chan task, buf)
	m.guard = generation.New(generation.Config{
		Readiness: generation.RegistryReadiness(m.reg),
		Logger:    cfg.Logger,
	})
	return m
}
