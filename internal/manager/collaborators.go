package manager

import (
	"context"

	"modelsync/internal/session"
	"modelsync/pkg/types"
)

// PushSession is the push channel the loop consumes. *session.Manager
// implements it.
type PushSession interface {
	Open(ctx context.Context, url string) error
	Close(reason string)
	Messages() <-chan types.Envelope
	SetCallbacks(onConnect, onDisconnect func())
	Connected() bool
	LastError() string
	State() session.State
}

// Backend is the REST side of the server. *apiclient.Client implements it.
type Backend interface {
	ListModels(ctx context.Context) ([]types.Model, error)
	Download(ctx context.Context, modelID string) (types.ActionResponse, error)
	Load(ctx context.Context, modelID string) (types.ActionResponse, error)
	Unload(ctx context.Context, modelID string) (types.ActionResponse, error)
	Generate(ctx context.Context, req types.GenerationRequest) (types.GeneratedImage, error)
}
