package types

// ModelsResponse wraps the list of models returned by GET /api/models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ActionResponse acknowledges POST /api/models/{id}/download|load|unload.
type ActionResponse struct {
	// example: Loading started
	Message string `json:"message" example:"Loading started"`
	// example: z-image-turbo-4bit
	ModelID string `json:"model_id" example:"z-image-turbo-4bit"`
}

// GenerationRequest is the payload of POST /api/generate.
type GenerationRequest struct {
	// Required prompt text.
	// example: a lighthouse at dusk, oil painting
	Prompt string `json:"prompt" example:"a lighthouse at dusk, oil painting"`
	// Model to generate with. Empty means the active model.
	// example: z-image-turbo-4bit
	ModelID string `json:"model_id,omitempty" example:"z-image-turbo-4bit"`
	// example: 1024
	Width int `json:"width,omitempty" example:"1024"`
	// example: 1024
	Height int `json:"height,omitempty" example:"1024"`
	// example: 8
	NumInferenceSteps int `json:"num_inference_steps,omitempty" example:"8"`
	// example: 0
	GuidanceScale float64 `json:"guidance_scale"`
	// Optional seed; omitted lets the server choose.
	Seed *int64 `json:"seed,omitempty"`
	// Optional negative prompt.
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

// GeneratedImage is returned by POST /api/generate.
type GeneratedImage struct {
	ImageID        string  `json:"image_id"`
	ImageURL       string  `json:"image_url"`
	ImageBase64    string  `json:"image_base64,omitempty"`
	Prompt         string  `json:"prompt"`
	ModelID        string  `json:"model_id"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Seed           int64   `json:"seed"`
	GenerationTime float64 `json:"generation_time"`
}

// UpstreamErrorBody is the error payload the backend returns on non-2xx responses.
type UpstreamErrorBody struct {
	Detail string `json:"detail"`
}

// ErrorResponse is a consistent JSON error payload of the local API.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModelView is one registry record as exposed by the local API.
type ModelView struct {
	// example: z-image-turbo-4bit
	ID string `json:"id" example:"z-image-turbo-4bit"`
	// example: Z-Image Turbo (4-bit MLX)
	Name string `json:"name,omitempty"`
	// example: downloading
	State string `json:"state" example:"downloading"`
	// Download progress while downloading.
	Progress *Progress `json:"progress,omitempty"`
	// Last error reported for this model.
	Error string `json:"error,omitempty"`
	// Whether the selection policy picks this model.
	IsSelected bool `json:"is_selected"`
}

// LocalModelsResponse is returned by the local GET /models.
type LocalModelsResponse struct {
	Models   []ModelView `json:"models"`
	Selected string      `json:"selected,omitempty"`
}

// SelectRequest is the payload of the local POST /select.
type SelectRequest struct {
	// example: z-image-turbo-4bit
	ModelID string `json:"model_id" example:"z-image-turbo-4bit"`
}

// GenerationStatus summarizes the generation guard.
type GenerationStatus struct {
	// example: false
	Pending bool `json:"pending"`
	// Request id of the pending generation.
	RequestID string `json:"request_id,omitempty"`
	// Last generation failure, cleared on the next success.
	LastError string `json:"last_error,omitempty"`
}

// StatusResponse is returned by the local GET /status.
type StatusResponse struct {
	// example: true
	Connected bool `json:"connected"`
	// Session state (idle, connecting, open, closed).
	// example: open
	SessionState string `json:"session_state" example:"open"`
	// Last transport error observed by the session.
	LastTransportError string `json:"last_transport_error,omitempty"`
	// Active model chosen by the selection policy.
	Selected string `json:"selected,omitempty"`
	// Number of models known to the registry.
	// example: 1
	ModelCount int `json:"model_count" example:"1"`
	// Generation guard state.
	Generation GenerationStatus `json:"generation"`
	// Uptime of the client in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// SelectResponse reports the selection after POST /select.
type SelectResponse struct {
	// example: z-image-turbo-4bit
	Selected string `json:"selected"`
}

// CancelResponse is returned by the local POST /generate/cancel.
type CancelResponse struct {
	// Request id of the abandoned generation, empty when nothing was pending.
	RequestID string `json:"request_id,omitempty"`
	// example: true
	Cancelled bool `json:"cancelled"`
}
