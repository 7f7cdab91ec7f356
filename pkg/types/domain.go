package types

// Progress is the download progress payload reported by the backend while a
// model is downloading.
type Progress struct {
	// Total size of the model files in bytes.
	// example: 6442450944
	TotalSize int64 `json:"total_size" example:"6442450944"`
	// Bytes downloaded so far.
	// example: 1073741824
	DownloadedSize int64 `json:"downloaded_size" example:"1073741824"`
	// File currently being fetched.
	// example: transformer/model-00001.safetensors
	CurrentFile string `json:"current_file,omitempty" example:"transformer/model-00001.safetensors"`
	// Number of files completed.
	// example: 3
	FilesCompleted int `json:"files_completed" example:"3"`
	// Total number of files.
	// example: 12
	TotalFiles int `json:"total_files" example:"12"`
	// Transfer rate in bytes per second.
	// example: 52428800
	Speed float64 `json:"speed,omitempty" example:"52428800"`
	// Estimated seconds remaining.
	// example: 104
	ETA float64 `json:"eta,omitempty" example:"104"`
	// Completion percentage as computed by the server.
	// example: 16.6
	Percent float64 `json:"percent,omitempty" example:"16.6"`
}

// Model is one entry of GET /api/models.
type Model struct {
	// Stable identifier for the model.
	// example: z-image-turbo-4bit
	ID string `json:"id" example:"z-image-turbo-4bit"`
	// Human-friendly name.
	// example: Z-Image Turbo (4-bit MLX)
	Name string `json:"name,omitempty" example:"Z-Image Turbo (4-bit MLX)"`
	// Short description.
	Description string `json:"description,omitempty"`
	// example: 8
	RecommendedSteps int `json:"recommended_steps,omitempty" example:"8"`
	// example: 0
	RecommendedGuidance float64 `json:"recommended_guidance,omitempty" example:"0"`
	// Approximate size in GB.
	// example: 6
	SizeGB float64 `json:"size_gb,omitempty" example:"6"`
	// Lifecycle state (not_downloaded, downloading, downloaded, loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Download progress, if any.
	Progress *Progress `json:"progress,omitempty"`
	// Error message when state is error.
	Error *string `json:"error,omitempty"`
	// Whether the server considers this the current model.
	IsCurrent bool `json:"is_current,omitempty"`
}
