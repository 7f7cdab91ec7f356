package generation

import (
	"fmt"

	"modelsync/internal/registry"
)

// Readiness reports nil when modelID can serve a generation.
type Readiness func(modelID string) error

// RegistryReadiness derives readiness from the lifecycle registry, with the
// same wording the backend uses when it rejects a request.
func RegistryReadiness(reg *registry.Registry) Readiness {
	return func(modelID string) error {
		if modelID == "" {
			return ErrNotReady(modelID, "No model selected.")
		}
		rec, ok := reg.Get(modelID)
		if !ok {
			return ErrNotReady(modelID, fmt.Sprintf("Model %s is not known.", modelID))
		}
		switch rec.State {
		case registry.StateReady:
			return nil
		case registry.StateNotDownloaded:
			return ErrNotReady(modelID, fmt.Sprintf("Model %s is not downloaded. Please load it first.", modelID))
		case registry.StateDownloading:
			return ErrNotReady(modelID, fmt.Sprintf("Model %s is still downloading.", modelID))
		case registry.StateLoading:
			return ErrNotReady(modelID, fmt.Sprintf("Model %s is still loading.", modelID))
		case registry.StateError:
			return ErrNotReady(modelID, fmt.Sprintf("Model %s has an error: %s", modelID, rec.ErrorMessage))
		default:
			return ErrNotReady(modelID, "")
		}
	}
}
