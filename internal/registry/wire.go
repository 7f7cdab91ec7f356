package registry

import (
	"fmt"

	"modelsync/pkg/types"
)

// ProgressFromWire converts a wire progress payload. The backend always sends
// a progress object, zero-filled when nothing is downloading; an all-zero
// payload is treated as absent so it cannot overwrite live progress.
func ProgressFromWire(p *types.Progress) *Progress {
	if p == nil || *p == (types.Progress{}) {
		return nil
	}
	return &Progress{
		TotalBytes:      p.TotalSize,
		DownloadedBytes: p.DownloadedSize,
		CurrentFileName: p.CurrentFile,
		FilesCompleted:  p.FilesCompleted,
		TotalFiles:      p.TotalFiles,
		BytesPerSecond:  p.Speed,
		ETASeconds:      p.ETA,
		Percent:         p.Percent,
	}
}

// ToWire converts p back to the wire representation.
func (p *Progress) ToWire() *types.Progress {
	if p == nil {
		return nil
	}
	return &types.Progress{
		TotalSize:      p.TotalBytes,
		DownloadedSize: p.DownloadedBytes,
		CurrentFile:    p.CurrentFileName,
		FilesCompleted: p.FilesCompleted,
		TotalFiles:     p.TotalFiles,
		Speed:          p.BytesPerSecond,
		ETA:            p.ETASeconds,
		Percent:        p.Completion(),
	}
}

// RecordFromModel converts one GET /api/models entry into a record.
func RecordFromModel(m types.Model) (ModelRecord, error) {
	if m.ID == "" {
		return ModelRecord{}, fmt.Errorf("model entry without id")
	}
	st, err := ParseState(m.State)
	if err != nil {
		return ModelRecord{}, fmt.Errorf("model %s: %w", m.ID, err)
	}
	rec := ModelRecord{
		ID:       m.ID,
		State:    st,
		Progress: ProgressFromWire(m.Progress),
		Metadata: Metadata{
			Name:                m.Name,
			Description:         m.Description,
			RecommendedSteps:    m.RecommendedSteps,
			RecommendedGuidance: m.RecommendedGuidance,
			SizeGB:              m.SizeGB,
		},
	}
	if m.Error != nil {
		rec.ErrorMessage = *m.Error
	}
	return rec, nil
}

// RecordsFromModels converts a snapshot, skipping entries that cannot be
// converted. The skipped entries are returned as errors for logging.
func RecordsFromModels(ms []types.Model) ([]ModelRecord, []error) {
	out := make([]ModelRecord, 0, len(ms))
	var errs []error
	for _, m := range ms {
		rec, err := RecordFromModel(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rec)
	}
	return out, errs
}

// UpdateFromStatus converts a model_status push message into an Update.
func UpdateFromStatus(msg types.ModelStatusMessage) (Update, error) {
	st, err := ParseState(msg.State)
	if err != nil {
		return Update{}, fmt.Errorf("model %s: %w", msg.ModelID, err)
	}
	u := Update{State: st, Progress: ProgressFromWire(msg.Progress)}
	if msg.Error != nil {
		u.Error = *msg.Error
	}
	return u, nil
}

// View projects r for the local API.
func (r ModelRecord) View(selected bool) types.ModelView {
	return types.ModelView{
		ID:         r.ID,
		Name:       r.Name,
		State:      string(r.State),
		Progress:   r.Progress.ToWire(),
		Error:      r.ErrorMessage,
		IsSelected: selected,
	}
}
