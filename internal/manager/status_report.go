package manager

import (
	"time"

	"modelsync/internal/selection"
	"modelsync/pkg/types"
)

// Views returns every record with its derived selection flag, in insertion
// order.
func (m *Manager) Views() []types.ModelView {
	recs := m.reg.Records()
	m.mu.RLock()
	explicit := m.explicit
	m.mu.RUnlock()
	sel := selection.Choose(recs, explicit)
	out := make([]types.ModelView, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.View(r.ID == sel))
	}
	return out
}

// View returns one record projected for the local API.
func (m *Manager) View(modelID string) (types.ModelView, bool) {
	rec, ok := m.reg.Get(modelID)
	if !ok {
		return types.ModelView{}, false
	}
	return rec.View(m.Selected() == modelID), true
}

// Ready reports whether the push channel is open.
func (m *Manager) Ready() bool { return m.sess.Connected() }

// Status builds the status response for /status.
func (m *Manager) Status() types.StatusResponse {
	g := m.guard.Status()
	return types.StatusResponse{
		Connected:          m.sess.Connected(),
		SessionState:       string(m.sess.State()),
		LastTransportError: m.sess.LastError(),
		Selected:           m.Selected(),
		ModelCount:         m.reg.Len(),
		Generation: types.GenerationStatus{
			Pending:   g.Pending,
			RequestID: g.RequestID,
			LastError: g.LastError,
		},
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}
}

// SnapshotError returns the last snapshot fetch failure, cleared by the next
// successful snapshot.
func (m *Manager) SnapshotError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotErr
}
