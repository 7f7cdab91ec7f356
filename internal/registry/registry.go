// Package registry holds the canonical client-side lifecycle record of every
// known model and the rank-based merge rules that reconcile push updates and
// REST snapshots into it.
//
// Readers may call Get/Records from any goroutine. Mutation happens only
// through ApplyFullSnapshot and ApplyPushUpdate, and callers are expected to
// invoke those from a single goroutine so merges apply in delivery order.
package registry

import "sync"

// Change reports the effect of one merge.
type Change struct {
	ModelID string
	Outcome Outcome
	Before  ModelRecord
	After   ModelRecord
}

// Changed reports whether the merge altered the stored record.
func (c Change) Changed() bool {
	if c.Outcome == OutcomeAdded {
		return true
	}
	return !c.Before.Equal(c.After)
}

// Registry maps model ids to lifecycle records, preserving insertion order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	records map[string]ModelRecord
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]ModelRecord)}
}

// ApplyFullSnapshot merges every record of a REST snapshot. Unknown ids are
// added; ids absent from the snapshot are left untouched.
func (r *Registry) ApplyFullSnapshot(recs []ModelRecord) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	changes := make([]Change, 0, len(recs))
	for _, in := range recs {
		if in.ID == "" {
			continue
		}
		cur, ok := r.records[in.ID]
		if !ok {
			if !in.State.Valid() {
				changes = append(changes, Change{ModelID: in.ID, Outcome: OutcomeInvalid})
				continue
			}
			rec := normalize(in)
			r.records[in.ID] = rec
			r.order = append(r.order, in.ID)
			changes = append(changes, Change{ModelID: in.ID, Outcome: OutcomeAdded, After: rec.Clone()})
			continue
		}
		next, outcome := merge(cur, Update{State: in.State, Progress: in.Progress, Error: in.ErrorMessage})
		if !in.Metadata.isZero() {
			next.Metadata = in.Metadata
		}
		r.records[in.ID] = next
		changes = append(changes, Change{ModelID: in.ID, Outcome: outcome, Before: cur, After: next.Clone()})
	}
	return changes
}

// ApplyPushUpdate merges a single-model partial update. Updates for ids the
// registry does not know are ignored and reported as OutcomeUnknown.
func (r *Registry) ApplyPushUpdate(modelID string, u Update) Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.records[modelID]
	if !ok {
		return Change{ModelID: modelID, Outcome: OutcomeUnknown}
	}
	next, outcome := merge(cur, u)
	r.records[modelID] = next
	return Change{ModelID: modelID, Outcome: outcome, Before: cur, After: next.Clone()}
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (ModelRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return ModelRecord{}, false
	}
	return rec.Clone(), true
}

// Has reports whether id is known.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok
}

// Records returns copies of all records in insertion order.
func (r *Registry) Records() []ModelRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].Clone())
	}
	return out
}

// Len returns the number of known models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
