// Package selection picks the active model from the registry.
package selection

import "modelsync/internal/registry"

// Choose returns the active model id. An explicit choice wins as long as the
// id still exists. Otherwise the first ready model, then the first downloaded
// model, then the first record in insertion order. It returns "" when recs
// is empty.
func Choose(recs []registry.ModelRecord, explicit string) string {
	if len(recs) == 0 {
		return ""
	}
	if explicit != "" {
		for _, r := range recs {
			if r.ID == explicit {
				return explicit
			}
		}
	}
	if id := firstIn(recs, registry.StateReady); id != "" {
		return id
	}
	if id := firstIn(recs, registry.StateDownloaded); id != "" {
		return id
	}
	return recs[0].ID
}

// IsSelected reports whether id is the model Choose would return.
func IsSelected(recs []registry.ModelRecord, explicit, id string) bool {
	return id != "" && Choose(recs, explicit) == id
}

func firstIn(recs []registry.ModelRecord, st registry.State) string {
	for _, r := range recs {
		if r.State == st {
			return r.ID
		}
	}
	return ""
}
