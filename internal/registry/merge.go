package registry

// Outcome describes what a merge did to a record.
type Outcome string

const (
	// OutcomeAdded: a snapshot introduced a previously unknown id.
	OutcomeAdded Outcome = "added"
	// OutcomeApplied: state (and possibly progress) replaced.
	OutcomeApplied Outcome = "applied"
	// OutcomeProgressOnly: a stale state was ignored but its progress was kept.
	OutcomeProgressOnly Outcome = "progress_only"
	// OutcomeStale: the update described an older state and was ignored.
	OutcomeStale Outcome = "stale"
	// OutcomeUnknown: push update for an id the registry does not know.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeInvalid: the update carried an unrecognized state.
	OutcomeInvalid Outcome = "invalid"
)

// defaultErrorMessage is used when an error update carries no message.
const defaultErrorMessage = "unknown error"

// merge applies u to c following the rank rules:
//
//  1. error updates replace the record wholesale;
//  2. any non-error update to an errored (or reset) record replaces it wholesale;
//  3. an update of equal or higher rank replaces state and error, and replaces
//     progress only when present;
//  4. a lower-rank update is ignored except for progress, which is accepted
//     only while the record is downloading.
//
// Progress never survives a state other than downloading.
func merge(c ModelRecord, u Update) (ModelRecord, Outcome) {
	if !u.State.Valid() {
		return c, OutcomeInvalid
	}
	next := c.Clone()

	if u.State == StateError {
		next.State = StateError
		next.ErrorMessage = u.Error
		if next.ErrorMessage == "" {
			next.ErrorMessage = defaultErrorMessage
		}
		next.Progress = nil
		return next, OutcomeApplied
	}

	if c.State == StateError || u.Reset {
		next.State = u.State
		next.ErrorMessage = ""
		next.Progress = nil
		if u.State == StateDownloading {
			next.Progress = u.Progress.clone()
		}
		return next, OutcomeApplied
	}

	ur, _ := u.State.Rank()
	cr, _ := c.State.Rank()
	if ur >= cr {
		next.State = u.State
		next.ErrorMessage = ""
		switch {
		case u.State != StateDownloading:
			next.Progress = nil
		case u.Progress != nil:
			next.Progress = u.Progress.clone()
		}
		return next, OutcomeApplied
	}

	if u.Progress != nil && c.State == StateDownloading {
		next.Progress = u.Progress.clone()
		return next, OutcomeProgressOnly
	}
	return c, OutcomeStale
}

// normalize enforces the record invariants on a record entering the
// registry for the first time.
func normalize(r ModelRecord) ModelRecord {
	r = r.Clone()
	if r.State != StateDownloading {
		r.Progress = nil
	}
	if r.State == StateError {
		if r.ErrorMessage == "" {
			r.ErrorMessage = defaultErrorMessage
		}
	} else {
		r.ErrorMessage = ""
	}
	return r
}
