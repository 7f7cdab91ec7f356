package registry

// Progress holds download metrics. It is only meaningful while a model is
// downloading.
type Progress struct {
	TotalBytes      int64
	DownloadedBytes int64
	CurrentFileName string
	FilesCompleted  int
	TotalFiles      int
	BytesPerSecond  float64
	ETASeconds      float64
	// Percent as reported by the server; Completion prefers byte counts.
	Percent float64
}

// Completion returns the download completion in the range [0, 100].
func (p *Progress) Completion() float64 {
	if p == nil {
		return 0
	}
	if p.TotalBytes > 0 {
		v := float64(p.DownloadedBytes) / float64(p.TotalBytes) * 100
		if v > 100 {
			return 100
		}
		return v
	}
	return p.Percent
}

func (p *Progress) clone() *Progress {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Metadata is descriptive catalog data. It never influences lifecycle merges.
type Metadata struct {
	Name                string
	Description         string
	RecommendedSteps    int
	RecommendedGuidance float64
	SizeGB              float64
}

func (m Metadata) isZero() bool { return m == Metadata{} }

// ModelRecord is the lifecycle record of one model.
type ModelRecord struct {
	ID           string
	State        State
	Progress     *Progress
	ErrorMessage string
	Metadata
}

// Clone returns a deep copy of r.
func (r ModelRecord) Clone() ModelRecord {
	r.Progress = r.Progress.clone()
	return r
}

// Equal reports whether r and o hold the same values.
func (r ModelRecord) Equal(o ModelRecord) bool {
	if r.ID != o.ID || r.State != o.State || r.ErrorMessage != o.ErrorMessage || r.Metadata != o.Metadata {
		return false
	}
	if (r.Progress == nil) != (o.Progress == nil) {
		return false
	}
	return r.Progress == nil || *r.Progress == *o.Progress
}

// Update is a partial update for one model. A nil Progress means "absent".
type Update struct {
	State    State
	Progress *Progress
	Error    string
	// Reset forces a wholesale replacement regardless of rank. Only the
	// manager sets it, after the backend acknowledged an unload.
	Reset bool
}
