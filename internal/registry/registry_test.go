package registry

import (
	"testing"

	"modelsync/pkg/types"
)

func TestApplyFullSnapshot_AddsAndMerges(t *testing.T) {
	r := New()
	ch := r.ApplyFullSnapshot([]ModelRecord{
		{ID: "m1", State: StateReady, Progress: prog(100)},
		{ID: "m2", State: StateNotDownloaded, ErrorMessage: "ignored"},
	})
	if len(ch) != 2 || ch[0].Outcome != OutcomeAdded || ch[1].Outcome != OutcomeAdded {
		t.Fatalf("unexpected changes: %+v", ch)
	}
	m1, _ := r.Get("m1")
	if m1.Progress != nil {
		t.Fatalf("progress must be dropped outside downloading: %+v", m1.Progress)
	}
	m2, _ := r.Get("m2")
	if m2.ErrorMessage != "" {
		t.Fatalf("error message must be dropped outside error: %q", m2.ErrorMessage)
	}

	// A later snapshot that omits m2 and reports a stale state for m1.
	ch = r.ApplyFullSnapshot([]ModelRecord{{ID: "m1", State: StateDownloaded, Metadata: Metadata{Name: "Model One"}}})
	if ch[0].Outcome != OutcomeStale {
		t.Fatalf("expected stale, got %s", ch[0].Outcome)
	}
	m1, _ = r.Get("m1")
	if m1.State != StateReady || m1.Name != "Model One" {
		t.Fatalf("unexpected m1: %+v", m1)
	}
	if !r.Has("m2") || r.Len() != 2 {
		t.Fatalf("absent snapshot ids must be retained")
	}
}

func TestApplyPushUpdate_UnknownIgnored(t *testing.T) {
	r := New()
	ch := r.ApplyPushUpdate("ghost", Update{State: StateReady})
	if ch.Outcome != OutcomeUnknown {
		t.Fatalf("expected unknown, got %s", ch.Outcome)
	}
	if r.Len() != 0 {
		t.Fatalf("unknown update must not create a record")
	}
}

func TestApplyPushUpdate_Idempotent(t *testing.T) {
	r := New()
	r.ApplyFullSnapshot([]ModelRecord{{ID: "m", State: StateNotDownloaded}})
	u := Update{State: StateDownloading, Progress: prog(30)}
	r.ApplyPushUpdate("m", u)
	once, _ := r.Get("m")
	ch := r.ApplyPushUpdate("m", u)
	twice, _ := r.Get("m")
	if !once.Equal(twice) {
		t.Fatalf("second application changed the record: %+v vs %+v", once, twice)
	}
	if ch.Changed() {
		t.Fatalf("second application should report no change")
	}
}

func TestStaleNotDownloadedKeepsProgress(t *testing.T) {
	r := New()
	r.ApplyFullSnapshot([]ModelRecord{{ID: "m", State: StateNotDownloaded}})
	r.ApplyPushUpdate("m", Update{State: StateDownloading, Progress: prog(42)})
	ch := r.ApplyPushUpdate("m", Update{State: StateNotDownloaded})
	if ch.Outcome != OutcomeStale {
		t.Fatalf("expected stale, got %s", ch.Outcome)
	}
	got, _ := r.Get("m")
	if got.State != StateDownloading || got.Progress == nil || got.Progress.DownloadedBytes != 42 {
		t.Fatalf("progress lost: %+v", got)
	}
}

func TestErrorThenFreshDownloadingClearsError(t *testing.T) {
	r := New()
	r.ApplyFullSnapshot([]ModelRecord{{ID: "m3", State: StateLoading}})
	r.ApplyPushUpdate("m3", Update{State: StateError, Error: "out of memory"})
	got, _ := r.Get("m3")
	if got.State != StateError || got.ErrorMessage != "out of memory" {
		t.Fatalf("error not applied: %+v", got)
	}
	r.ApplyPushUpdate("m3", Update{State: StateDownloading})
	got, _ = r.Get("m3")
	if got.State != StateDownloading || got.ErrorMessage != "" {
		t.Fatalf("error not cleared: %+v", got)
	}
}

func TestRecordsPreserveInsertionOrder(t *testing.T) {
	r := New()
	r.ApplyFullSnapshot([]ModelRecord{{ID: "b", State: StateReady}, {ID: "a", State: StateReady}})
	r.ApplyFullSnapshot([]ModelRecord{{ID: "c", State: StateReady}, {ID: "a", State: StateReady}})
	recs := r.Records()
	if len(recs) != 3 || recs[0].ID != "b" || recs[1].ID != "a" || recs[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", recs)
	}
	recs[0].State = StateError
	if b, _ := r.Get("b"); b.State != StateReady {
		t.Fatalf("registry mutated via returned slice")
	}
}

func TestWireConversions(t *testing.T) {
	errMsg := "network down"
	rec, err := RecordFromModel(types.Model{ID: "m", Name: "M", State: "error", Error: &errMsg, Progress: &types.Progress{}})
	if err != nil {
		t.Fatalf("RecordFromModel: %v", err)
	}
	if rec.State != StateError || rec.ErrorMessage != errMsg || rec.Progress != nil || rec.Name != "M" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, err := RecordFromModel(types.Model{ID: "m", State: "unknown"}); err == nil {
		t.Fatalf("expected error for unknown state")
	}
	recs, errs := RecordsFromModels([]types.Model{{ID: "a", State: "ready"}, {State: "ready"}})
	if len(recs) != 1 || len(errs) != 1 {
		t.Fatalf("recs=%d errs=%d", len(recs), len(errs))
	}

	u, err := UpdateFromStatus(types.ModelStatusMessage{ModelID: "m", State: "downloading", Progress: &types.Progress{TotalSize: 10, DownloadedSize: 5}})
	if err != nil {
		t.Fatalf("UpdateFromStatus: %v", err)
	}
	if u.State != StateDownloading || u.Progress == nil || u.Progress.Completion() != 50 {
		t.Fatalf("unexpected update: %+v", u)
	}
	v := ModelRecord{ID: "m", State: StateDownloading, Progress: u.Progress}.View(true)
	if !v.IsSelected || v.Progress == nil || v.Progress.Percent != 50 {
		t.Fatalf("unexpected view: %+v", v)
	}
}
