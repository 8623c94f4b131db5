package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := OpenBolt(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := openTestStore(t)
	for i, kind := range []string{KindState, KindGenerator, KindResponse} {
		rec := Record{
			ID:        string(rune('a' + i)),
			Timestamp: time.Unix(int64(i), 0).UTC(),
			Kind:      kind,
			Detail:    kind + " detail",
		}
		if err := store.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := store.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0].Kind != KindState || records[2].Kind != KindResponse {
		t.Fatalf("order = %v, %v, %v", records[0].Kind, records[1].Kind, records[2].Kind)
	}

	records, err = store.List(2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Kind != KindGenerator || records[1].Kind != KindResponse {
		t.Fatalf("limited order = %v, %v", records[0].Kind, records[1].Kind)
	}
}

func TestEmitterWritesRecord(t *testing.T) {
	store := openTestStore(t)
	e := NewEmitter(store)
	e.clock = func() time.Time { return time.Unix(100, 0) }
	e.newID = func() string { return "fixed-id" }

	e.Emit(KindState, "Idle")
	records, err := store.List(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ID != "fixed-id" || rec.Kind != KindState || rec.Detail != "Idle" {
		t.Fatalf("record = %+v", rec)
	}
	if !rec.Timestamp.Equal(time.Unix(100, 0).UTC()) {
		t.Fatalf("timestamp = %v", rec.Timestamp)
	}
}

func TestNilEmitterIsNoOp(t *testing.T) {
	var e *Emitter
	e.Emit(KindState, "ignored")
	NewEmitter(nil).Emit(KindState, "ignored")
}
