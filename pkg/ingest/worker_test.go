package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synvya/nostrmarket/pkg/errmodel"
	"github.com/synvya/nostrmarket/pkg/store"
)

type fakeSource struct {
	events []store.EventRecord
	err    error
	calls  int
}

func (f *fakeSource) Fetch(context.Context) ([]store.EventRecord, error) {
	f.calls++
	return f.events, f.err
}

type recordingStore struct {
	upserts []store.EventRecord
	failIDs map[string]bool
	noops   map[string]bool
}

func (r *recordingStore) UpsertEvent(_ context.Context, e store.EventRecord) (bool, error) {
	if r.failIDs[e.ID] {
		return false, errmodel.Storage("upsert_failed", "injected", nil, nil)
	}
	r.upserts = append(r.upserts, e)
	return !r.noops[e.ID], nil
}

func (r *recordingStore) ResourceRows(context.Context, int, string, string) ([]store.EventRecord, error) {
	return nil, nil
}
func (r *recordingStore) KindRows(context.Context, int, string) ([]store.EventRecord, error) {
	return nil, nil
}
func (r *recordingStore) CountByKind(context.Context, int) (int64, error) { return 0, nil }
func (r *recordingStore) ClearAll(context.Context) error                  { return nil }

func TestRunOnceCountsChangedRows(t *testing.T) {
	src := &fakeSource{events: []store.EventRecord{
		{ID: "e1", Pubkey: "P", Kind: 0, Content: "{}", CreatedAt: 100},
		{ID: "e2", Pubkey: "P", Kind: 0, Content: "{}", CreatedAt: 50},
	}}
	st := &recordingStore{noops: map[string]bool{"e2": true}}
	r := NewRefresher(src, st, time.Minute)

	n, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("changed=%d want 1 (older event is a no-op)", n)
	}
	if len(st.upserts) != 2 {
		t.Fatalf("upserts=%d want every event offered", len(st.upserts))
	}

	status := r.Status()
	if status.LastCount != 1 || status.LastRefresh == 0 || status.LastError != "" {
		t.Fatalf("status=%+v", status)
	}
	if status.IntervalSeconds != 60 {
		t.Fatalf("interval=%d want 60", status.IntervalSeconds)
	}
}

func TestRunOnceSkipsFailedUpserts(t *testing.T) {
	src := &fakeSource{events: []store.EventRecord{
		{ID: "bad", Pubkey: "P", Kind: 0, Content: "{}", CreatedAt: 100},
		{ID: "good", Pubkey: "Q", Kind: 0, Content: "{}", CreatedAt: 100},
	}}
	st := &recordingStore{failIDs: map[string]bool{"bad": true}}
	r := NewRefresher(src, st, time.Minute)

	n, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("a failing upsert must not fail the pass: %v", err)
	}
	if n != 1 {
		t.Fatalf("changed=%d want 1", n)
	}
	if len(st.upserts) != 1 || st.upserts[0].ID != "good" {
		t.Fatalf("upserts=%+v", st.upserts)
	}
}

func TestRunOnceSourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("relay unreachable")}
	r := NewRefresher(src, &recordingStore{}, time.Minute)

	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if got := r.Status().LastError; got == "" {
		t.Fatal("status must record the fetch error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	r := NewRefresher(src, &recordingStore{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// Wait for the initial pass, then cancel.
	deadline := time.After(2 * time.Second)
	for src.calls == 0 {
		select {
		case <-deadline:
			t.Fatal("initial refresh never ran")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	if !r.Status().Running {
		t.Fatal("status must report running")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if r.Status().Running {
		t.Fatal("status must report stopped")
	}
}

func TestDefaultInterval(t *testing.T) {
	r := NewRefresher(&fakeSource{}, &recordingStore{}, 0)
	if r.interval != DefaultInterval {
		t.Fatalf("interval=%v want %v", r.interval, DefaultInterval)
	}
	if r.Status().IntervalSeconds != 300 {
		t.Fatalf("interval_seconds=%d want 300", r.Status().IntervalSeconds)
	}
}
