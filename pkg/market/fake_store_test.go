package market

import (
	"context"
	"sort"

	"github.com/synvya/nostrmarket/pkg/store"
)

// fakeStore is an in-memory EventStore for read-layer tests.
type fakeStore struct {
	rows []store.EventRecord
}

func (f *fakeStore) UpsertEvent(_ context.Context, e store.EventRecord) (bool, error) {
	f.rows = append(f.rows, e)
	return true, nil
}

func (f *fakeStore) ResourceRows(_ context.Context, kind int, pubkey, dTag string) ([]store.EventRecord, error) {
	out := []store.EventRecord{}
	for _, r := range f.rows {
		if r.Kind != kind || r.Pubkey != pubkey {
			continue
		}
		if dTag != "" && r.DTag != dTag {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (f *fakeStore) KindRows(_ context.Context, kind int, pubkey string) ([]store.EventRecord, error) {
	out := []store.EventRecord{}
	for _, r := range f.rows {
		if r.Kind != kind {
			continue
		}
		if pubkey != "" && r.Pubkey != pubkey {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (f *fakeStore) CountByKind(_ context.Context, kind int) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ClearAll(context.Context) error {
	f.rows = nil
	return nil
}
