// Package store defines the persistence contracts for Nostr market events.
// Implementations provide replaceable-event upsert semantics: at most one row
// exists per (kind, pubkey, d_tag) slot, and the stored row always carries
// the greatest created_at ever offered for that slot.
package store

import (
	"context"
	"encoding/json"
)

// Event kinds handled by the bridge.
const (
	KindProfile = 0     // NIP-01 metadata, replaceable
	KindStall   = 30017 // NIP-15 stall, parameterized-replaceable
	KindProduct = 30018 // NIP-15 product, parameterized-replaceable
)

// EventRecord is the persisted representation of one Nostr event.
// Content is stored as received; it is decoded lazily by the read layer.
// DTag is the value of the first "d" tag, or "" for kind-0 rows.
type EventRecord struct {
	ID        string
	Pubkey    string
	Kind      int
	Content   string
	CreatedAt int64
	DTag      string
	Tags      [][]string
}

// TagsJSON returns the tags serialized for storage.
func (e EventRecord) TagsJSON() ([]byte, error) {
	if e.Tags == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.Tags)
}

// EventStore persists events and serves the slot/range reads the resolver
// and search layers need.
type EventStore interface {
	// UpsertEvent inserts the event or replaces the row occupying its slot
	// when the incoming created_at is strictly greater. changed reports
	// whether the stored row was inserted or replaced; a no-op because the
	// incoming event is older or identical returns (false, nil).
	UpsertEvent(ctx context.Context, e EventRecord) (changed bool, err error)

	// ResourceRows returns all rows for (kind, pubkey), optionally narrowed
	// to one d_tag (dTag != ""), ordered by created_at descending. A miss is
	// an empty slice, not an error.
	ResourceRows(ctx context.Context, kind int, pubkey, dTag string) ([]EventRecord, error)

	// KindRows returns all rows of a kind, optionally narrowed to one
	// pubkey, ordered by created_at descending, for search scans.
	KindRows(ctx context.Context, kind int, pubkey string) ([]EventRecord, error)

	// CountByKind returns the number of stored rows for a kind.
	CountByKind(ctx context.Context, kind int) (int64, error)

	// ClearAll removes every stored row. Used by admin tooling and tests.
	ClearAll(ctx context.Context) error
}

// Store is the full persistence surface with explicit lifecycle.
type Store interface {
	EventStore
	Migrate(ctx context.Context) error
	Close() error
}
