// Package ingest pulls marketplace events from Nostr relays and feeds them
// into the event store on a fixed cadence.
package ingest

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/synvya/nostrmarket/pkg/store"
)

// DefaultRelays are queried when no relay list is configured.
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nos.lol",
	"wss://relay.snort.social",
}

const fetchLimit = 5000

// Source produces event records to be upserted. The relay-backed
// implementation is the production one; tests substitute their own.
type Source interface {
	Fetch(ctx context.Context) ([]store.EventRecord, error)
}

// RelaySource pulls business-labelled profiles and marketplace stall/product
// events from a set of relays, reading each subscription until EOSE.
// Authors, when set, narrows both subscriptions to those pubkeys.
type RelaySource struct {
	Relays  []string
	Authors []string
}

// NewRelaySource returns a RelaySource over the given relays, falling back
// to DefaultRelays when none are given.
func NewRelaySource(relays []string) *RelaySource {
	if len(relays) == 0 {
		relays = DefaultRelays
	}
	return &RelaySource{Relays: relays}
}

// Fetch runs the subscriptions and converts the received events. Individual
// relay failures are handled inside the pool; an empty result is not an
// error.
func (s *RelaySource) Fetch(ctx context.Context) ([]store.EventRecord, error) {
	pool := nostr.NewSimplePool(ctx)

	filters := nostr.Filters{
		{
			Kinds:   []int{store.KindProfile},
			Authors: s.Authors,
			Tags:    nostr.TagMap{"L": []string{"business.type"}},
			Limit:   fetchLimit,
		},
		{
			Kinds:   []int{store.KindStall, store.KindProduct},
			Authors: s.Authors,
			Limit:   fetchLimit,
		},
	}

	var out []store.EventRecord
	for ev := range pool.SubManyEose(ctx, s.Relays, filters) {
		rec, ok := toRecord(ev.Event)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	jww.DEBUG.Printf("fetched %d events from %d relays", len(out), len(s.Relays))
	return out, ctx.Err()
}

// toRecord converts a wire event, rejecting ones that cannot identify a slot.
func toRecord(ev *nostr.Event) (store.EventRecord, bool) {
	if ev == nil || ev.ID == "" || ev.PubKey == "" {
		return store.EventRecord{}, false
	}
	tags := make([][]string, 0, len(ev.Tags))
	for _, t := range ev.Tags {
		tags = append(tags, []string(t))
	}
	return store.EventRecord{
		ID:        ev.ID,
		Pubkey:    ev.PubKey,
		Kind:      ev.Kind,
		Content:   ev.Content,
		CreatedAt: int64(ev.CreatedAt),
		Tags:      tags,
	}, true
}
