package ingest

import (
	"context"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/synvya/nostrmarket/pkg/store"
)

// DefaultInterval is the refresh cadence when none is configured.
const DefaultInterval = 300 * time.Second

// Status is a snapshot of the refresher's state.
type Status struct {
	Running         bool   `json:"running"`
	IntervalSeconds int64  `json:"interval_seconds"`
	LastRefresh     int64  `json:"last_refresh,omitempty"`
	NextRefresh     int64  `json:"next_refresh,omitempty"`
	LastCount       int    `json:"last_count"`
	LastError       string `json:"last_error,omitempty"`
}

// Refresher periodically pulls from a Source and upserts into the store.
// A failing upsert is logged and skipped; the loop never dies because one
// event was bad.
type Refresher struct {
	source   Source
	store    store.EventStore
	interval time.Duration

	mu     sync.Mutex
	status Status
}

// NewRefresher wires a source to a store. interval <= 0 selects
// DefaultInterval.
func NewRefresher(src Source, es store.EventStore, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		source:   src,
		store:    es,
		interval: interval,
		status:   Status{IntervalSeconds: int64(interval / time.Second)},
	}
}

// RunOnce performs a single fetch-and-upsert pass and returns how many rows
// were inserted or replaced.
func (r *Refresher) RunOnce(ctx context.Context) (int, error) {
	events, err := r.source.Fetch(ctx)
	if err != nil {
		r.record(0, err)
		return 0, err
	}
	count := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			r.record(count, ctx.Err())
			return count, ctx.Err()
		}
		changed, err := r.store.UpsertEvent(ctx, ev)
		if err != nil {
			jww.WARN.Printf("upsert of event %s failed: %v", ev.ID, err)
			continue
		}
		if changed {
			count++
		}
	}
	jww.INFO.Printf("refresh pass: %d of %d events changed the store", count, len(events))
	r.record(count, nil)
	return count, nil
}

// Run refreshes immediately and then on every interval tick until the
// context is cancelled. Each upsert is atomic, so cancellation between
// events leaves the store consistent.
func (r *Refresher) Run(ctx context.Context) {
	r.setRunning(true)
	defer r.setRunning(false)

	if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
		jww.ERROR.Printf("initial refresh failed: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				jww.ERROR.Printf("refresh failed: %v", err)
			}
		}
	}
}

// Status returns a snapshot of the refresher's state.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Refresher) record(count int, err error) {
	now := time.Now().Unix()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.LastRefresh = now
	r.status.NextRefresh = now + r.status.IntervalSeconds
	r.status.LastCount = count
	if err != nil {
		r.status.LastError = err.Error()
	} else {
		r.status.LastError = ""
	}
}

func (r *Refresher) setRunning(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Running = v
}
