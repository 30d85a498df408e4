// Package service composes feed loading, reconciliation and EPG loading
// into one ingest operation.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/voyagen/tvlineup/internal/feed"
	"github.com/voyagen/tvlineup/internal/reconcile"
	"github.com/voyagen/tvlineup/internal/store"
)

// Report is the outcome of one ingest.
type Report struct {
	*reconcile.Result
	Programs int `json:"programs"`
}

// Ingest loads the lineup at location and reconciles the catalog partition
// of inputID with it, then replaces the schedules of the reconciled
// channels with the lineup's programs. inputID overrides the input id the
// document names; one of the two must be set.
func Ingest(ctx context.Context, s store.Store, svc *reconcile.Service, location, inputID, userAgent string, timeout time.Duration) (*Report, error) {
	if location == "" {
		return nil, fmt.Errorf("feed location is required")
	}
	l, err := feed.Load(ctx, location, userAgent, timeout)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if inputID == "" {
		inputID = l.InputID
	}

	res, err := svc.Sync(ctx, inputID, l.Channels)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	// The catalog is already committed; a program failure leaves the
	// channels in place and is reported to the caller.
	n, err := feed.StorePrograms(ctx, s, inputID, l)
	if err != nil {
		return &Report{Result: res}, fmt.Errorf("StorePrograms: %w", err)
	}
	return &Report{Result: res, Programs: n}, nil
}
