// Package logo populates channel logo blobs from their source URLs.
//
// Reconciliation hands over a list of jobs and returns immediately; fetches
// run in the background, are never retried, and failures are logged and
// dropped.
package logo

import (
	"context"
)

// Job asks for the logo at URL to be copied into the blob slot of ChannelID.
type Job struct {
	ChannelID int64  `json:"channel_id"`
	URL       string `json:"url"`
}

// Dispatcher accepts logo jobs without waiting for them to complete.
// ctx only carries request values such as the logger; cancelling it does
// not cancel dispatched jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobs []Job)
}

// Sink is the blob slot a fetched logo is written to.
type Sink interface {
	PutChannelLogo(ctx context.Context, channelID int64, content []byte, contentType string) error
	GetChannelLogo(ctx context.Context, channelID int64) ([]byte, string, error)
}
