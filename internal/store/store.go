package store

import (
	"context"
	"errors"

	"github.com/voyagen/tvlineup/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines persistence for the channel catalog, programs and logos.
type Store interface {
	// ChannelKeys returns (row id, network id, display number) for every channel of inputID.
	ChannelKeys(ctx context.Context, inputID string) ([]models.ChannelKey, error)
	// InsertChannel inserts a channel row; returns the store-assigned row id.
	InsertChannel(ctx context.Context, ch *models.Channel) (int64, error)
	// UpdateChannel overwrites all fields of row rowID; returns the affected row count.
	UpdateChannel(ctx context.Context, rowID int64, ch *models.Channel) (int64, error)
	// DeleteChannel deletes row rowID (programs and logo cascade); returns the affected row count.
	DeleteChannel(ctx context.Context, rowID int64) (int64, error)

	// ListChannels returns every channel in the catalog ordered by row id.
	ListChannels(ctx context.Context) ([]models.Channel, error)
	// GetChannel returns a single channel by row id.
	GetChannel(ctx context.Context, rowID int64) (*models.Channel, error)

	// ListPrograms returns the programs of a channel ordered by start time.
	ListPrograms(ctx context.Context, channelID int64) ([]models.Program, error)
	// ReplacePrograms replaces the whole schedule of a channel.
	ReplacePrograms(ctx context.Context, channelID int64, programs []models.Program) error

	// PutChannelLogo writes the logo blob of a channel.
	PutChannelLogo(ctx context.Context, channelID int64, content []byte, contentType string) error
	// GetChannelLogo reads the logo blob of a channel.
	GetChannelLogo(ctx context.Context, channelID int64) ([]byte, string, error)

	// WithTx runs fn against a transaction-scoped Store. fn's error rolls back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
