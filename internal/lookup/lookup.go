// Package lookup serves read-only queries over the channel catalog.
//
// List operations degrade gracefully: a store failure is logged and an
// empty result returned. MapRowIDToChannel is strict and propagates every
// failure.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/voyagen/tvlineup/internal/codec"
	"github.com/voyagen/tvlineup/internal/logging"
	"github.com/voyagen/tvlineup/internal/models"
	"github.com/voyagen/tvlineup/internal/store"
)

// ErrQuery is returned by MapRowIDToChannel when the catalog cannot be read.
var ErrQuery = errors.New("catalog query failed")

// Reader is the subset of store.Store the lookups need.
type Reader interface {
	ChannelKeys(ctx context.Context, inputID string) ([]models.ChannelKey, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)
	ListPrograms(ctx context.Context, channelID int64) ([]models.Program, error)
}

var _ Reader = (store.Store)(nil)

// ListChannels returns every channel in the catalog. Never nil.
func ListChannels(ctx context.Context, r Reader) []models.Channel {
	channels, err := r.ListChannels(ctx)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("list channels")
		return []models.Channel{}
	}
	if channels == nil {
		return []models.Channel{}
	}
	return channels
}

// ListPrograms returns the programs of channelID by start time. Never nil.
func ListPrograms(ctx context.Context, r Reader, channelID int64) []models.Program {
	programs, err := r.ListPrograms(ctx, channelID)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Int64("channel_id", channelID).Msg("list programs")
		return []models.Program{}
	}
	if programs == nil {
		return []models.Program{}
	}
	sort.SliceStable(programs, func(i, j int) bool {
		return programs[i].StartTime.Before(programs[j].StartTime)
	})
	return programs
}

// CurrentProgram returns the first program of channelID airing at now.
func CurrentProgram(ctx context.Context, r Reader, channelID int64, now time.Time) (*models.Program, bool) {
	for _, p := range ListPrograms(ctx, r, channelID) {
		if p.Airing(now) {
			return &p, true
		}
	}
	return nil, false
}

// Schedule is what a channel is airing at an instant.
type Schedule struct {
	Current *models.Program `json:"current,omitempty"`
	Next    *models.Program `json:"next,omitempty"`
}

// NowPlaying returns the program airing at now and the first one starting
// after it. Next is set even when nothing airs at now.
func NowPlaying(ctx context.Context, r Reader, channelID int64, now time.Time) Schedule {
	var s Schedule
	for _, p := range ListPrograms(ctx, r, channelID) {
		switch {
		case s.Current == nil && p.Airing(now):
			s.Current = &p
		case s.Next == nil && p.StartTime.After(now):
			s.Next = &p
		}
		if s.Next != nil {
			break
		}
	}
	return s
}

// MapRowIDToChannel resolves every catalog row of inputID to the desired
// channel with the same display number. It returns a nil map when the input
// source has no rows. A row whose display number is not in desired fails
// the whole call with a *codec.UnknownKeyError.
func MapRowIDToChannel(ctx context.Context, r Reader, inputID string, desired []models.Channel) (map[int64]models.Channel, error) {
	keys, err := r.ChannelKeys(ctx, inputID)
	if err != nil {
		return nil, fmt.Errorf("%w: input %q: %w", ErrQuery, inputID, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	byNumber := make(map[string]models.Channel, len(desired))
	for _, ch := range desired {
		if _, ok := byNumber[ch.DisplayNumber]; !ok {
			byNumber[ch.DisplayNumber] = ch
		}
	}
	out := make(map[int64]models.Channel, len(keys))
	for _, k := range keys {
		ch, ok := byNumber[k.DisplayNumber]
		if !ok {
			return nil, fmt.Errorf("MapRowIDToChannel: row %d: %w", k.RowID, &codec.UnknownKeyError{Kind: "channel", Key: k.DisplayNumber})
		}
		out[k.RowID] = ch
	}
	return out, nil
}
