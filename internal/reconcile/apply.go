package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/voyagen/tvlineup/internal/logging"
	"github.com/voyagen/tvlineup/internal/logo"
	"github.com/voyagen/tvlineup/internal/store"
)

// ErrRowVanished is returned when an update matches no row, i.e. the row
// was deleted after the index was built. Re-running the pass converges.
var ErrRowVanished = errors.New("catalog row vanished during pass")

// Result summarizes an applied plan.
type Result struct {
	PassID   string     `json:"pass_id,omitempty"`
	InputID  string     `json:"input_id"`
	Inserted []int64    `json:"inserted"`
	Updated  []int64    `json:"updated"`
	Deleted  []int64    `json:"deleted"`
	Logos    []logo.Job `json:"logos"`
}

// Apply issues the mutations of plan against s in order and stops at the
// first error. Channels with a logo URL yield a logo job for their
// resulting row id.
func Apply(ctx context.Context, s store.Store, plan Plan) (*Result, error) {
	log := logging.FromContext(ctx)
	res := &Result{
		InputID:  plan.InputID,
		Inserted: []int64{},
		Updated:  []int64{},
		Deleted:  []int64{},
		Logos:    []logo.Job{},
	}

	for _, m := range plan.Mutations {
		switch m.Kind {
		case Insert:
			ch := m.Channel
			rowID, err := s.InsertChannel(ctx, &ch)
			if err != nil {
				return nil, fmt.Errorf("insert channel %q: %w", ch.DisplayNumber, err)
			}
			log.Debug().Int64("channel_id", rowID).Str("name", ch.DisplayName).Msg("adding channel")
			res.Inserted = append(res.Inserted, rowID)
			res.addLogo(rowID, ch.Logo)

		case Update:
			ch := m.Channel
			n, err := s.UpdateChannel(ctx, m.RowID, &ch)
			if err != nil {
				return nil, fmt.Errorf("update channel %d: %w", m.RowID, err)
			}
			if n == 0 {
				return nil, fmt.Errorf("update channel %d: %w", m.RowID, ErrRowVanished)
			}
			log.Debug().Int64("channel_id", m.RowID).Str("name", ch.DisplayName).Msg("updating channel")
			res.Updated = append(res.Updated, m.RowID)
			res.addLogo(m.RowID, ch.Logo)

		case Delete:
			n, err := s.DeleteChannel(ctx, m.RowID)
			if err != nil {
				return nil, fmt.Errorf("delete channel %d: %w", m.RowID, err)
			}
			if n == 0 {
				continue
			}
			log.Debug().Int64("channel_id", m.RowID).Msg("deleting channel")
			res.Deleted = append(res.Deleted, m.RowID)
		}
	}
	return res, nil
}

func (r *Result) addLogo(rowID int64, url string) {
	if url == "" {
		return
	}
	r.Logos = append(r.Logos, logo.Job{ChannelID: rowID, URL: url})
}
