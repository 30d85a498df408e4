package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/voyagen/tvlineup/internal/logging"
	"github.com/voyagen/tvlineup/internal/logo"
	"github.com/voyagen/tvlineup/internal/models"
	"github.com/voyagen/tvlineup/internal/store"
)

// Locker serializes passes per input source across processes.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// Service runs reconciliation passes.
type Service struct {
	store    store.Store
	logos    logo.Dispatcher // nil disables logo population
	locker   Locker          // nil: concurrent passes on one input are not guarded
	defaults Defaults
}

// NewService creates a Service. logos and locker may be nil.
func NewService(s store.Store, logos logo.Dispatcher, locker Locker, d Defaults) *Service {
	return &Service{store: s, logos: logos, locker: locker, defaults: d}
}

// Sync reconciles the partition of inputID with channels. The index scan
// and every mutation run in one store transaction; logo jobs are dispatched
// after commit and not waited for.
func (s *Service) Sync(ctx context.Context, inputID string, channels []models.Channel) (*Result, error) {
	if err := Validate(inputID, channels); err != nil {
		return nil, err
	}
	passID := uuid.NewString()
	ctx = logging.WithFields(ctx, "input_id", inputID, "pass_id", passID)
	log := logging.FromContext(ctx)

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, inputID)
		if err != nil {
			return nil, fmt.Errorf("lock input %q: %w", inputID, err)
		}
		defer unlock()
	}

	var res *Result
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		idx, err := BuildIndex(ctx, tx, inputID)
		if err != nil {
			return err
		}
		plan, err := Diff(inputID, channels, idx, s.defaults)
		if err != nil {
			return err
		}
		log.Debug().
			Int("existing", len(idx)).
			Int("insert", plan.Count(Insert)).
			Int("update", plan.Count(Update)).
			Int("delete", plan.Count(Delete)).
			Msg("plan computed")
		res, err = Apply(ctx, tx, plan)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("reconciliation failed")
		return nil, err
	}
	res.PassID = passID

	if s.logos != nil && len(res.Logos) > 0 {
		s.logos.Dispatch(ctx, res.Logos)
	}
	log.Info().
		Int("inserted", len(res.Inserted)).
		Int("updated", len(res.Updated)).
		Int("deleted", len(res.Deleted)).
		Int("logos", len(res.Logos)).
		Msg("reconciliation done")
	return res, nil
}
