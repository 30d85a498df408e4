package feed

import (
	"context"
	"fmt"

	"github.com/voyagen/tvlineup/internal/lookup"
	"github.com/voyagen/tvlineup/internal/store"
)

// StorePrograms replaces the schedule of every catalog row of inputID with
// the programs l lists for the row's display number. Rows the lineup has
// no programs for get an empty schedule. It returns the number of programs
// written. A lineup whose programs sit under a display number shared by
// several channels is rejected before anything is written.
func StorePrograms(ctx context.Context, s store.Store, inputID string, l *Lineup) (int, error) {
	if err := l.checkProgramNumbers(); err != nil {
		return 0, err
	}
	n := 0
	err := s.WithTx(ctx, func(tx store.Store) error {
		rows, err := lookup.MapRowIDToChannel(ctx, tx, inputID, l.Channels)
		if err != nil {
			return err
		}
		for rowID, ch := range rows {
			programs := l.Programs[ch.DisplayNumber]
			if err := tx.ReplacePrograms(ctx, rowID, programs); err != nil {
				return fmt.Errorf("ReplacePrograms: %w", err)
			}
			n += len(programs)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
