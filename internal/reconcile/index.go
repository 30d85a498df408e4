// Package reconcile brings the catalog partition of one input source into
// agreement with a desired channel lineup.
//
// A pass builds an Index of the rows currently stored for the input source,
// diffs the lineup against it into a Plan of inserts, updates and deletes,
// and applies the plan through the store. Matching is by original network id
// only; matched rows are updated in place so their row ids survive.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/voyagen/tvlineup/internal/store"
)

// ErrIndexQuery marks a failure to read the current catalog state. A pass
// never proceeds without an index: an empty one would delete every row.
var ErrIndexQuery = errors.New("catalog index query failed")

// Index maps original network id to catalog row id for one input source.
type Index map[int]int64

// BuildIndex scans the rows of inputID.
func BuildIndex(ctx context.Context, s store.Store, inputID string) (Index, error) {
	keys, err := s.ChannelKeys(ctx, inputID)
	if err != nil {
		return nil, fmt.Errorf("%w: input %q: %w", ErrIndexQuery, inputID, err)
	}
	idx := make(Index, len(keys))
	for _, k := range keys {
		idx[k.OriginalNetworkID] = k.RowID
	}
	return idx, nil
}

func (idx Index) clone() Index {
	c := make(Index, len(idx))
	for k, v := range idx {
		c[k] = v
	}
	return c
}
