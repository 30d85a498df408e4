package reconcile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/voyagen/tvlineup/internal/codec"
	"github.com/voyagen/tvlineup/internal/models"
)

var (
	// ErrInputRequired is returned when a pass names no input source.
	ErrInputRequired = errors.New("input id is required")
	// ErrDuplicateNetworkID is returned when two desired channels share an original network id.
	ErrDuplicateNetworkID = errors.New("duplicate original network id")
)

// Kind is the type of a catalog mutation.
type Kind int

const (
	Insert Kind = iota
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Mutation is one write against the catalog. RowID is set for updates and
// deletes; Channel is set for inserts and updates.
type Mutation struct {
	Kind    Kind
	RowID   int64
	Channel models.Channel
}

// Plan is the ordered list of mutations for one pass: inserts and updates
// in lineup order, then deletes by ascending row id.
type Plan struct {
	InputID   string
	Mutations []Mutation
}

// Count returns the number of mutations of kind k.
func (p Plan) Count(k Kind) int {
	n := 0
	for _, m := range p.Mutations {
		if m.Kind == k {
			n++
		}
	}
	return n
}

// Defaults fills fields the catalog requires but a feed may omit.
type Defaults struct {
	// PackageName owns channels that do not name a package.
	PackageName string
}

// Validate checks the arguments of a pass without touching the store.
func Validate(inputID string, desired []models.Channel) error {
	if inputID == "" {
		return ErrInputRequired
	}
	seen := make(map[int]string, len(desired))
	for _, ch := range desired {
		if prev, ok := seen[ch.OriginalNetworkID]; ok {
			return fmt.Errorf("%w: %d (channels %q and %q)", ErrDuplicateNetworkID, ch.OriginalNetworkID, prev, ch.DisplayNumber)
		}
		seen[ch.OriginalNetworkID] = ch.DisplayNumber
	}
	return nil
}

// Diff computes the mutations that turn the partition described by index
// into desired. index is not modified.
func Diff(inputID string, desired []models.Channel, index Index, d Defaults) (Plan, error) {
	if err := Validate(inputID, desired); err != nil {
		return Plan{}, err
	}
	unclaimed := index.clone()
	plan := Plan{InputID: inputID, Mutations: make([]Mutation, 0, len(desired)+len(index))}

	for _, ch := range desired {
		ch = withDefaults(ch, inputID, index, d)
		rowID, ok := unclaimed[ch.OriginalNetworkID]
		if !ok {
			plan.Mutations = append(plan.Mutations, Mutation{Kind: Insert, Channel: ch})
			continue
		}
		plan.Mutations = append(plan.Mutations, Mutation{Kind: Update, RowID: rowID, Channel: ch})
		delete(unclaimed, ch.OriginalNetworkID)
	}

	stale := make([]int64, 0, len(unclaimed))
	for _, rowID := range unclaimed {
		stale = append(stale, rowID)
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	for _, rowID := range stale {
		plan.Mutations = append(plan.Mutations, Mutation{Kind: Delete, RowID: rowID})
	}
	return plan, nil
}

// withDefaults returns ch with required fields filled. The input id is
// always the pass's: a row never lands in another partition.
func withDefaults(ch models.Channel, inputID string, index Index, d Defaults) models.Channel {
	ch.InputID = inputID
	if ch.PackageName == "" {
		ch.PackageName = d.PackageName
	}
	if ch.Type == "" {
		ch.Type = models.TypeOther
	}
	if !ch.HasID() {
		// Advisory only; writes are keyed by the index match below.
		if rowID, ok := index[ch.OriginalNetworkID]; ok {
			ch.ID = rowID
		} else {
			ch.ID = models.NoID
		}
	}
	if ch.VideoFormat == "" && ch.VideoHeight > 0 {
		if f, ok := codec.VideoFormatForHeight(ch.VideoHeight); ok {
			ch.VideoFormat = f
		}
	}
	return ch
}
