package reconcile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/tvlineup/internal/cache"
	"github.com/voyagen/tvlineup/internal/logging"
	"github.com/voyagen/tvlineup/internal/logo"
	"github.com/voyagen/tvlineup/internal/models"
	"github.com/voyagen/tvlineup/internal/store"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []logo.Job
}

func (d *recordingDispatcher) Dispatch(_ context.Context, jobs []logo.Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, jobs...)
}

type fakeLocker struct {
	held     map[string]bool
	unlocked int
}

func (l *fakeLocker) Lock(_ context.Context, name string) (func(), error) {
	if l.held[name] {
		return nil, cache.ErrLocked
	}
	return func() { l.unlocked++ }, nil
}

// failingStore fails ChannelKeys or DeleteChannel on demand.
type failingStore struct {
	store.Store
	keysErr   error
	deleteErr error
}

func (f *failingStore) ChannelKeys(ctx context.Context, inputID string) ([]models.ChannelKey, error) {
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	return f.Store.ChannelKeys(ctx, inputID)
}

func (f *failingStore) DeleteChannel(ctx context.Context, rowID int64) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.Store.DeleteChannel(ctx, rowID)
}

func (f *failingStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return f.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(&failingStore{Store: tx, keysErr: f.keysErr, deleteErr: f.deleteErr})
	})
}

func seed(t *testing.T, s store.Store, inputID string, channels ...models.Channel) []int64 {
	t.Helper()
	ids := make([]int64, len(channels))
	for i := range channels {
		ch := channels[i]
		ch.InputID = inputID
		id, err := s.InsertChannel(context.Background(), &ch)
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func networkIDs(t *testing.T, s store.Store, inputID string) map[int]int64 {
	t.Helper()
	idx, err := BuildIndex(context.Background(), s, inputID)
	require.NoError(t, err)
	return idx
}

func TestDiffUpdateAndInsert(t *testing.T) {
	idx := Index{1: 10}
	desired := []models.Channel{
		{ID: models.NoID, OriginalNetworkID: 1, DisplayNumber: "1", DisplayName: "A"},
		{ID: models.NoID, OriginalNetworkID: 2, DisplayNumber: "2", DisplayName: "B"},
	}
	plan, err := Diff("in", desired, idx, Defaults{PackageName: "com.example.tv"})
	require.NoError(t, err)

	require.Len(t, plan.Mutations, 2)
	up := plan.Mutations[0]
	assert.Equal(t, Update, up.Kind)
	assert.EqualValues(t, 10, up.RowID)
	assert.Equal(t, "A", up.Channel.DisplayName)
	assert.EqualValues(t, 10, up.Channel.ID)

	ins := plan.Mutations[1]
	assert.Equal(t, Insert, ins.Kind)
	assert.Equal(t, "B", ins.Channel.DisplayName)
	assert.Equal(t, 2, ins.Channel.OriginalNetworkID)
	assert.Equal(t, models.NoID, ins.Channel.ID)

	assert.Equal(t, 0, plan.Count(Delete))
	assert.Equal(t, Index{1: 10}, idx, "caller's index must not be modified")
}

func TestDiffEmptyDesiredDeletesAll(t *testing.T) {
	plan, err := Diff("in", nil, Index{1: 10}, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, []Mutation{{Kind: Delete, RowID: 10}}, plan.Mutations)
}

func TestDiffAppliesDefaults(t *testing.T) {
	desired := []models.Channel{
		{OriginalNetworkID: 1, InputID: "other", VideoHeight: 720},
		{OriginalNetworkID: 2, PackageName: "com.feed", Type: models.TypeDVBT, VideoHeight: 1080, VideoFormat: models.VideoFormat480P},
	}
	plan, err := Diff("in", desired, Index{}, Defaults{PackageName: "com.example.tv"})
	require.NoError(t, err)

	a := plan.Mutations[0].Channel
	assert.Equal(t, "in", a.InputID)
	assert.Equal(t, "com.example.tv", a.PackageName)
	assert.Equal(t, models.TypeOther, a.Type)
	assert.Equal(t, models.VideoFormat720P, a.VideoFormat)

	b := plan.Mutations[1].Channel
	assert.Equal(t, "com.feed", b.PackageName)
	assert.Equal(t, models.TypeDVBT, b.Type)
	assert.Equal(t, models.VideoFormat480P, b.VideoFormat)
}

func TestDiffCallerIDDoesNotOverrideMatch(t *testing.T) {
	desired := []models.Channel{{ID: 99, OriginalNetworkID: 1}}
	plan, err := Diff("in", desired, Index{1: 10}, Defaults{})
	require.NoError(t, err)
	require.Len(t, plan.Mutations, 1)
	assert.Equal(t, Update, plan.Mutations[0].Kind)
	assert.EqualValues(t, 10, plan.Mutations[0].RowID)
}

func TestDiffDeletesSortedByRowID(t *testing.T) {
	plan, err := Diff("in", nil, Index{3: 30, 1: 10, 2: 20}, Defaults{})
	require.NoError(t, err)
	var rows []int64
	for _, m := range plan.Mutations {
		rows = append(rows, m.RowID)
	}
	assert.Equal(t, []int64{10, 20, 30}, rows)
}

func TestDiffValidation(t *testing.T) {
	_, err := Diff("", nil, Index{}, Defaults{})
	assert.ErrorIs(t, err, ErrInputRequired)

	_, err = Diff("in", []models.Channel{{OriginalNetworkID: 1}, {OriginalNetworkID: 1}}, Index{}, Defaults{})
	assert.ErrorIs(t, err, ErrDuplicateNetworkID)
}

func TestBuildIndexScopedToInput(t *testing.T) {
	s := store.NewMemory()
	a := seed(t, s, "a", models.Channel{OriginalNetworkID: 1}, models.Channel{OriginalNetworkID: 2})
	seed(t, s, "b", models.Channel{OriginalNetworkID: 3})

	idx, err := BuildIndex(context.Background(), s, "a")
	require.NoError(t, err)
	assert.Equal(t, Index{1: a[0], 2: a[1]}, idx)
}

func TestBuildIndexFailureIsFatal(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := BuildIndex(context.Background(), &failingStore{Store: store.NewMemory(), keysErr: boom}, "a")
	assert.ErrorIs(t, err, ErrIndexQuery)
	assert.ErrorIs(t, err, boom)
}

func TestSyncScenarioUpdateAndInsert(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	ids := seed(t, s, "in", models.Channel{OriginalNetworkID: 1, DisplayNumber: "1", DisplayName: "old"})
	logos := &recordingDispatcher{}
	svc := NewService(s, logos, nil, Defaults{PackageName: "com.example.tv"})

	res, err := svc.Sync(ctx, "in", []models.Channel{
		{ID: models.NoID, OriginalNetworkID: 1, DisplayNumber: "1", DisplayName: "A"},
		{ID: models.NoID, OriginalNetworkID: 2, DisplayNumber: "2", DisplayName: "B", Logo: "http://logos/b.png"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.PassID)
	assert.Equal(t, []int64{ids[0]}, res.Updated)
	require.Len(t, res.Inserted, 1)
	assert.Empty(t, res.Deleted)

	ch, err := s.GetChannel(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "A", ch.DisplayName)

	b, err := s.GetChannel(ctx, res.Inserted[0])
	require.NoError(t, err)
	assert.Equal(t, "B", b.DisplayName)
	assert.Equal(t, "in", b.InputID)
	assert.Equal(t, models.TypeOther, b.Type)
	assert.Equal(t, "com.example.tv", b.PackageName)

	assert.Equal(t, []logo.Job{{ChannelID: res.Inserted[0], URL: "http://logos/b.png"}}, logos.jobs)
}

func TestSyncLogsPlanCounts(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&buf)
	ctx := logging.WithLogger(context.Background(), &l)
	s := store.NewMemory()
	seed(t, s, "in",
		models.Channel{OriginalNetworkID: 1, DisplayNumber: "1"},
		models.Channel{OriginalNetworkID: 9, DisplayNumber: "9"},
	)
	svc := NewService(s, nil, nil, Defaults{})

	_, err := svc.Sync(ctx, "in", []models.Channel{
		{ID: models.NoID, OriginalNetworkID: 1, DisplayNumber: "1"},
		{ID: models.NoID, OriginalNetworkID: 2, DisplayNumber: "2"},
		{ID: models.NoID, OriginalNetworkID: 3, DisplayNumber: "3"},
	})
	require.NoError(t, err)

	var planLine map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		if line["message"] == "plan computed" {
			planLine = line
		}
	}
	require.NotNil(t, planLine)
	assert.Equal(t, "in", planLine["input_id"])
	assert.EqualValues(t, 2, planLine["existing"])
	assert.EqualValues(t, 2, planLine["insert"])
	assert.EqualValues(t, 1, planLine["update"])
	assert.EqualValues(t, 1, planLine["delete"])
}

func TestSyncScenarioDeleteAll(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	ids := seed(t, s, "in", models.Channel{OriginalNetworkID: 1})
	other := seed(t, s, "other", models.Channel{OriginalNetworkID: 1})

	res, err := NewService(s, nil, nil, Defaults{}).Sync(ctx, "in", nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0]}, res.Deleted)
	assert.Empty(t, res.Inserted)
	assert.Empty(t, res.Updated)

	_, err = s.GetChannel(ctx, other[0])
	assert.NoError(t, err, "other input sources are untouched")
}

func TestSyncConvergesAndPreservesIdentity(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 25; round++ {
		s := store.NewMemory()
		var prior []models.Channel
		for n := 0; n < 20; n++ {
			if rng.Intn(2) == 0 {
				prior = append(prior, models.Channel{OriginalNetworkID: n})
			}
		}
		seed(t, s, "in", prior...)
		before := networkIDs(t, s, "in")

		var desired []models.Channel
		want := map[int]bool{}
		for _, n := range rng.Perm(20) {
			if rng.Intn(2) == 0 {
				desired = append(desired, models.Channel{ID: models.NoID, OriginalNetworkID: n})
				want[n] = true
			}
		}

		_, err := NewService(s, nil, nil, Defaults{}).Sync(ctx, "in", desired)
		require.NoError(t, err)
		after := networkIDs(t, s, "in")

		got := map[int]bool{}
		for n := range after {
			got[n] = true
		}
		assert.Equal(t, want, got, "round %d: network ids must equal the desired set", round)
		for n, rowID := range before {
			if want[n] {
				assert.Equal(t, rowID, after[n], "round %d: row id of network %d changed", round, n)
			}
		}
	}
}

func TestSyncIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	seed(t, s, "in", models.Channel{OriginalNetworkID: 1}, models.Channel{OriginalNetworkID: 9})
	svc := NewService(s, nil, nil, Defaults{})
	desired := []models.Channel{
		{OriginalNetworkID: 1, DisplayName: "one"},
		{OriginalNetworkID: 2, DisplayName: "two"},
	}

	_, err := svc.Sync(ctx, "in", desired)
	require.NoError(t, err)
	first, err := s.ListChannels(ctx)
	require.NoError(t, err)

	res, err := svc.Sync(ctx, "in", desired)
	require.NoError(t, err)
	assert.Empty(t, res.Inserted)
	assert.Empty(t, res.Deleted)
	assert.Len(t, res.Updated, 2)

	second, err := s.ListChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSyncRollsBackOnStoreError(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	ids := seed(t, mem, "in", models.Channel{OriginalNetworkID: 1, DisplayName: "keep"}, models.Channel{OriginalNetworkID: 2})
	boom := errors.New("disk full")
	s := &failingStore{Store: mem, deleteErr: boom}

	_, err := NewService(s, nil, nil, Defaults{}).Sync(ctx, "in", []models.Channel{{OriginalNetworkID: 1, DisplayName: "changed"}})
	assert.ErrorIs(t, err, boom)

	ch, err := mem.GetChannel(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "keep", ch.DisplayName, "update must roll back with the failed delete")
}

func TestSyncIndexFailureDoesNotDelete(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seed(t, mem, "in", models.Channel{OriginalNetworkID: 1})
	s := &failingStore{Store: mem, keysErr: errors.New("timeout")}

	_, err := NewService(s, nil, nil, Defaults{}).Sync(ctx, "in", nil)
	assert.ErrorIs(t, err, ErrIndexQuery)

	channels, err := mem.ListChannels(ctx)
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}

func TestSyncLocked(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"busy": true}}
	svc := NewService(store.NewMemory(), nil, locker, Defaults{})

	_, err := svc.Sync(context.Background(), "busy", nil)
	assert.ErrorIs(t, err, cache.ErrLocked)

	_, err = svc.Sync(context.Background(), "free", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.unlocked)
}

func TestSyncLogoJobsUseResultingRowIDs(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	ids := seed(t, s, "in", models.Channel{OriginalNetworkID: 1})
	logos := &recordingDispatcher{}

	res, err := NewService(s, logos, nil, Defaults{}).Sync(ctx, "in", []models.Channel{
		{OriginalNetworkID: 1, Logo: "http://l/1.png"},
		{OriginalNetworkID: 2},
		{OriginalNetworkID: 3, Logo: "http://l/3.png"},
	})
	require.NoError(t, err)

	sort.Slice(logos.jobs, func(i, j int) bool { return logos.jobs[i].ChannelID < logos.jobs[j].ChannelID })
	require.Len(t, logos.jobs, 2)
	assert.Equal(t, logo.Job{ChannelID: ids[0], URL: "http://l/1.png"}, logos.jobs[0])
	assert.Equal(t, "http://l/3.png", logos.jobs[1].URL)
	assert.Contains(t, res.Inserted, logos.jobs[1].ChannelID)
}
