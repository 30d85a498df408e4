package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/voyagen/tvlineup/internal/models"
)

type memLogo struct {
	content     []byte
	contentType string
}

type memState struct {
	nextID   int64
	nextProg int64
	channels map[int64]models.Channel
	programs map[int64][]models.Program
	logos    map[int64]memLogo
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:   s.nextID,
		nextProg: s.nextProg,
		channels: make(map[int64]models.Channel, len(s.channels)),
		programs: make(map[int64][]models.Program, len(s.programs)),
		logos:    make(map[int64]memLogo, len(s.logos)),
	}
	for k, v := range s.channels {
		c.channels[k] = v
	}
	for k, v := range s.programs {
		c.programs[k] = append([]models.Program(nil), v...)
	}
	for k, v := range s.logos {
		c.logos[k] = v
	}
	return c
}

// Memory is an in-process Store. It keeps programs in insertion order and
// leaves chronological sorting to callers. Transactions run against a copy
// of the state that replaces the original on success.
type Memory struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state *memState
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: &memState{
		nextID:   1,
		nextProg: 1,
		channels: make(map[int64]models.Channel),
		programs: make(map[int64][]models.Program),
		logos:    make(map[int64]memLogo),
	}}
}

// WithTx runs fn against a snapshot and commits it if fn succeeds.
// Transactions are serialized; writes made outside a transaction while one
// is running are lost when it commits.
func (m *Memory) WithTx(ctx context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	tx := &Memory{state: m.state.clone()}
	m.mu.RUnlock()

	if err := fn(&memTx{tx}); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = tx.state
	m.mu.Unlock()
	return nil
}

// memTx is the Store handed to WithTx callbacks; nested WithTx calls run inline.
type memTx struct {
	*Memory
}

func (t *memTx) WithTx(_ context.Context, fn func(Store) error) error {
	return fn(t)
}

func (m *Memory) ChannelKeys(_ context.Context, inputID string) ([]models.ChannelKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []models.ChannelKey
	for id, ch := range m.state.channels {
		if ch.InputID != inputID {
			continue
		}
		keys = append(keys, models.ChannelKey{RowID: id, OriginalNetworkID: ch.OriginalNetworkID, DisplayNumber: ch.DisplayNumber})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].RowID < keys[j].RowID })
	return keys, nil
}

func (m *Memory) InsertChannel(_ context.Context, ch *models.Channel) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.state.channels {
		if existing.InputID == ch.InputID && existing.OriginalNetworkID == ch.OriginalNetworkID {
			return 0, fmt.Errorf("InsertChannel: duplicate (input_id, original_network_id) = (%s, %d)", ch.InputID, ch.OriginalNetworkID)
		}
	}
	id := m.state.nextID
	m.state.nextID++
	row := *ch
	row.ID = id
	row.VideoHeight = 0
	m.state.channels[id] = row
	return id, nil
}

func (m *Memory) UpdateChannel(_ context.Context, rowID int64, ch *models.Channel) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.channels[rowID]; !ok {
		return 0, nil
	}
	row := *ch
	row.ID = rowID
	row.VideoHeight = 0
	m.state.channels[rowID] = row
	return 1, nil
}

func (m *Memory) DeleteChannel(_ context.Context, rowID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.channels[rowID]; !ok {
		return 0, nil
	}
	delete(m.state.channels, rowID)
	delete(m.state.programs, rowID)
	delete(m.state.logos, rowID)
	return 1, nil
}

func (m *Memory) ListChannels(_ context.Context) ([]models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Channel, 0, len(m.state.channels))
	for _, ch := range m.state.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetChannel(_ context.Context, rowID int64) (*models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.state.channels[rowID]
	if !ok {
		return nil, ErrNotFound
	}
	return &ch, nil
}

func (m *Memory) ListPrograms(_ context.Context, channelID int64) ([]models.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Program(nil), m.state.programs[channelID]...), nil
}

func (m *Memory) ReplacePrograms(_ context.Context, channelID int64, programs []models.Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.channels[channelID]; !ok {
		return fmt.Errorf("ReplacePrograms: channel %d: %w", channelID, ErrNotFound)
	}
	out := make([]models.Program, len(programs))
	for i, p := range programs {
		p.ID = m.state.nextProg
		m.state.nextProg++
		p.ChannelID = channelID
		out[i] = p
	}
	m.state.programs[channelID] = out
	return nil
}

func (m *Memory) PutChannelLogo(_ context.Context, channelID int64, content []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.channels[channelID]; !ok {
		return fmt.Errorf("PutChannelLogo: channel %d: %w", channelID, ErrNotFound)
	}
	m.state.logos[channelID] = memLogo{content: append([]byte(nil), content...), contentType: contentType}
	return nil
}

func (m *Memory) GetChannelLogo(_ context.Context, channelID int64) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.state.logos[channelID]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), l.content...), l.contentType, nil
}
