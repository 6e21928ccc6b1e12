package metrics

import (
	"sync"
	"time"
)

// Key identifies one model/action pair's timer storage.
type Key struct {
	Model  string
	Action string
}

// ActionHandle identifies a started action timer for a later stop.
type ActionHandle struct {
	Key    Key
	Handle Handle
}

// Manager owns one Storage per (model, action) pair, created lazily on
// first use.
type Manager struct {
	mu       sync.Mutex
	storages map[Key]*Storage
}

// NewManager returns an empty metrics manager.
func NewManager() *Manager {
	return &Manager{storages: make(map[Key]*Storage)}
}

func (m *Manager) storageFor(key Key) *Storage {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.storages[key]
	if !ok {
		s = NewStorage()
		m.storages[key] = s
	}
	return s
}

// StartActionTimer starts a timer for the given model/action pair.
func (m *Manager) StartActionTimer(model, action string) ActionHandle {
	key := Key{Model: model, Action: action}
	return ActionHandle{Key: key, Handle: m.storageFor(key).StartTimer()}
}

// StopActionTimer stops a previously started action timer.
func (m *Manager) StopActionTimer(h ActionHandle, elapsed time.Duration, outcome Outcome) error {
	return m.storageFor(h.Key).StopTimer(h.Handle, elapsed, outcome)
}

// FetchActionMetrics drains every storage's pending snapshots in parallel
// and returns them keyed by (model, action).
func (m *Manager) FetchActionMetrics() map[Key][]Snapshot {
	m.mu.Lock()
	keys := make([]Key, 0, len(m.storages))
	storages := make([]*Storage, 0, len(m.storages))
	for k, s := range m.storages {
		keys = append(keys, k)
		storages = append(storages, s)
	}
	m.mu.Unlock()

	results := make([][]Snapshot, len(keys))
	var wg sync.WaitGroup
	wg.Add(len(keys))
	for i, s := range storages {
		i, s := i, s
		go func() {
			defer wg.Done()
			results[i] = s.FetchMetrics()
		}()
	}
	wg.Wait()

	out := make(map[Key][]Snapshot, len(keys))
	for i, k := range keys {
		if len(results[i]) > 0 {
			out[k] = results[i]
		}
	}
	return out
}

// ModelNames returns the distinct model names with any registered timer
// storage.
func (m *Manager) ModelNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for k := range m.storages {
		if _, ok := seen[k.Model]; !ok {
			seen[k.Model] = struct{}{}
			out = append(out, k.Model)
		}
	}
	return out
}
