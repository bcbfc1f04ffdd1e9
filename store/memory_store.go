package store

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/BaSui01/truffle/marker"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development, tests and single-process tools.
type MemoryStore struct {
	fingerprint func(string) string
	logger      *zap.Logger

	keys keyedMutex

	mu        sync.RWMutex
	entries   map[string]map[string]marker.Record
	stableIDs map[string]marker.Record

	closed atomic.Bool

	// afterWrite runs after every mutation; the file backend persists here.
	afterWrite func() error
}

// NewMemoryStore creates a new in-memory marker store
func NewMemoryStore(mode FingerprintMode, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		fingerprint: mode.Func(),
		logger:      logger.With(zap.String("component", "marker_store"), zap.String("backend", "memory")),
		entries:     make(map[string]map[string]marker.Record),
		stableIDs:   make(map[string]marker.Record),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key Key) (marker.Marker, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	if key.StableID != "" {
		unlock := s.keys.Lock(stableLockKey(key.StableID))
		s.mu.RLock()
		rec, ok := s.stableIDs[key.StableID]
		s.mu.RUnlock()
		unlock()
		if ok {
			return marker.FromRecord(rec)
		}
	}

	fp := s.fingerprint(key.Document)
	unlock := s.keys.Lock(primaryLockKey(fp, key.Action))
	s.mu.RLock()
	rec, ok := s.entries[fp][key.Action]
	s.mu.RUnlock()
	unlock()
	if !ok {
		return nil, ErrNotFound
	}

	m, err := marker.FromRecord(rec)
	if err != nil {
		return nil, err
	}

	if key.StableID != "" {
		unlock := s.keys.Lock(stableLockKey(key.StableID))
		s.mu.Lock()
		s.stableIDs[key.StableID] = rec
		s.mu.Unlock()
		unlock()
		if err := s.written(); err != nil {
			return m, err
		}
	}
	return m, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, key Key, m marker.Marker) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if m == nil {
		return ErrInvalidInput
	}

	rec := m.Record()
	fp := s.fingerprint(key.Document)

	unlock := s.keys.Lock(primaryLockKey(fp, key.Action))
	s.mu.Lock()
	actions, ok := s.entries[fp]
	if !ok {
		actions = make(map[string]marker.Record)
		s.entries[fp] = actions
	}
	actions[key.Action] = rec
	s.mu.Unlock()
	unlock()

	if key.StableID != "" {
		unlock := s.keys.Lock(stableLockKey(key.StableID))
		s.mu.Lock()
		s.stableIDs[key.StableID] = rec
		s.mu.Unlock()
		unlock()
	}
	return s.written()
}

// Remove implements Store.
func (s *MemoryStore) Remove(ctx context.Context, key Key, m marker.Marker) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}

	fp := s.fingerprint(key.Document)
	removed := false

	unlock := s.keys.Lock(primaryLockKey(fp, key.Action))
	s.mu.RLock()
	rec, ok := s.entries[fp][key.Action]
	s.mu.RUnlock()
	if ok {
		current, err := marker.FromRecord(rec)
		if err == nil && marker.Equal(current, m) {
			s.mu.Lock()
			delete(s.entries[fp], key.Action)
			if len(s.entries[fp]) == 0 {
				delete(s.entries, fp)
			}
			s.mu.Unlock()
			removed = true
		}
	}
	unlock()

	if !removed {
		s.logger.Debug("guarded remove skipped", zap.String("fingerprint", fp), zap.String("action", key.Action))
	}

	if key.StableID != "" {
		unlock := s.keys.Lock(stableLockKey(key.StableID))
		s.mu.Lock()
		delete(s.stableIDs, key.StableID)
		s.mu.Unlock()
		unlock()
	}
	return removed, s.written()
}

// Reset implements Store.
func (s *MemoryStore) Reset(ctx context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	s.mu.Lock()
	s.entries = make(map[string]map[string]marker.Record)
	s.stableIDs = make(map[string]marker.Record)
	s.mu.Unlock()
	return s.written()
}

// Export implements Store.
func (s *MemoryStore) Export(ctx context.Context) (*Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	return s.snapshot(), nil
}

func (s *MemoryStore) snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := NewSnapshot()
	for fp, actions := range s.entries {
		snap.Entries[fp] = maps.Clone(actions)
	}
	maps.Copy(snap.StableIDIndex, s.stableIDs)
	return snap
}

// Import implements Store. Records are kept as-is; an unknown type only
// surfaces when that entry is looked up.
func (s *MemoryStore) Import(ctx context.Context, snap *Snapshot) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if snap == nil {
		return ErrInvalidInput
	}
	s.load(snap)
	return s.written()
}

func (s *MemoryStore) load(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for fp, actions := range snap.Entries {
		dst, ok := s.entries[fp]
		if !ok {
			dst = make(map[string]marker.Record, len(actions))
			s.entries[fp] = dst
		}
		maps.Copy(dst, actions)
	}
	maps.Copy(s.stableIDs, snap.StableIDIndex)
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *MemoryStore) written() error {
	if s.afterWrite == nil {
		return nil
	}
	return s.afterWrite()
}
