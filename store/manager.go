package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/truffle/types"
)

// Manager owns the single active Store of a locator instance. It is an
// ordinary value: callers construct it, initialize it once and pass it to
// whoever needs the store. There is no package-level default.
type Manager struct {
	mu     sync.RWMutex
	store  Store
	logger *zap.Logger
}

// NewManager creates an uninitialized manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger.With(zap.String("component", "store_manager"))}
}

// NewManagerWith creates a manager already holding s.
func NewManagerWith(s Store, logger *zap.Logger) (*Manager, error) {
	m := NewManager(logger)
	if err := m.Initialize(s); err != nil {
		return nil, err
	}
	return m, nil
}

// Initialize sets the active store. It fails if a store is already set;
// call Close first to swap stores.
func (m *Manager) Initialize(s Store) error {
	if s == nil {
		return ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		return types.NewError(types.ErrAlreadyInitialized, "marker store already initialized")
	}
	m.store = s
	m.logger.Debug("marker store initialized")
	return nil
}

// Store returns the active store, or a CONTEXT_UNINITIALIZED error.
func (m *Manager) Store() (Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.store == nil {
		return nil, types.NewError(types.ErrContextUninitialized, "marker store accessed before initialization")
	}
	return m.store, nil
}

// Initialized reports whether a store is set.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store != nil
}

// Reset clears the active store's entries.
func (m *Manager) Reset(ctx context.Context) error {
	s, err := m.Store()
	if err != nil {
		return err
	}
	return s.Reset(ctx)
}

// Close closes the active store and returns the manager to the
// uninitialized state.
func (m *Manager) Close() error {
	m.mu.Lock()
	s := m.store
	m.store = nil
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}
