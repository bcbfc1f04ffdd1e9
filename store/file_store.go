package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore is a file-based implementation of Store.
// It keeps a MemoryStore and rewrites one JSON snapshot after every mutation.
// Suitable for single-node deployments and CLI use.
type FileStore struct {
	*MemoryStore

	path   string
	saveMu sync.Mutex
	logger *zap.Logger
}

// NewFileStore creates a new file-based marker store
func NewFileStore(config StoreConfig, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	name := config.FileName
	if name == "" {
		name = "markers.json"
	}

	s := &FileStore{
		MemoryStore: NewMemoryStore(config.Fingerprint, logger),
		path:        filepath.Join(config.BaseDir, name),
		logger:      logger.With(zap.String("component", "marker_store"), zap.String("backend", "file")),
	}

	// 装入已存在的快照
	if err := s.loadFromDisk(); err != nil {
		return nil, fmt.Errorf("failed to load markers from disk: %w", err)
	}
	s.MemoryStore.afterWrite = s.saveToDisk

	return s, nil
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) loadFromDisk() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	snap := NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return err
	}
	s.MemoryStore.load(snap)

	s.logger.Debug("markers loaded", zap.String("path", s.path), zap.Int("entries", snap.Len()))
	return nil
}

func (s *FileStore) saveToDisk() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := json.MarshalIndent(s.MemoryStore.snapshot(), "", "  ")
	if err != nil {
		return err
	}

	// 原子写: 写入临时文件后重命名
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return unavailable("write snapshot", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return unavailable("rename snapshot", err)
	}
	return nil
}

// Close saves the snapshot and closes the store.
func (s *FileStore) Close() error {
	if s.MemoryStore.closed.Load() {
		return nil
	}
	err := s.saveToDisk()
	s.MemoryStore.Close()
	return err
}
