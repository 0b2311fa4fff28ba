// Package mock provides an in-memory snapshot backend for testing and for
// running without durable storage.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/database"
)

func init() {
	database.RegisterBackend("memory", func(ctx context.Context, cfg *config.StoreConfig) (database.Backend, error) {
		return NewMockBackend(), nil
	})
}

// MockBackend is an in-memory implementation of database.Backend.
// Snapshots are held in their serialised form so callers never share
// memory with the stored state.
type MockBackend struct {
	mu   sync.RWMutex
	data []byte

	// Error injection
	LoadError error
	SaveError error

	// Call counters
	Loads int
	Saves int
}

// NewMockBackend creates an empty mock backend
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// SetRaw replaces the stored document, e.g. with malformed JSON.
func (m *MockBackend) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// Raw returns the stored document
func (m *MockBackend) Raw() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

// Load decodes the stored document
func (m *MockBackend) Load(ctx context.Context) (*database.Snapshot, error) {
	m.mu.Lock()
	m.Loads++
	data := m.data
	m.mu.Unlock()

	if m.LoadError != nil {
		return nil, m.LoadError
	}
	snap := database.NewSnapshot()
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Save replaces the stored document
func (m *MockBackend) Save(ctx context.Context, snap *database.Snapshot) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	m.data = data
	return nil
}

// Close is a no-op
func (m *MockBackend) Close() error {
	return nil
}
