package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/person-tracker/internal/config"
)

// BackendOpener opens a snapshot backend from the store configuration.
type BackendOpener func(ctx context.Context, cfg *config.StoreConfig) (Backend, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]BackendOpener)
)

// RegisterBackend registers a backend constructor under name.
// This is called from the init of each backend package to avoid import cycles.
func RegisterBackend(name string, open BackendOpener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends returns the names of all registered backends, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenBackend opens the backend selected by cfg.Backend.
func OpenBackend(ctx context.Context, cfg *config.StoreConfig) (Backend, error) {
	backendsMu.RLock()
	open, ok := backends[cfg.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown store backend %q (available: %v)", cfg.Backend, Backends())
	}
	backend, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return backend, nil
}

// Open opens the configured backend and wraps it in a Store.
func Open(ctx context.Context, cfg *config.StoreConfig) (*Store, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(backend), nil
}
