// Package jsonfile stores the person snapshot as a single JSON document,
// replaced atomically on every save.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/database"
)

func init() {
	database.RegisterBackend("json", func(ctx context.Context, cfg *config.StoreConfig) (database.Backend, error) {
		return Open(cfg.Path)
	})
}

// Backend is a database.Backend over one JSON file.
type Backend struct {
	path string
}

// Open returns a backend for path, creating the file (and its directory)
// with an empty object if it does not exist.
func Open(path string) (*Backend, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	b := &Backend{path: path}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return b, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if err := renameio.WriteFile(path, []byte("{}"), 0o644); err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return b, nil
}

func (b *Backend) Load(ctx context.Context) (*database.Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	snap := database.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.path, err)
	}
	return snap, nil
}

// Save writes the snapshot to a temporary file and renames it over the
// store file, so readers see either the old or the new document.
func (b *Backend) Save(ctx context.Context, snap *database.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := renameio.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", b.path, err)
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}
