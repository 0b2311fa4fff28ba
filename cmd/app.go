package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/database"
	"github.com/kozaktomas/person-tracker/internal/detector"
	"github.com/kozaktomas/person-tracker/internal/imagestore"
	"github.com/kozaktomas/person-tracker/internal/memory"
	"github.com/kozaktomas/person-tracker/internal/reid"
	"github.com/kozaktomas/person-tracker/internal/tracking"

	// Store backends register themselves with the database package.
	_ "github.com/kozaktomas/person-tracker/internal/database/jsonfile"
	_ "github.com/kozaktomas/person-tracker/internal/database/mariadb"
	_ "github.com/kozaktomas/person-tracker/internal/database/mock"
	_ "github.com/kozaktomas/person-tracker/internal/database/postgres"
	_ "github.com/kozaktomas/person-tracker/internal/database/sqlite"
)

// app is the tracking stack shared by the track and camera commands.
type app struct {
	cfg      *config.Config
	store    *database.Store
	memory   *memory.ShortTermMemory
	detector *detector.Client
	tracker  *tracking.Tracker
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cache := memory.New()
	client := detector.NewClient(cfg.Detector.URL, cfg.Detector.Timeout)
	resolver := reid.NewResolver(cache, store)
	tracker := tracking.New(client, resolver, store, imagestore.NewDisk(cfg.Images.Root))

	return &app{
		cfg:      cfg,
		store:    store,
		memory:   cache,
		detector: client,
		tracker:  tracker,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*database.Store, error) {
	store, err := database.Open(ctx, &cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open person store: %w", err)
	}
	return store, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
