package database_test

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/database"
	_ "github.com/kozaktomas/person-tracker/internal/database/mock"
)

func TestOpenRegisteredBackend(t *testing.T) {
	if !slices.Contains(database.Backends(), "memory") {
		t.Fatalf("Backends() = %v, want memory registered", database.Backends())
	}

	store, err := database.Open(context.Background(), &config.StoreConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	defer store.Close()

	if got := store.NextID(context.Background()); got != "PERSON_1" {
		t.Errorf("NextID() = %q, want PERSON_1", got)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := database.Open(context.Background(), &config.StoreConfig{Backend: "etcd"})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "etcd") {
		t.Errorf("error = %v, want backend name in message", err)
	}
}
