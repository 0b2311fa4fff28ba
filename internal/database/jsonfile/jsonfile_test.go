package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/person-tracker/internal/database"
)

func TestOpenCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "database.json")

	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("store file not created: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("new store file = %q, want {}", data)
	}

	snap, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Len() != 0 {
		t.Errorf("Len() = %d, want 0", snap.Len())
	}
}

func TestOpenKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	if err := os.WriteFile(path, []byte(`{"PERSON_3": {"has_face": true}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	snap, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	rec, ok := snap.Get("PERSON_3")
	if !ok || !rec.HasFace {
		t.Errorf("PERSON_3 = %+v, %v", rec, ok)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store := database.NewStore(b)
	ctx := context.Background()

	for _, id := range []string{"PERSON_1", "PERSON_2"} {
		err := store.Upsert(ctx, database.SightingInput{
			PersonID:     id,
			CameraID:     "CAM_1",
			Timestamp:    "2025-03-01 12:00:00",
			ImagePath:    "images/tracked/" + id + "/a.jpg",
			FaceEncoding: []float64{0.1, 0.2},
		})
		if err != nil {
			t.Fatalf("Upsert(%s) error = %v", id, err)
		}
	}

	// A fresh backend over the same file sees the same snapshot.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	got := database.NewStore(reopened).GetAll(ctx)
	if strings.Join(got.IDs(), ",") != "PERSON_1,PERSON_2" {
		t.Errorf("IDs() = %v, want [PERSON_1 PERSON_2]", got.IDs())
	}
	if next := store.NextID(ctx); next != "PERSON_3" {
		t.Errorf("NextID() = %q, want PERSON_3", next)
	}

	data, _ := os.ReadFile(path)
	for _, field := range []string{`"face_encodings"`, `"total_cameras": 1`, `"sightings"`, `"has_face": true`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("store file missing %s:\n%s", field, data)
		}
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	if err := os.WriteFile(path, []byte(`{"PERSON_1": `), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := b.Load(context.Background()); err == nil {
		t.Error("Load() expected error for malformed file")
	}

	// The store fails open and the next write repairs the file.
	store := database.NewStore(b)
	if got := store.NextID(context.Background()); got != "PERSON_1" {
		t.Errorf("NextID() = %q, want PERSON_1", got)
	}
	if err := store.Upsert(context.Background(), database.SightingInput{PersonID: "PERSON_1", CameraID: "CAM_1"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := b.Load(context.Background()); err != nil {
		t.Errorf("Load() after write error = %v", err)
	}
}
