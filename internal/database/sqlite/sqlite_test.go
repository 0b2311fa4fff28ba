package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/person-tracker/internal/database"
	"github.com/kozaktomas/person-tracker/internal/facematch"
)

func openTestBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "persons.db")
	b, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, path
}

func TestEmptyDatabase(t *testing.T) {
	b, _ := openTestBackend(t)

	snap, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Len() != 0 {
		t.Errorf("Len() = %d, want 0", snap.Len())
	}
	if got := database.NewStore(b).NextID(context.Background()); got != "PERSON_1" {
		t.Errorf("NextID() = %q, want PERSON_1", got)
	}
}

func TestSaveLoadPreservesOrderAndRecords(t *testing.T) {
	b, path := openTestBackend(t)
	ctx := context.Background()
	store := database.NewStore(b)

	inputs := []database.SightingInput{
		{PersonID: "PERSON_2", CameraID: "CAM_1", Timestamp: "2025-03-01 12:00:00", ImagePath: "a.jpg", FaceEncoding: []float64{0.5, 0.5}},
		{PersonID: "PERSON_10", CameraID: "CAM_2", Timestamp: "2025-03-01 12:00:01", ImagePath: "b.jpg",
			BodyFeatures: &facematch.BodyFeatures{DominantColor: []float64{10, 20, 30}, Height: facematch.Float(200)}},
		{PersonID: "PERSON_1", CameraID: "CAM_1", Timestamp: "2025-03-01 12:00:02", ImagePath: "c.jpg"},
	}
	for _, in := range inputs {
		if err := store.Upsert(ctx, in); err != nil {
			t.Fatalf("Upsert(%s) error = %v", in.PersonID, err)
		}
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	snap, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := strings.Join(snap.IDs(), ","); got != "PERSON_2,PERSON_10,PERSON_1" {
		t.Errorf("IDs() = %s, want insertion order", got)
	}

	rec, _ := snap.Get("PERSON_10")
	if rec.BodyFeatures.Height == nil || *rec.BodyFeatures.Height != 200 {
		t.Errorf("PERSON_10 body features = %+v", rec.BodyFeatures)
	}
	if rec.Cameras["CAM_2"] == nil || rec.TotalCameras != 1 {
		t.Errorf("PERSON_10 cameras = %+v", rec.Cameras)
	}

	if got := database.NewStore(reopened).NextID(ctx); got != "PERSON_11" {
		t.Errorf("NextID() = %q, want PERSON_11", got)
	}
}

func TestSaveReplacesAllRows(t *testing.T) {
	b, _ := openTestBackend(t)
	ctx := context.Background()

	first := database.NewSnapshot()
	first.Put("PERSON_1", &database.PersonRecord{})
	first.Put("PERSON_2", &database.PersonRecord{})
	if err := b.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := database.NewSnapshot()
	second.Put("PERSON_3", &database.PersonRecord{HasFace: true})
	if err := b.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	snap, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := strings.Join(snap.IDs(), ","); got != "PERSON_3" {
		t.Errorf("IDs() = %s, want PERSON_3", got)
	}
}

func TestLoadMalformedRowFailsStoreOpen(t *testing.T) {
	b, _ := openTestBackend(t)
	ctx := context.Background()

	if _, err := b.db.ExecContext(ctx, "INSERT INTO persons (position, person_id, record) VALUES (0, 'PERSON_5', '{broken')"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Load(ctx); err == nil {
		t.Error("Load() expected error for malformed row")
	}
	if got := database.NewStore(b).NextID(ctx); got != "PERSON_1" {
		t.Errorf("NextID() = %q, want PERSON_1 (fail-open)", got)
	}
}
