package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kozaktomas/person-tracker/internal/database"
	"github.com/kozaktomas/person-tracker/internal/database/mock"
	"github.com/kozaktomas/person-tracker/internal/facematch"
)

func newTestStore(t *testing.T) (*database.Store, *mock.MockBackend) {
	t.Helper()
	backend := mock.NewMockBackend()
	return database.NewStore(backend), backend
}

func upsert(t *testing.T, store *database.Store, in database.SightingInput) {
	t.Helper()
	if in.Timestamp == "" {
		in.Timestamp = "2025-03-01 12:00:00"
	}
	if in.CameraID == "" {
		in.CameraID = "CAM_1"
	}
	if err := store.Upsert(context.Background(), in); err != nil {
		t.Fatalf("Upsert(%+v) error = %v", in, err)
	}
}

func TestNextID(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"empty store", nil, "PERSON_1"},
		{"sequential", []string{"PERSON_1", "PERSON_2", "PERSON_3", "PERSON_4", "PERSON_5", "PERSON_6", "PERSON_7"}, "PERSON_8"},
		{"gaps use maximum", []string{"PERSON_2", "PERSON_9"}, "PERSON_10"},
		{"foreign keys skipped", []string{"VISITOR_40", "PERSON_x", "PERSON_3"}, "PERSON_4"},
		{"only foreign keys", []string{"VISITOR_40"}, "PERSON_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			for _, id := range tt.ids {
				upsert(t, store, database.SightingInput{PersonID: id})
			}
			if got := store.NextID(context.Background()); got != tt.want {
				t.Errorf("NextID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpsertCreatesRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, database.SightingInput{
		PersonID:  "PERSON_1",
		CameraID:  "CAM_1",
		Timestamp: "2025-03-01 12:00:00",
		ImagePath: "images/tracked/PERSON_1/a.jpg",
	})

	rec, ok := store.GetByID(ctx, "PERSON_1")
	if !ok {
		t.Fatal("PERSON_1 not found")
	}
	if rec.Images.Entry != "images/tracked/PERSON_1/a.jpg" || rec.Images.Best != rec.Images.Entry || rec.Images.Exit != rec.Images.Entry {
		t.Errorf("images = %+v, want all set to the first image", rec.Images)
	}
	if rec.Images.Display != "" {
		t.Errorf("display = %q, want empty", rec.Images.Display)
	}
	if rec.TotalCameras != 1 || len(rec.Cameras) != 1 {
		t.Errorf("total_cameras = %d, cameras = %d, want 1/1", rec.TotalCameras, len(rec.Cameras))
	}
	if rec.HasFace {
		t.Error("has_face should be false without face encoding")
	}
	if rec.FirstSeen != "2025-03-01 12:00:00" || rec.LastSeen != rec.FirstSeen {
		t.Errorf("first/last seen = %q/%q", rec.FirstSeen, rec.LastSeen)
	}

	if _, ok := store.GetByID(ctx, "PERSON_404"); ok {
		t.Error("GetByID(PERSON_404) should be absent")
	}
}

func TestUpsertCamerasAndSightings(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", CameraID: "CAM_1", Timestamp: "2025-03-01 12:00:00", ImagePath: "1.jpg"})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", CameraID: "CAM_1", Timestamp: "2025-03-01 12:00:05", ImagePath: "2.jpg"})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", CameraID: "CAM_2", Timestamp: "2025-03-01 12:01:00", ImagePath: "3.jpg"})

	rec, _ := store.GetByID(ctx, "PERSON_1")
	if rec.TotalCameras != 2 || len(rec.Cameras) != rec.TotalCameras {
		t.Fatalf("total_cameras = %d, len(cameras) = %d, want 2", rec.TotalCameras, len(rec.Cameras))
	}
	cam1 := rec.Cameras["CAM_1"]
	if len(cam1.Sightings) != 2 {
		t.Fatalf("CAM_1 sightings = %d, want 2", len(cam1.Sightings))
	}
	if cam1.Sightings[1] != (database.Sighting{Timestamp: "2025-03-01 12:00:05", Image: "2.jpg"}) {
		t.Errorf("second sighting = %+v", cam1.Sightings[1])
	}
	if cam1.FirstSeen != "2025-03-01 12:00:00" || cam1.LastSeen != "2025-03-01 12:00:05" {
		t.Errorf("CAM_1 first/last = %q/%q", cam1.FirstSeen, cam1.LastSeen)
	}
	if rec.LastSeen != "2025-03-01 12:01:00" {
		t.Errorf("last_seen = %q, want 2025-03-01 12:01:00", rec.LastSeen)
	}
	if rec.Images.Exit != "1.jpg" {
		t.Errorf("exit image = %q, want the entry image", rec.Images.Exit)
	}
}

func TestUpsertLastSeenNeverMovesBackwards(t *testing.T) {
	store, _ := newTestStore(t)

	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", Timestamp: "2025-03-01 12:00:10"})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", Timestamp: "2025-03-01 12:00:00"})

	rec, _ := store.GetByID(context.Background(), "PERSON_1")
	if rec.LastSeen != "2025-03-01 12:00:10" || rec.Cameras["CAM_1"].LastSeen != "2025-03-01 12:00:10" {
		t.Errorf("last_seen moved backwards: person %q camera %q", rec.LastSeen, rec.Cameras["CAM_1"].LastSeen)
	}
	if rec.LastSeen < rec.FirstSeen {
		t.Errorf("last_seen %q before first_seen %q", rec.LastSeen, rec.FirstSeen)
	}
	if len(rec.Cameras["CAM_1"].Sightings) != 2 {
		t.Errorf("sightings = %d, want 2", len(rec.Cameras["CAM_1"].Sightings))
	}
}

func TestUpsertFaceEncodingBufferIsFIFO(t *testing.T) {
	store, _ := newTestStore(t)

	for i := 1; i <= 4; i++ {
		upsert(t, store, database.SightingInput{
			PersonID:     "PERSON_1",
			FaceEncoding: []float64{float64(i), 0},
		})
	}

	rec, _ := store.GetByID(context.Background(), "PERSON_1")
	if !rec.HasFace {
		t.Error("has_face should be true")
	}
	if len(rec.FaceEncodings) != database.MaxFaceEncodings {
		t.Fatalf("len(face_encodings) = %d, want %d", len(rec.FaceEncodings), database.MaxFaceEncodings)
	}
	for i, want := range []float64{2, 3, 4} {
		if rec.FaceEncodings[i][0] != want {
			t.Errorf("face_encodings[%d][0] = %v, want %v", i, rec.FaceEncodings[i][0], want)
		}
	}
}

func TestUpsertEmptyFaceEncoding(t *testing.T) {
	tests := []struct {
		name          string
		encodings     [][]float64
		wantHasFace   bool
		wantEncodings int
		wantFirst     float64
	}{
		{"empty encoding on creation sets has_face only", [][]float64{{}}, true, 0, 0},
		{"empty encoding on a face-less person is ignored", [][]float64{nil, {}}, false, 0, 0},
		{"empty encoding does not evict a buffered one", [][]float64{{1}, {2}, {3}, {}}, true, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			for _, enc := range tt.encodings {
				upsert(t, store, database.SightingInput{PersonID: "PERSON_1", FaceEncoding: enc})
			}

			rec, _ := store.GetByID(context.Background(), "PERSON_1")
			if rec.HasFace != tt.wantHasFace {
				t.Errorf("has_face = %v, want %v", rec.HasFace, tt.wantHasFace)
			}
			if len(rec.FaceEncodings) != tt.wantEncodings {
				t.Fatalf("len(face_encodings) = %d, want %d", len(rec.FaceEncodings), tt.wantEncodings)
			}
			if tt.wantEncodings > 0 && rec.FaceEncodings[0][0] != tt.wantFirst {
				t.Errorf("face_encodings[0][0] = %v, want %v", rec.FaceEncodings[0][0], tt.wantFirst)
			}
		})
	}
}

func TestUpsertBestImage(t *testing.T) {
	tests := []struct {
		name        string
		features    *facematch.BodyFeatures
		wantUpdated bool
	}{
		{"high face confidence", &facematch.BodyFeatures{FaceConfidence: facematch.Float(0.95)}, true},
		{"low face confidence", &facematch.BodyFeatures{FaceConfidence: facematch.Float(0.5)}, false},
		{"exactly at threshold", &facematch.BodyFeatures{FaceConfidence: facematch.Float(0.8)}, false},
		{"no face confidence", &facematch.BodyFeatures{Height: facematch.Float(100)}, false},
		{"no body features", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			upsert(t, store, database.SightingInput{PersonID: "PERSON_1", ImagePath: "first.jpg"})
			upsert(t, store, database.SightingInput{PersonID: "PERSON_1", ImagePath: "second.jpg", BodyFeatures: tt.features})

			rec, _ := store.GetByID(context.Background(), "PERSON_1")
			if tt.wantUpdated {
				if rec.Images.Best != "second.jpg" || rec.Images.Display != "second.jpg" {
					t.Errorf("images = %+v, want best/display updated", rec.Images)
				}
			} else {
				if rec.Images.Best != "first.jpg" || rec.Images.Display != "" {
					t.Errorf("images = %+v, want best unchanged and no display", rec.Images)
				}
			}
		})
	}
}

func TestUpsertBodyFeaturesKeepsLastKnown(t *testing.T) {
	store, _ := newTestStore(t)

	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", BodyFeatures: &facematch.BodyFeatures{Height: facematch.Float(100)}})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", FaceEncoding: []float64{1}})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", BodyFeatures: &facematch.BodyFeatures{Height: facematch.Float(180)}})

	rec, _ := store.GetByID(context.Background(), "PERSON_1")
	if rec.BodyFeatures.Height == nil || *rec.BodyFeatures.Height != 180 {
		t.Errorf("body_features = %+v, want height 180", rec.BodyFeatures)
	}

	// A face sighting reporting only its confidence leaves the descriptor alone.
	upsert(t, store, database.SightingInput{
		PersonID:     "PERSON_1",
		FaceEncoding: []float64{1},
		BodyFeatures: &facematch.BodyFeatures{FaceConfidence: facematch.Float(0.9)},
	})
	rec, _ = store.GetByID(context.Background(), "PERSON_1")
	if rec.BodyFeatures.Height == nil || *rec.BodyFeatures.Height != 180 || rec.BodyFeatures.FaceConfidence != nil {
		t.Errorf("body_features = %+v, want unchanged height 180", rec.BodyFeatures)
	}
}

func TestSearchByFace(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, database.SightingInput{PersonID: "PERSON_1", FaceEncoding: []float64{0, 0}})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_2", FaceEncoding: []float64{5, 5}})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_2", FaceEncoding: []float64{0.1, 0}})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_3", FaceEncoding: []float64{0, 0, 0}})
	upsert(t, store, database.SightingInput{PersonID: "PERSON_4"})

	got := store.SearchByFace(ctx, []float64{0, 0}, 0.6)
	want := []string{"PERSON_1", "PERSON_2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("SearchByFace() = %v, want %v", got, want)
	}

	if got := store.SearchByFace(ctx, []float64{100, 100}, 0.6); len(got) != 0 {
		t.Errorf("SearchByFace(far) = %v, want none", got)
	}
}

func TestGetFiltered(t *testing.T) {
	backend := mock.NewMockBackend()
	backend.SetRaw([]byte(`{
		"PERSON_1": {"cameras": {"CAM_1": {"sightings": []}}, "total_cameras": 1, "total_time_sec": 50},
		"PERSON_2": {"cameras": {"CAM_1": {"sightings": []}}, "total_cameras": 1, "total_time_sec": 150},
		"PERSON_3": {"cameras": {"CAM_2": {"sightings": []}}, "total_cameras": 1, "total_time_sec": 300}
	}`))
	store := database.NewStore(backend)

	tests := []struct {
		name   string
		filter database.Filter
		want   []string
	}{
		{"no filters", database.Filter{}, []string{"PERSON_1", "PERSON_2", "PERSON_3"}},
		{"camera only", database.Filter{Camera: "CAM_1"}, []string{"PERSON_1", "PERSON_2"}},
		{"camera and min duration", database.Filter{Camera: "CAM_1", MinDuration: 100}, []string{"PERSON_2"}},
		{"max duration", database.Filter{MaxDuration: 200}, []string{"PERSON_1", "PERSON_2"}},
		{"min and max", database.Filter{MinDuration: 100, MaxDuration: 200}, []string{"PERSON_2"}},
		{"unknown camera", database.Filter{Camera: "CAM_9"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, rec := range store.GetFiltered(context.Background(), tt.filter) {
				got = append(got, rec.PersonID)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("GetFiltered(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	f := database.ParseFilter(map[string]string{
		"camera":       "CAM_1",
		"min_duration": "100",
		"max_duration": "abc",
		"colour":       "red",
	})
	want := database.Filter{Camera: "CAM_1", MinDuration: 100}
	if f != want {
		t.Errorf("ParseFilter() = %+v, want %+v", f, want)
	}
}

func TestStoreFailsOpenOnCorruptSnapshot(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()
	backend.SetRaw([]byte(`{"PERSON_7": {`))

	if got := store.NextID(ctx); got != "PERSON_1" {
		t.Errorf("NextID() on corrupt store = %q, want PERSON_1", got)
	}
	if got := store.GetAll(ctx).Len(); got != 0 {
		t.Errorf("GetAll().Len() = %d, want 0", got)
	}
	if _, ok := store.GetByID(ctx, "PERSON_7"); ok {
		t.Error("GetByID should report absent on corrupt store")
	}

	// The next write replaces the unreadable document.
	upsert(t, store, database.SightingInput{PersonID: "PERSON_1"})
	if got := store.GetAll(ctx).IDs(); fmt.Sprint(got) != "[PERSON_1]" {
		t.Errorf("IDs() after write = %v, want [PERSON_1]", got)
	}
}

func TestStoreFailsOpenOnLoadError(t *testing.T) {
	store, backend := newTestStore(t)
	backend.LoadError = errors.New("disk on fire")

	if got := store.NextID(context.Background()); got != "PERSON_1" {
		t.Errorf("NextID() = %q, want PERSON_1", got)
	}
	if got := store.GetFiltered(context.Background(), database.Filter{}); len(got) != 0 {
		t.Errorf("GetFiltered() = %v, want empty", got)
	}
}

func TestUpsertSaveErrorLeavesStoreUnchanged(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()
	upsert(t, store, database.SightingInput{PersonID: "PERSON_1"})

	backend.SaveError = errors.New("read-only filesystem")
	err := store.Upsert(ctx, database.SightingInput{PersonID: "PERSON_2", CameraID: "CAM_1", Timestamp: "2025-03-01 12:00:00"})
	if err == nil {
		t.Fatal("expected save error")
	}
	if !errors.Is(err, backend.SaveError) {
		t.Errorf("error = %v, want wrapped save error", err)
	}
	if _, ok := store.GetByID(ctx, "PERSON_2"); ok {
		t.Error("PERSON_2 should not be visible after a failed save")
	}
}

func TestUpsertRequiresPersonID(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Upsert(context.Background(), database.SightingInput{CameraID: "CAM_1"}); err == nil {
		t.Error("expected error for empty person ID")
	}
}
