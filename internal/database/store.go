package database

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// PersonIDPrefix prefixes every generated person ID.
const PersonIDPrefix = "PERSON_"

// Store is the person store. Every mutation loads the whole snapshot from the
// backend, applies one change and saves the whole snapshot back.
//
// Writes are serialised by a process-wide mutex. NextID is not covered by that
// lock: two callers that both call NextID before either upserts receive the
// same ID. Callers running several pipelines must serialise minting themselves.
//
// An unreadable or malformed snapshot is treated as an empty store. The next
// write then replaces the unreadable data.
type Store struct {
	backend Backend
	mu      sync.Mutex
}

// NewStore creates a store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// load reads the current snapshot, failing open to an empty one.
func (s *Store) load(ctx context.Context) *Snapshot {
	snap, err := s.backend.Load(ctx)
	if err != nil {
		slog.Warn("database: snapshot unreadable, treating store as empty", "error", err)
		return NewSnapshot()
	}
	if snap == nil {
		return NewSnapshot()
	}
	return snap
}

// NextID derives PERSON_<max+1> from the keys of a freshly loaded snapshot.
// Keys without the prefix or with a non-numeric suffix are skipped.
func (s *Store) NextID(ctx context.Context) string {
	snap := s.load(ctx)
	maxNum := 0
	for id := range snap.All() {
		suffix, ok := strings.CutPrefix(id, PersonIDPrefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		maxNum = max(maxNum, n)
	}
	return PersonIDPrefix + strconv.Itoa(maxNum+1)
}

// Upsert records a sighting of in.PersonID on in.CameraID.
func (s *Store) Upsert(ctx context.Context, in SightingInput) error {
	if in.PersonID == "" {
		return fmt.Errorf("upsert: person ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load(ctx)

	rec, ok := snap.Get(in.PersonID)
	if !ok {
		rec = newPersonRecord(in.Timestamp, in.ImagePath)
		// A face detection marks the person as having a face even when
		// the encoding itself is empty.
		rec.HasFace = in.FaceEncoding != nil
		snap.Put(in.PersonID, rec)
	}

	applySighting(rec, in)

	if err := s.backend.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// applySighting mutates rec with one sighting.
func applySighting(rec *PersonRecord, in SightingInput) {
	cam, ok := rec.Cameras[in.CameraID]
	if !ok {
		cam = &CameraSighting{
			FirstSeen: in.Timestamp,
			LastSeen:  in.Timestamp,
			Sightings: []Sighting{},
		}
		rec.Cameras[in.CameraID] = cam
		rec.TotalCameras++
	}

	cam.Sightings = append(cam.Sightings, Sighting{Timestamp: in.Timestamp, Image: in.ImagePath})
	if in.Timestamp > cam.LastSeen {
		cam.LastSeen = in.Timestamp
	}
	if in.Timestamp > rec.LastSeen {
		rec.LastSeen = in.Timestamp
	}

	// Empty encodings never take a buffer slot.
	if len(in.FaceEncoding) > 0 {
		rec.HasFace = true
		enc := append([]float64(nil), in.FaceEncoding...)
		if len(rec.FaceEncodings) < MaxFaceEncodings {
			rec.FaceEncodings = append(rec.FaceEncodings, enc)
		} else {
			rec.FaceEncodings = append(rec.FaceEncodings[1:], enc)
		}
	}

	if in.BodyFeatures.HasDescriptor() {
		rec.BodyFeatures = *in.BodyFeatures.Clone()
	}

	updateBestImage(rec, in)
}

// updateBestImage promotes the sighting image to best/display when the
// detection reported a high face confidence.
func updateBestImage(rec *PersonRecord, in SightingInput) {
	if in.BodyFeatures == nil || in.BodyFeatures.FaceConfidence == nil {
		return
	}
	if *in.BodyFeatures.FaceConfidence > BestImageConfidence {
		rec.Images.Best = in.ImagePath
		rec.Images.Display = in.ImagePath
	}
}

// GetAll returns the full snapshot.
func (s *Store) GetAll(ctx context.Context) *Snapshot {
	return s.load(ctx)
}

// GetByID returns the record of personID.
func (s *Store) GetByID(ctx context.Context, personID string) (*PersonRecord, bool) {
	return s.load(ctx).Get(personID)
}

// SearchByFace returns every person with any buffered encoding within tolerance.
func (s *Store) SearchByFace(ctx context.Context, encoding []float64, tolerance float64) []string {
	var matches []string
	for id, rec := range s.load(ctx).All() {
		if rec.MatchesFace(encoding, tolerance) {
			matches = append(matches, id)
		}
	}
	return matches
}

// GetFiltered returns the records passing filter, annotated with their ID.
func (s *Store) GetFiltered(ctx context.Context, filter Filter) []*PersonRecord {
	var results []*PersonRecord
	for id, rec := range s.load(ctx).All() {
		if !filter.Match(rec) {
			continue
		}
		rec.PersonID = id
		results = append(results, rec)
	}
	return results
}
