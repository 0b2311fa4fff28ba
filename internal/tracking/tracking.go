// Package tracking runs the per-frame pipeline: detect, resolve each
// detection to an identity, persist the sighting and, for live frames,
// annotate the frame.
package tracking

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/kozaktomas/person-tracker/internal/database"
	"github.com/kozaktomas/person-tracker/internal/detector"
	"github.com/kozaktomas/person-tracker/internal/facematch"
	"github.com/kozaktomas/person-tracker/internal/imagestore"
	"github.com/kozaktomas/person-tracker/internal/reid"
)

const (
	// BatchSampleEvery is the batch subsampling factor: frames 5, 10, 15...
	BatchSampleEvery = 5
	// PlaybackAnnotateEvery is the playback annotation factor: frames 0, 10, 20...
	PlaybackAnnotateEvery = 10
)

// Tracker is the tracking pipeline. One Tracker may serve several cameras;
// identity minting and sighting writes are serialised through it.
type Tracker struct {
	detector detector.Detector
	resolver *reid.Resolver
	store    database.PersonWriter
	images   imagestore.Saver
	now      func() time.Time

	// mu covers resolve, next ID, cache registration and upsert so that two
	// frames never mint the same ID.
	mu sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the time source used for sighting timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New wires a tracker.
func New(det detector.Detector, resolver *reid.Resolver, store database.PersonWriter, images imagestore.Saver, opts ...Option) *Tracker {
	t := &Tracker{
		detector: det,
		resolver: resolver,
		store:    store,
		images:   images,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Sighting is the outcome of tracking one detection.
type Sighting struct {
	PersonID  string
	New       bool
	Detection facematch.Detection
}

// breakerReporter is implemented by detectors guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() string
}

// detect returns the frame's detections. Detector failures count as an
// empty frame.
func (t *Tracker) detect(ctx context.Context, frame image.Image, cameraID string) []facematch.Detection {
	dets, err := t.detector.Detect(ctx, frame)
	if err != nil {
		attrs := []any{"camera", cameraID, "error", err}
		if b, ok := t.detector.(breakerReporter); ok {
			attrs = append(attrs, "breaker", b.BreakerState())
		}
		slog.Warn("tracking: detection failed, treating frame as empty", attrs...)
		return nil
	}
	return dets
}

// trackFrame runs the shared per-detection sequence over every detection of
// frame, in detector order.
func (t *Tracker) trackFrame(ctx context.Context, frame image.Image, cameraID string) ([]Sighting, error) {
	dets := t.detect(ctx, frame, cameraID)
	sightings := make([]Sighting, 0, len(dets))
	for _, det := range dets {
		s, err := t.trackDetection(ctx, frame, det, cameraID)
		if err != nil {
			return sightings, err
		}
		sightings = append(sightings, s)
	}
	return sightings, nil
}

func (t *Tracker) trackDetection(ctx context.Context, frame image.Image, det facematch.Detection, cameraID string) (Sighting, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Sighting{Detection: det}
	id, ok := t.resolver.Resolve(ctx, det, cameraID)
	if !ok {
		id = t.store.NextID(ctx)
		t.resolver.Remember(id, det, cameraID)
		s.New = true
		slog.Debug("tracking: new identity", "person", id, "camera", cameraID, "modality", det.Modality)
	}
	s.PersonID = id

	timestamp := database.FormatTimestamp(t.now())
	imagePath, err := t.images.Save(frame, id, det.Modality, cameraID, timestamp)
	if err != nil {
		slog.Warn("tracking: saving sighting image failed", "person", id, "camera", cameraID, "error", err)
		imagePath = ""
	}

	err = t.store.Upsert(ctx, database.SightingInput{
		PersonID:     id,
		CameraID:     cameraID,
		Timestamp:    timestamp,
		ImagePath:    imagePath,
		FaceEncoding: det.Encoding,
		BodyFeatures: det.Features,
	})
	if err != nil {
		return s, fmt.Errorf("record sighting of %s: %w", id, err)
	}
	return s, nil
}
