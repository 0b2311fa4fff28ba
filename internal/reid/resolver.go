// Package reid resolves a detection to a known identity: first the
// per-camera short-term memory, then a scan of the person store.
package reid

import (
	"context"

	"github.com/kozaktomas/person-tracker/internal/database"
	"github.com/kozaktomas/person-tracker/internal/facematch"
)

// Cache is the short-term memory consulted before the store.
type Cache interface {
	Match(det facematch.Detection, cameraID string) (string, bool)
	Add(personID string, det facematch.Detection, cameraID string)
}

// Source tells which tier resolved a detection.
type Source string

const (
	SourceNone  Source = ""
	SourceCache Source = "cache"
	SourceFace  Source = "store_face"
	SourceBody  Source = "store_body"
)

// Resolver answers "who is this detection". The first match wins and
// tiers are never re-ranked against each other.
type Resolver struct {
	cache         Cache
	store         database.PersonReader
	faceTolerance float64
	bodyTolerance float64
}

// NewResolver creates a resolver with the default tolerances.
func NewResolver(cache Cache, store database.PersonReader) *Resolver {
	return &Resolver{
		cache:         cache,
		store:         store,
		faceTolerance: facematch.DefaultFaceTolerance,
		bodyTolerance: facematch.DefaultBodyTolerance,
	}
}

// Resolve returns the person ID of det on cameraID, or false when the caller
// must mint a new identity.
func (r *Resolver) Resolve(ctx context.Context, det facematch.Detection, cameraID string) (string, bool) {
	id, src := r.ResolveSource(ctx, det, cameraID)
	return id, src != SourceNone
}

// ResolveSource is Resolve that also reports the tier that matched.
func (r *Resolver) ResolveSource(ctx context.Context, det facematch.Detection, cameraID string) (string, Source) {
	if id, ok := r.cache.Match(det, cameraID); ok {
		return id, SourceCache
	}

	if det.HasEncoding() {
		if id, ok := r.findByFace(ctx, det.Encoding); ok {
			return id, SourceFace
		}
	}

	if det.HasFeatures() {
		if id, ok := r.findByBody(ctx, det.Features); ok {
			return id, SourceBody
		}
	}

	return "", SourceNone
}

// Remember registers a freshly minted identity so immediate re-entries on the
// same camera resolve from the cache.
func (r *Resolver) Remember(personID string, det facematch.Detection, cameraID string) {
	r.cache.Add(personID, det, cameraID)
}

// findByFace scans persons in store order and returns the first one with any
// buffered encoding within tolerance.
func (r *Resolver) findByFace(ctx context.Context, encoding []float64) (string, bool) {
	for id, rec := range r.store.GetAll(ctx).All() {
		if rec.MatchesFace(encoding, r.faceTolerance) {
			return id, true
		}
	}
	return "", false
}

func (r *Resolver) findByBody(ctx context.Context, features *facematch.BodyFeatures) (string, bool) {
	for id, rec := range r.store.GetAll(ctx).All() {
		if rec.MatchesBody(features, r.bodyTolerance) {
			return id, true
		}
	}
	return "", false
}
