// Package detector turns frames into person detections by calling an external
// inference service.
package detector

import (
	"context"
	"image"
	"sort"

	"github.com/kozaktomas/person-tracker/internal/facematch"
)

// Detector produces the detections of one frame, ordered by confidence
// descending with faces ahead of bodies of equal confidence.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]facematch.Detection, error)
}

// Func adapts a function to the Detector interface.
type Func func(ctx context.Context, frame image.Image) ([]facematch.Detection, error)

func (f Func) Detect(ctx context.Context, frame image.Image) ([]facematch.Detection, error) {
	return f(ctx, frame)
}

// Order sorts faces-then-bodies detections by confidence, keeping the
// relative order of equal confidences.
func Order(faces, bodies []facematch.Detection) []facematch.Detection {
	all := make([]facematch.Detection, 0, len(faces)+len(bodies))
	all = append(all, faces...)
	all = append(all, bodies...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Confidence > all[j].Confidence
	})
	return all
}
