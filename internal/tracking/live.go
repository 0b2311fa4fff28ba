package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/kozaktomas/person-tracker/internal/facematch"
	"github.com/kozaktomas/person-tracker/internal/framesource"
	"github.com/kozaktomas/person-tracker/internal/render"
)

// Annotation describes one identity drawn onto a live frame.
type Annotation struct {
	PersonID   string             `json:"person_id"`
	Location   facematch.Region   `json:"location"`
	Confidence float64            `json:"confidence"`
	Modality   facematch.Modality `json:"modality"`
}

// ProcessFrame tracks the detections of one frame and draws a box and label
// for each onto frame. Sighting images are saved before any annotation is
// drawn.
func (t *Tracker) ProcessFrame(ctx context.Context, frame *image.RGBA, cameraID string) ([]Annotation, error) {
	sightings, err := t.trackFrame(ctx, frame, cameraID)
	if err != nil {
		return nil, err
	}

	annotations := make([]Annotation, 0, len(sightings))
	for _, s := range sightings {
		render.Annotate(frame, s.Detection.Region, s.PersonID)
		annotations = append(annotations, Annotation{
			PersonID:   s.PersonID,
			Location:   s.Detection.Region,
			Confidence: s.Detection.Confidence,
			Modality:   s.Detection.Modality,
		})
	}
	return annotations, nil
}

// Frame is one playback output frame.
type Frame struct {
	Index       int
	Image       *image.RGBA
	Annotated   bool
	Annotations []Annotation
}

// Playback replays src, running ProcessFrame on every 10th frame starting with
// the first. Other frames are emitted unchanged. Playback stops at the end of
// src, on ctx cancellation checked between frames, or when emit fails.
func (t *Tracker) Playback(ctx context.Context, src framesource.Source, cameraID string, emit func(Frame) error) error {
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", index, err)
		}

		out := Frame{Index: index, Image: render.Copy(img)}
		if index%PlaybackAnnotateEvery == 0 {
			out.Annotations, err = t.ProcessFrame(ctx, out.Image, cameraID)
			if err != nil {
				return err
			}
			out.Annotated = true
		}

		if err := emit(out); err != nil {
			return err
		}
	}
}
