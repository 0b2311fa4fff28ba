package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/person-tracker/internal/framesource"
)

// Summary is the result of a batch run.
type Summary struct {
	RunID           string        `json:"run_id"`
	CameraID        string        `json:"camera_id"`
	PersonsDetected int           `json:"persons_detected"`
	FrameCount      int           `json:"frame_count"`
	ProcessingTime  time.Duration `json:"-"`
}

// ProcessingSeconds returns the wall-clock duration in seconds.
func (s Summary) ProcessingSeconds() float64 {
	return s.ProcessingTime.Seconds()
}

// BatchOption configures one ProcessFile call.
type BatchOption func(*batchOptions)

type batchOptions struct {
	progress func(frameNum int, sighted int)
}

// WithProgress is called after every processed frame with the 1-based number
// of the source frame and the number of detections tracked in it.
func WithProgress(fn func(frameNum int, sighted int)) BatchOption {
	return func(o *batchOptions) { o.progress = fn }
}

// ProcessFile tracks every 5th frame of src. PersonsDetected counts new
// identities only; FrameCount counts processed frames.
func (t *Tracker) ProcessFile(ctx context.Context, src framesource.Source, cameraID string, opts ...BatchOption) (Summary, error) {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	summary := Summary{RunID: uuid.NewString(), CameraID: cameraID}
	start := time.Now()
	log := slog.With("run", summary.RunID, "camera", cameraID)
	log.Info("tracking: batch started")

	frameNum := 0
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Summary{}, fmt.Errorf("read frame %d: %w", frameNum+1, err)
		}

		frameNum++
		if frameNum%BatchSampleEvery != 0 {
			continue
		}

		sightings, err := t.trackFrame(ctx, frame, cameraID)
		if err != nil {
			return Summary{}, err
		}
		for _, s := range sightings {
			if s.New {
				summary.PersonsDetected++
			}
		}
		summary.FrameCount++

		if o.progress != nil {
			o.progress(frameNum, len(sightings))
		}
	}

	summary.ProcessingTime = time.Since(start)
	log.Info("tracking: batch finished",
		"frames", summary.FrameCount,
		"persons", summary.PersonsDetected,
		"elapsed", summary.ProcessingTime)
	return summary, nil
}
