package framesource

import (
	"context"
	"image"
	"io"
)

// Slice serves frames already held in memory.
type Slice struct {
	frames []image.Image
	next   int
}

// NewSlice returns a source over frames.
func NewSlice(frames ...image.Image) *Slice {
	return &Slice{frames: frames}
}

func (s *Slice) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	img := s.frames[s.next]
	s.next++
	return img, nil
}

func (s *Slice) Close() error {
	return nil
}
