//go:build gocv

package framesource

import (
	"context"
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"
)

// Video reads frames from a video file through OpenCV.
type Video struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenVideo opens a video file.
func OpenVideo(path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: cannot open video file %s", ErrUnavailable, path)
	}
	return &Video{capture: capture, mat: gocv.NewMat()}, nil
}

func (v *Video) Next(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ok := v.capture.Read(&v.mat); !ok {
			return nil, io.EOF
		}
		if v.mat.Empty() {
			continue
		}
		img, err := v.mat.ToImage()
		if err != nil {
			return nil, fmt.Errorf("convert frame: %w", err)
		}
		return img, nil
	}
}

func (v *Video) Close() error {
	v.mat.Close()
	return v.capture.Close()
}
