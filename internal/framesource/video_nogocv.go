//go:build !gocv

package framesource

import "fmt"

// OpenVideo needs OpenCV; build with -tags gocv to read video files.
func OpenVideo(path string) (Source, error) {
	return nil, fmt.Errorf("%w: %s: video decoding requires the gocv build tag", ErrUnavailable, path)
}
