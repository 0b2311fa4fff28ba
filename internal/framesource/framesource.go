// Package framesource reads the frames of a recording one at a time.
package framesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
)

// ErrUnavailable is returned when a source cannot be opened.
var ErrUnavailable = errors.New("frame source unavailable")

// Source yields frames in order. Next returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// Open opens a directory of frame images, or a video file when built with gocv.
func Open(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	if info.IsDir() {
		return OpenDir(path)
	}
	return OpenVideo(path)
}

// Dir reads image files from a directory in file name order.
type Dir struct {
	files []string
	next  int
}

// OpenDir lists the frame images in dir. A directory without frames is
// unavailable.
func OpenDir(dir string) (*Dir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s: no frame images", ErrUnavailable, dir)
	}
	sort.Strings(files)

	return &Dir{files: files}, nil
}

// Len returns the number of frame files.
func (d *Dir) Len() int {
	return len(d.files)
}

// Next decodes the next frame. Files that fail to decode are skipped.
func (d *Dir) Next(ctx context.Context) (image.Image, error) {
	for d.next < len(d.files) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := d.files[d.next]
		d.next++

		img, err := decodeFile(path)
		if err != nil {
			slog.Warn("framesource: skipping undecodable frame", "path", path, "error", err)
			continue
		}
		return img, nil
	}
	return nil, io.EOF
}

func (d *Dir) Close() error {
	d.next = len(d.files)
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
