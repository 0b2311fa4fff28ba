// Package imagestore writes sighting frames to disk.
package imagestore

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/kozaktomas/person-tracker/internal/facematch"
)

// TrackedDir is the directory, relative to the root, holding per-person images.
const TrackedDir = "images/tracked"

// Saver persists the frame of one sighting and returns the path recorded in
// the person store.
type Saver interface {
	Save(frame image.Image, personID string, modality facematch.Modality, cameraID, timestamp string) (string, error)
}

// Disk saves JPEG files under a root directory.
type Disk struct {
	root    string
	quality int
}

// NewDisk creates a saver rooted at root (e.g. "static").
func NewDisk(root string) *Disk {
	return &Disk{root: root, quality: jpeg.DefaultQuality}
}

// FileName returns the image file name of one sighting.
func FileName(personID string, modality facematch.Modality, timestamp string) string {
	return fmt.Sprintf("%s_%s_%s.jpg", personID, modality, strings.ReplaceAll(timestamp, ":", "-"))
}

// Save writes <root>/images/tracked/<person>/<file> and returns the path
// relative to root, always with forward slashes.
func (d *Disk) Save(frame image.Image, personID string, modality facematch.Modality, cameraID, timestamp string) (string, error) {
	rel := path.Join(TrackedDir, personID, FileName(personID, modality, timestamp))
	full := filepath.Join(d.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: d.quality}); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	if err := renameio.WriteFile(full, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}
