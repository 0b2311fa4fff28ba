package facematch

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
)

// Region is a bounding region in pixel coordinates. It serialises as the
// [top, right, bottom, left] tuple used by the persisted detection layout.
type Region struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// RegionFromBBox converts a corner bbox [x1, y1, x2, y2] in pixels to a Region.
// Returns the zero Region and false for malformed input.
func RegionFromBBox(bbox []float64) (Region, bool) {
	if len(bbox) != 4 {
		return Region{}, false
	}
	return Region{
		Top:    int(math.Round(bbox[1])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
		Left:   int(math.Round(bbox[0])),
	}, true
}

// Rect returns the region as an image.Rectangle (Min inclusive, Max exclusive).
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Width returns the horizontal extent of the region.
func (r Region) Width() int {
	return r.Right - r.Left
}

// Height returns the vertical extent of the region.
func (r Region) Height() int {
	return r.Bottom - r.Top
}

// Clamp returns the region intersected with bounds.
func (r Region) Clamp(bounds image.Rectangle) Region {
	c := r.Rect().Intersect(bounds)
	return Region{Top: c.Min.Y, Right: c.Max.X, Bottom: c.Max.Y, Left: c.Min.X}
}

// MarshalJSON encodes the region as [top, right, bottom, left].
func (r Region) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{r.Top, r.Right, r.Bottom, r.Left})
}

// UnmarshalJSON decodes a [top, right, bottom, left] tuple.
func (r *Region) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("region: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("region: expected 4 values, got %d", len(v))
	}
	r.Top, r.Right, r.Bottom, r.Left = v[0], v[1], v[2], v[3]
	return nil
}
