package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/person-tracker/internal/facematch"
)

func TestAnnotateDrawsBoxAndLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	region := facematch.Region{Top: 40, Right: 80, Bottom: 90, Left: 20}

	Annotate(img, region, "PERSON_1")

	tests := []struct {
		name  string
		x, y  int
		green bool
	}{
		{"top edge", 50, 40, true},
		{"top edge second row", 50, 41, true},
		{"bottom edge", 50, 89, true},
		{"left edge", 20, 60, true},
		{"right edge", 79, 60, true},
		{"interior untouched", 50, 60, false},
		{"outside untouched", 5, 95, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := img.RGBAAt(tt.x, tt.y) == Green
			if got != tt.green {
				t.Errorf("pixel (%d,%d) green = %v, want %v", tt.x, tt.y, got, tt.green)
			}
		})
	}

	// Some label pixel lands in the band above the box.
	found := false
	for y := 40 - LabelOffset - 13; y < 40-LabelOffset+3 && !found; y++ {
		for x := 20; x < 20+8*7; x++ {
			if img.RGBAAt(x, y).G > 0 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("expected label pixels above the box")
	}
}

func TestBoxClipsToFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	Box(img, facematch.Region{Top: -5, Right: 20, Bottom: 5, Left: 5}, Green, 2)

	if img.RGBAAt(9, 4) != Green {
		t.Error("visible part of bottom edge should be drawn")
	}
}

func TestToRGBA(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if ToRGBA(rgba) != rgba {
		t.Error("ToRGBA should return *image.RGBA unchanged")
	}

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 1, color.Gray{Y: 200})
	out := ToRGBA(gray)
	if c := out.RGBAAt(1, 1); c.R != 200 || c.A != 255 {
		t.Errorf("converted pixel = %+v", c)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	dst := Copy(src)
	Annotate(dst, facematch.Region{Top: 0, Right: 4, Bottom: 4, Left: 0}, "P")
	if src.RGBAAt(0, 0) == Green {
		t.Error("Copy should not share pixels with the source")
	}
}
