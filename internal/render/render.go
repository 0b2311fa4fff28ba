// Package render draws identity annotations onto frames.
package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/person-tracker/internal/facematch"
)

const (
	// BoxThickness is the rectangle stroke width in pixels.
	BoxThickness = 2
	// LabelOffset is how far above the box top the label baseline sits.
	LabelOffset = 10
)

// Green is the annotation colour.
var Green = color.RGBA{G: 255, A: 255}

// ToRGBA returns img as *image.RGBA, copying unless it already is one.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	return Copy(img)
}

// Copy returns a fresh RGBA copy of img.
func Copy(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// Box strokes the outline of region on dst.
func Box(dst *image.RGBA, region facematch.Region, c color.Color, thickness int) {
	r := region.Rect()
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness), // top
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y), // left
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// Label draws text with its baseline starting at (x, y).
func Label(dst *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// Annotate draws the identity box and the person ID label above it.
func Annotate(dst *image.RGBA, region facematch.Region, personID string) {
	Box(dst, region, Green, BoxThickness)
	Label(dst, personID, region.Left, region.Top-LabelOffset, Green)
}
