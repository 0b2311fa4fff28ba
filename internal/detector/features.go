package detector

import (
	"image"
	"image/color"

	"github.com/kozaktomas/person-tracker/internal/facematch"
)

// ExtractBodyFeatures computes a body descriptor from the frame region: mean
// colour in BGR channel order, aspect ratio width/height and the region size.
// An empty region yields empty features.
func ExtractBodyFeatures(frame image.Image, region facematch.Region) *facematch.BodyFeatures {
	clamped := region.Clamp(frame.Bounds())
	r := clamped.Rect()
	if r.Empty() {
		return &facematch.BodyFeatures{}
	}

	var sumR, sumG, sumB float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.RGBAModel.Convert(frame.At(x, y)).(color.RGBA)
			sumR += float64(c.R)
			sumG += float64(c.G)
			sumB += float64(c.B)
		}
	}

	w, h := float64(clamped.Width()), float64(clamped.Height())
	n := w * h
	return &facematch.BodyFeatures{
		DominantColor: []float64{sumB / n, sumG / n, sumR / n},
		AspectRatio:   facematch.Float(w / h),
		Height:        facematch.Float(h),
		Width:         facematch.Float(w),
	}
}
