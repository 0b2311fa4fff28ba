package facematch

import "math"

// EuclideanDistance returns the L2 distance between two vectors of equal length.
// The second return value is false when the lengths differ.
func EuclideanDistance(a, b []float64) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), true
}

// FaceMatch reports whether two face encodings belong to the same person.
// Encodings of different length never match.
func FaceMatch(a, b []float64, tolerance float64) bool {
	dist, ok := EuclideanDistance(a, b)
	if !ok {
		return false
	}
	return dist < tolerance
}

// BodyMatch compares two body descriptors. Colour, aspect ratio and height are
// checked independently and every check present on both sides must pass.
// Descriptors sharing no field match.
func BodyMatch(a, b *BodyFeatures, tolerance float64) bool {
	if a == nil || b == nil {
		return true
	}

	if a.DominantColor != nil && b.DominantColor != nil {
		dist, ok := EuclideanDistance(a.DominantColor, b.DominantColor)
		if !ok || dist > MaxColorDistance {
			return false
		}
	}

	if a.AspectRatio != nil && b.AspectRatio != nil {
		if math.Abs(*a.AspectRatio-*b.AspectRatio) > tolerance {
			return false
		}
	}

	if a.Height != nil && b.Height != nil {
		tallest := math.Max(*a.Height, *b.Height)
		if tallest == 0 {
			return false
		}
		if math.Abs(*a.Height-*b.Height)/tallest > tolerance {
			return false
		}
	}

	return true
}
