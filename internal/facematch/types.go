// Package facematch provides the comparators and region helpers shared by the
// identity resolver, the person store and the detector client.
package facematch

// Modality is the kind of a detection. Each modality has its own feature
// representation and comparator.
type Modality string

const (
	ModalityFace Modality = "face" // Face detection carrying an encoding
	ModalityBody Modality = "body" // Body detection carrying body features
)

// Matching tolerances used when the caller does not supply one.
const (
	DefaultFaceTolerance = 0.6
	DefaultBodyTolerance = 0.3

	// MaxColorDistance is the dominant-colour cutoff of the body comparator.
	// It is fixed and not scaled by the body tolerance.
	MaxColorDistance = 50.0
)

// BodyFeatures is the body descriptor extracted from a body region.
// Nil pointers mean the field was not provided; absent fields skip their check.
type BodyFeatures struct {
	DominantColor  []float64 `json:"dominant_color,omitempty"`
	AspectRatio    *float64  `json:"aspect_ratio,omitempty"`
	Height         *float64  `json:"height,omitempty"`
	Width          *float64  `json:"width,omitempty"`
	FaceConfidence *float64  `json:"face_confidence,omitempty"`
}

// IsEmpty reports whether no field of the descriptor is set.
func (f *BodyFeatures) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.DominantColor == nil && f.AspectRatio == nil && f.Height == nil &&
		f.Width == nil && f.FaceConfidence == nil
}

// HasDescriptor reports whether any body field is set. FaceConfidence alone
// describes the detection, not the body.
func (f *BodyFeatures) HasDescriptor() bool {
	if f == nil {
		return false
	}
	return f.DominantColor != nil || f.AspectRatio != nil || f.Height != nil || f.Width != nil
}

// Clone returns a deep copy of the descriptor.
func (f *BodyFeatures) Clone() *BodyFeatures {
	if f == nil {
		return nil
	}
	c := &BodyFeatures{}
	if f.DominantColor != nil {
		c.DominantColor = append([]float64(nil), f.DominantColor...)
	}
	c.AspectRatio = cloneFloat(f.AspectRatio)
	c.Height = cloneFloat(f.Height)
	c.Width = cloneFloat(f.Width)
	c.FaceConfidence = cloneFloat(f.FaceConfidence)
	return c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

// Float returns a pointer to v, for building BodyFeatures literals.
func Float(v float64) *float64 {
	return &v
}

// Detection is one person detection in a frame. Face detections carry an
// Encoding, body detections carry Features.
type Detection struct {
	Modality   Modality
	Region     Region
	Confidence float64
	Encoding   []float64
	Features   *BodyFeatures
}

// HasEncoding reports whether d is a face detection with an encoding.
func (d *Detection) HasEncoding() bool {
	return d.Modality == ModalityFace && len(d.Encoding) > 0
}

// HasFeatures reports whether d is a body detection with features.
func (d *Detection) HasFeatures() bool {
	return d.Modality == ModalityBody && d.Features != nil
}
