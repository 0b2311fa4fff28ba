package database

import (
	"slices"
	"time"

	"github.com/kozaktomas/person-tracker/internal/facematch"
)

// TimestampLayout is the layout of every timestamp stored in a PersonRecord.
// Timestamps in this layout sort lexically in time order.
const TimestampLayout = "2006-01-02 15:04:05"

// MaxFaceEncodings is the capacity of the per-person face encoding buffer.
const MaxFaceEncodings = 3

// BestImageConfidence is the face_confidence a sighting must exceed to become
// the best/display image of a person.
const BestImageConfidence = 0.8

// FormatTimestamp formats t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Images holds paths to representative frames of a person.
type Images struct {
	Entry   string `json:"entry"`
	Best    string `json:"best"`
	Exit    string `json:"exit"`
	Display string `json:"display,omitempty"`
}

// Sighting is one observation of a person on a camera.
type Sighting struct {
	Timestamp string `json:"timestamp"`
	Image     string `json:"image"`
}

// CameraSighting aggregates the sightings of a person on one camera.
type CameraSighting struct {
	FirstSeen   string     `json:"first_seen"`
	LastSeen    string     `json:"last_seen"`
	DurationSec float64    `json:"duration_sec"`
	Sightings   []Sighting `json:"sightings"`
}

// PersonRecord is the durable aggregate of one identity.
type PersonRecord struct {
	// PersonID is only populated on records returned by filtered queries.
	PersonID string `json:"person_id,omitempty"`

	Images        Images                     `json:"images"`
	Cameras       map[string]*CameraSighting `json:"cameras"`
	TotalCameras  int                        `json:"total_cameras"`
	TotalTimeSec  float64                    `json:"total_time_sec"`
	FaceEncodings [][]float64                `json:"face_encodings"`
	BodyFeatures  facematch.BodyFeatures     `json:"body_features"`
	FirstSeen     string                     `json:"first_seen"`
	LastSeen      string                     `json:"last_seen"`
	HasFace       bool                       `json:"has_face"`
}

// newPersonRecord returns the record created on the first sighting of a person.
func newPersonRecord(timestamp, imagePath string) *PersonRecord {
	return &PersonRecord{
		Images: Images{
			Entry: imagePath,
			Best:  imagePath,
			Exit:  imagePath,
		},
		Cameras:       make(map[string]*CameraSighting),
		FaceEncodings: [][]float64{},
		FirstSeen:     timestamp,
		LastSeen:      timestamp,
	}
}

// Clone returns a deep copy of the record.
func (p *PersonRecord) Clone() *PersonRecord {
	c := *p
	c.Cameras = make(map[string]*CameraSighting, len(p.Cameras))
	for id, cam := range p.Cameras {
		cc := *cam
		cc.Sightings = slices.Clone(cam.Sightings)
		c.Cameras[id] = &cc
	}
	c.FaceEncodings = make([][]float64, len(p.FaceEncodings))
	for i, enc := range p.FaceEncodings {
		c.FaceEncodings[i] = slices.Clone(enc)
	}
	if bf := p.BodyFeatures.Clone(); bf != nil {
		c.BodyFeatures = *bf
	}
	return &c
}

// MatchesFace reports whether any buffered encoding matches encoding.
// Records without a face never match.
func (p *PersonRecord) MatchesFace(encoding []float64, tolerance float64) bool {
	if !p.HasFace {
		return false
	}
	for _, stored := range p.FaceEncodings {
		if facematch.FaceMatch(stored, encoding, tolerance) {
			return true
		}
	}
	return false
}

// MatchesBody reports whether the stored body descriptor matches features.
// Records with empty body_features never match; any other stored field,
// even face_confidence alone, makes the record eligible.
func (p *PersonRecord) MatchesBody(features *facematch.BodyFeatures, tolerance float64) bool {
	if p.BodyFeatures.IsEmpty() {
		return false
	}
	return facematch.BodyMatch(&p.BodyFeatures, features, tolerance)
}

// SightingInput describes one sighting to record with Store.Upsert.
type SightingInput struct {
	PersonID     string
	CameraID     string
	Timestamp    string
	ImagePath    string
	FaceEncoding []float64               // nil when the detection carried no face
	BodyFeatures *facematch.BodyFeatures // nil when the detection carried no body
}
