// Package memory implements the short-term, per-camera identity cache used
// to recognise people re-entering a camera's view.
package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/person-tracker/internal/facematch"
)

// Window is how long an entry survives without being refreshed.
const Window = 60 * time.Second

// Entry is one remembered identity.
type Entry struct {
	PersonID  string
	CameraID  string
	Modality  facematch.Modality
	Encoding  []float64
	Features  *facematch.BodyFeatures
	FirstSeen time.Time
	LastSeen  time.Time
}

// ShortTermMemory holds recently resolved identities. Expired entries are
// removed lazily at the start of every lookup; nothing runs in the background
// unless a caller schedules Sweep itself.
type ShortTermMemory struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[string]*Entry
	order   []string
}

// Option configures a ShortTermMemory.
type Option func(*ShortTermMemory)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *ShortTermMemory) { m.now = now }
}

// New creates an empty cache with the 60 second window.
func New(opts ...Option) *ShortTermMemory {
	m := &ShortTermMemory{
		window:  Window,
		now:     time.Now,
		entries: make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add stores or overwrites the entry of personID. An existing entry keeps its
// FirstSeen.
func (m *ShortTermMemory) Add(personID string, det facematch.Detection, cameraID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[personID]
	if !ok {
		e = &Entry{PersonID: personID, FirstSeen: now}
		m.entries[personID] = e
		m.order = append(m.order, personID)
	}
	e.CameraID = cameraID
	e.Modality = det.Modality
	e.Encoding = slices.Clone(det.Encoding)
	e.Features = det.Features.Clone()
	e.LastSeen = now
}

// Match sweeps expired entries, then returns the first entry on cameraID whose
// modality and comparator match det. The matched entry's LastSeen is refreshed.
func (m *ShortTermMemory) Match(det facematch.Detection, cameraID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	for _, id := range m.order {
		e := m.entries[id]
		if e.CameraID != cameraID || e.Modality != det.Modality {
			continue
		}
		if !e.matches(det) {
			continue
		}
		e.LastSeen = now
		return e.PersonID, true
	}
	return "", false
}

func (e *Entry) matches(det facematch.Detection) bool {
	switch det.Modality {
	case facematch.ModalityFace:
		if e.Encoding == nil || det.Encoding == nil {
			return false
		}
		return facematch.FaceMatch(e.Encoding, det.Encoding, facematch.DefaultFaceTolerance)
	case facematch.ModalityBody:
		if e.Features == nil || det.Features == nil {
			return false
		}
		return facematch.BodyMatch(e.Features, det.Features, facematch.DefaultBodyTolerance)
	}
	return false
}

// Sweep removes expired entries and returns how many were removed.
func (m *ShortTermMemory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

func (m *ShortTermMemory) sweepLocked(now time.Time) int {
	removed := 0
	kept := m.order[:0]
	for _, id := range m.order {
		if now.Sub(m.entries[id].LastSeen) > m.window {
			delete(m.entries, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return removed
}

// Len returns the number of entries, including expired ones not yet swept.
func (m *ShortTermMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// entry returns a copy of the entry of personID.
func (m *ShortTermMemory) entry(personID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[personID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}
