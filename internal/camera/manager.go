package camera

import (
	"fmt"
	"sort"

	"github.com/kozaktomas/person-tracker/internal/config"
)

// Manager holds one Camera per configured source.
type Manager struct {
	cameras map[string]*Camera
}

// NewManager creates stopped cameras for every configured source.
func NewManager(cfgs []config.CameraConfig, open Opener, processor FrameProcessor, opts ...Option) *Manager {
	m := &Manager{cameras: make(map[string]*Camera, len(cfgs))}
	for _, cfg := range cfgs {
		camOpts := append([]Option{WithIdleTimeout(cfg.IdleTimeout)}, opts...)
		m.cameras[cfg.ID] = New(cfg.ID, cfg.Device, open, processor, camOpts...)
	}
	return m
}

// IDs returns the camera IDs, sorted.
func (m *Manager) IDs() []string {
	ids := make([]string, 0, len(m.cameras))
	for id := range m.cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the camera with the given ID.
func (m *Manager) Get(id string) (*Camera, error) {
	c, ok := m.cameras[id]
	if !ok {
		return nil, fmt.Errorf("unknown camera %q", id)
	}
	return c, nil
}

// Statuses reports every camera, evaluating idle timeouts.
func (m *Manager) Statuses() []Status {
	statuses := make([]Status, 0, len(m.cameras))
	for _, id := range m.IDs() {
		statuses = append(statuses, m.cameras[id].Status())
	}
	return statuses
}

// CheckIdle evaluates every camera's idle timeout and returns how many are
// still active.
func (m *Manager) CheckIdle() int {
	active := 0
	for _, c := range m.cameras {
		if c.IsActive() {
			active++
		}
	}
	return active
}

// StopAll stops every camera.
func (m *Manager) StopAll() {
	for _, c := range m.cameras {
		c.Stop()
	}
}
