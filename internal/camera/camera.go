// Package camera runs live capture sources. Each camera has one capture
// goroutine writing into a single-frame slot; readers always see the latest
// frame and a slow reader skips frames.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kozaktomas/person-tracker/internal/database"
	"github.com/kozaktomas/person-tracker/internal/render"
	"github.com/kozaktomas/person-tracker/internal/tracking"
)

var (
	ErrNotRunning        = errors.New("camera: not running")
	ErrDeviceUnavailable = errors.New("camera: device unavailable")
)

const (
	// DefaultIdleTimeout releases a camera nobody has accessed for 5 minutes.
	DefaultIdleTimeout = 5 * time.Minute

	readRetryDelay = 100 * time.Millisecond
)

// Device is an open capture device.
type Device interface {
	Read() (image.Image, error)
	Close() error
}

// Opener opens a device by index string or URL.
type Opener func(device string) (Device, error)

// FrameProcessor tracks and annotates one live frame in place.
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, frame *image.RGBA, cameraID string) ([]tracking.Annotation, error)
}

// Camera is one live capture source.
type Camera struct {
	id          string
	device      string
	open        Opener
	processor   FrameProcessor
	idleTimeout time.Duration
	now         func() time.Time

	// mu guards everything below and is held across Frame's processing pass,
	// so the encoded bytes and the annotations come from the same frame.
	mu         sync.Mutex
	running    bool
	frame      *image.RGBA
	lastAccess time.Time
	done       chan struct{}
}

// Option configures a Camera.
type Option func(*Camera)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Camera) { c.now = now }
}

// WithIdleTimeout overrides DefaultIdleTimeout. Non-positive values are ignored.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Camera) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// New creates a stopped camera.
func New(id, device string, open Opener, processor FrameProcessor, opts ...Option) *Camera {
	c := &Camera{
		id:          id,
		device:      device,
		open:        open,
		processor:   processor,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastAccess = c.now()
	return c
}

// ID returns the camera ID.
func (c *Camera) ID() string {
	return c.id
}

// Start opens the device and launches the capture goroutine. Starting a
// running camera is a no-op.
func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	dev, err := c.open(c.device)
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, c.device, err)
	}

	c.running = true
	c.lastAccess = c.now()
	c.done = make(chan struct{})
	go c.capture(dev, c.done)

	slog.Info("camera: started", "camera", c.id, "device", c.device)
	return nil
}

// capture owns dev until the camera stops, then releases it.
func (c *Camera) capture(dev Device, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Warn("camera: closing device failed", "camera", c.id, "error", err)
		}
	}()

	for {
		c.mu.Lock()
		running := c.running
		c.mu.Unlock()
		if !running {
			return
		}

		img, err := dev.Read()
		if err != nil {
			time.Sleep(readRetryDelay)
			continue
		}
		frame := render.Copy(img)

		c.mu.Lock()
		if c.running {
			c.frame = frame
			c.lastAccess = c.now()
		}
		c.mu.Unlock()
	}
}

// Stop clears the running flag, waits for the capture goroutine to finish
// its current read and release the device. Stopping a stopped camera is a
// no-op.
func (c *Camera) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.frame = nil
	done := c.done
	c.mu.Unlock()

	<-done
	slog.Info("camera: stopped", "camera", c.id)
}

// Frame processes a copy of the latest frame and returns it JPEG-encoded
// with its annotations. It returns nil bytes when no frame was captured yet.
func (c *Camera) Frame(ctx context.Context) ([]byte, []tracking.Annotation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, nil, ErrNotRunning
	}
	if c.frame == nil {
		return nil, nil, nil
	}

	frame := render.Copy(c.frame)
	annotations, err := c.processor.ProcessFrame(ctx, frame, c.id)
	if err != nil {
		return nil, nil, fmt.Errorf("process frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, nil); err != nil {
		return nil, nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), annotations, nil
}

// Stream emits processed frames at most fps times per second until the
// camera stops, ctx is done, or emit fails. The running flag is checked
// between frames.
func (c *Camera) Stream(ctx context.Context, fps int, emit func(jpeg []byte, annotations []tracking.Annotation) error) error {
	if fps <= 0 {
		fps = 30
	}
	limiter := rate.NewLimiter(rate.Limit(fps), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		data, annotations, err := c.Frame(ctx)
		if errors.Is(err, ErrNotRunning) {
			return nil
		}
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		if err := emit(data, annotations); err != nil {
			return err
		}
	}
}

// IsActive evaluates the idle timeout now. A camera idle for longer than the
// timeout is stopped and reported inactive.
func (c *Camera) IsActive() bool {
	c.mu.Lock()
	idle := c.now().Sub(c.lastAccess) > c.idleTimeout
	running := c.running
	c.mu.Unlock()

	if idle {
		if running {
			slog.Info("camera: idle timeout reached", "camera", c.id, "timeout", c.idleTimeout)
		}
		c.Stop()
		return false
	}
	return running
}

// Status is the reportable state of a camera.
type Status struct {
	CameraID   string `json:"camera_id"`
	IsActive   bool   `json:"is_active"`
	LastAccess string `json:"last_access"`
	Timeout    int    `json:"timeout"` // seconds
}

// Status reports the camera state, evaluating the idle timeout first.
func (c *Camera) Status() Status {
	active := c.IsActive()

	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		CameraID:   c.id,
		IsActive:   active,
		LastAccess: database.FormatTimestamp(c.lastAccess),
		Timeout:    int(c.idleTimeout / time.Second),
	}
}
