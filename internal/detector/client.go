package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kozaktomas/person-tracker/internal/facematch"
)

const (
	defaultDetectorURL = "http://localhost:8000"
	detectEndpoint     = "/detect/persons"

	// Confidence assigned to faces when the service omits one.
	defaultFaceConfidence = 0.9
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated
// service failures.
var ErrCircuitOpen = errors.New("detector: circuit breaker open")

// Client computes detections using the inference server.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// BreakerConfig tunes the circuit breaker around the HTTP call.
type BreakerConfig struct {
	MaxFailures          uint32        // consecutive failures that open the circuit
	Timeout              time.Duration // how long the circuit stays open
	HalfOpenMaxSuccesses uint32        // probes allowed while half-open
}

// DefaultBreakerConfig opens after 3 consecutive failures for 30 seconds.
var DefaultBreakerConfig = BreakerConfig{
	MaxFailures:          3,
	Timeout:              30 * time.Second,
	HalfOpenMaxSuccesses: 2,
}

// NewClient creates a new detector client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithBreaker(baseURL, timeout, DefaultBreakerConfig)
}

// NewClientWithBreaker creates a client with a custom breaker configuration.
func NewClientWithBreaker(baseURL string, timeout time.Duration, bc BreakerConfig) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	settings := gobreaker.Settings{
		Name:        "detector",
		MaxRequests: bc.HalfOpenMaxSuccesses,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("detector: circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// BreakerState returns "closed", "open" or "half-open".
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// detectResponse represents the response from the inference server
type detectResponse struct {
	Faces  []faceResult `json:"faces"`
	Bodies []bodyResult `json:"bodies"`
}

type faceResult struct {
	BBox       []float64               `json:"bbox"`
	Encoding   []float64               `json:"encoding"`
	Confidence *float64                `json:"confidence"`
	Features   *facematch.BodyFeatures `json:"features"`
}

type bodyResult struct {
	BBox     []float64               `json:"bbox"`
	Weight   float64                 `json:"weight"`
	Features *facematch.BodyFeatures `json:"features"`
}

// Detect uploads the frame as JPEG and converts the response to detections.
func (c *Client) Detect(ctx context.Context, frame image.Image) ([]facematch.Detection, error) {
	var img bytes.Buffer
	if err := jpeg.Encode(&img, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.postMultipartImage(ctx, detectEndpoint, img.Bytes())
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(result.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return convert(frame, resp), nil
}

// postMultipartImage posts the image as the "file" form field.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func convert(frame image.Image, resp detectResponse) []facematch.Detection {
	faces := make([]facematch.Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		region, ok := facematch.RegionFromBBox(f.BBox)
		if !ok {
			slog.Warn("detector: skipping face with malformed bbox", "bbox", f.BBox)
			continue
		}
		conf := defaultFaceConfidence
		if f.Confidence != nil {
			conf = *f.Confidence
		}
		faces = append(faces, facematch.Detection{
			Modality:   facematch.ModalityFace,
			Region:     region,
			Confidence: conf,
			Encoding:   f.Encoding,
			Features:   f.Features,
		})
	}

	// Every body shares one confidence derived from the first weight.
	bodyConf := 0.3
	if len(resp.Bodies) > 0 && resp.Bodies[0].Weight > 0.5 {
		bodyConf = 0.7
	}

	bodies := make([]facematch.Detection, 0, len(resp.Bodies))
	for _, b := range resp.Bodies {
		region, ok := facematch.RegionFromBBox(b.BBox)
		if !ok {
			slog.Warn("detector: skipping body with malformed bbox", "bbox", b.BBox)
			continue
		}
		features := b.Features
		if features == nil {
			features = ExtractBodyFeatures(frame, region)
		}
		bodies = append(bodies, facematch.Detection{
			Modality:   facematch.ModalityBody,
			Region:     region,
			Confidence: bodyConf,
			Features:   features,
		})
	}

	return Order(faces, bodies)
}
