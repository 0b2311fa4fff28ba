//go:build !gocv

package camera

import "fmt"

// LiveCapture reports whether this build can open capture devices.
const LiveCapture = false

// OpenDevice needs OpenCV; build with -tags gocv for live capture.
func OpenDevice(device string) (Device, error) {
	return nil, fmt.Errorf("%w: %s: live capture requires the gocv build tag", ErrDeviceUnavailable, device)
}
