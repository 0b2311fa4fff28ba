//go:build gocv

package camera

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"gocv.io/x/gocv"
)

type gocvDevice struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// LiveCapture reports whether this build can open capture devices.
const LiveCapture = true

// OpenDevice opens a webcam by index ("0") or a capture URL/path.
func OpenDevice(device string) (Device, error) {
	var src any = device
	if n, err := strconv.Atoi(device); err == nil {
		src = n
	}

	capture, err := gocv.OpenVideoCapture(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: could not open %s", ErrDeviceUnavailable, device)
	}
	return &gocvDevice{capture: capture, mat: gocv.NewMat()}, nil
}

func (d *gocvDevice) Read() (image.Image, error) {
	if ok := d.capture.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, errors.New("camera: no frame read")
	}
	return d.mat.ToImage()
}

func (d *gocvDevice) Close() error {
	d.mat.Close()
	return d.capture.Close()
}
