package camera

import (
	"fmt"
	"strconv"
	"sync"

	"motioncam/internal/logger"

	"gocv.io/x/gocv"
)

// GocvDriver captures from a V4L2/USB/CSI camera through OpenCV.
type GocvDriver struct {
	capture *gocv.VideoCapture
	mode    Mode
	width   int
	height  int
	logger  *logger.Logger
	mu      sync.Mutex
}

// NewGocvDriver creates an uninitialized driver.
func NewGocvDriver(logger *logger.Logger) *GocvDriver {
	return &GocvDriver{logger: logger}
}

// Init opens the device and negotiates the frame size.
func (d *GocvDriver) Init(profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	var device interface{} = profile.Device
	if id, err := strconv.Atoi(profile.Device); err == nil {
		device = id
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("failed to open camera %s: %w", profile.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("camera %s did not open", profile.Device)
	}

	capture.Set(gocv.VideoCaptureBufferSize, float64(profile.FrameBuffers))

	mode := profile.Preferred
	if !d.negotiate(capture, mode) {
		d.logger.Warning("Camera cannot deliver %s, falling back to %s", mode.FrameSize, profile.Fallback.FrameSize)
		mode = profile.Fallback
		d.negotiate(capture, mode)
	}

	d.mu.Lock()
	d.capture = capture
	d.mode = mode
	d.width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	d.height = int(capture.Get(gocv.VideoCaptureFrameHeight))
	d.mu.Unlock()

	d.logger.Info("Camera has been setup successfully (%dx%d, quality %d)", d.width, d.height, mode.JPEGQuality)
	return nil
}

// negotiate requests the mode's size and reports whether the device accepted it.
func (d *GocvDriver) negotiate(capture *gocv.VideoCapture, mode Mode) bool {
	w, h := mode.Dimensions()
	capture.Set(gocv.VideoCaptureFrameWidth, float64(w))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(h))
	return int(capture.Get(gocv.VideoCaptureFrameWidth)) >= w &&
		int(capture.Get(gocv.VideoCaptureFrameHeight)) >= h
}

// Acquire reads the latest frame and encodes it as JPEG.
func (d *GocvDriver) Acquire() (*Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil, fmt.Errorf("camera not initialized")
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := d.capture.Read(&mat); !ok || mat.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, d.mode.JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	return NewFrame(buf.GetBytes(), mat.Cols(), mat.Rows(), buf.Close), nil
}

// Release frees the native buffer behind frame.
func (d *GocvDriver) Release(frame *Frame) {
	frame.Return()
}

// Close releases the device.
func (d *GocvDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}
