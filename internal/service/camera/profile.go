package camera

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// frameSizes maps the sensor frame-size names onto pixel dimensions.
var frameSizes = map[string][2]int{
	"QVGA": {320, 240},
	"VGA":  {640, 480},
	"SVGA": {800, 600},
	"XGA":  {1024, 768},
	"HD":   {1280, 720},
	"SXGA": {1280, 1024},
	"UXGA": {1600, 1200},
}

// Mode is a frame size plus the JPEG quality used with it.
type Mode struct {
	FrameSize   string `yaml:"frame_size"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// Dimensions returns width and height of the mode's frame size.
func (m Mode) Dimensions() (int, int) {
	d := frameSizes[strings.ToUpper(m.FrameSize)]
	return d[0], d[1]
}

// Profile is the declarative hardware configuration handed to Driver.Init.
type Profile struct {
	Device       string `yaml:"device"`
	PixelFormat  string `yaml:"pixel_format"`
	GrabMode     string `yaml:"grab_mode"`
	FrameBuffers int    `yaml:"frame_buffers"`
	WarmupFrames int    `yaml:"warmup_frames"`
	Preferred    Mode   `yaml:"preferred"`
	// Fallback is used when the device cannot deliver the preferred frame size.
	Fallback Mode `yaml:"fallback"`
}

// DefaultProfile mirrors the stock OV2640 setup: UXGA when the hardware allows, SVGA otherwise.
func DefaultProfile() Profile {
	return Profile{
		Device:       "0",
		PixelFormat:  "jpeg",
		GrabMode:     "latest",
		FrameBuffers: 1,
		WarmupFrames: 4,
		Preferred:    Mode{FrameSize: "UXGA", JPEGQuality: 90},
		Fallback:     Mode{FrameSize: "SVGA", JPEGQuality: 85},
	}
}

// LoadProfile reads a YAML profile over the defaults. An empty path returns the defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("failed to read camera profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse camera profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return profile, err
	}
	return profile, nil
}

// Validate checks the profile describes something a driver can honor.
func (p Profile) Validate() error {
	if !strings.EqualFold(p.PixelFormat, "jpeg") {
		return fmt.Errorf("unsupported pixel format %q", p.PixelFormat)
	}
	for _, m := range []Mode{p.Preferred, p.Fallback} {
		if _, ok := frameSizes[strings.ToUpper(m.FrameSize)]; !ok {
			return fmt.Errorf("unknown frame size %q", m.FrameSize)
		}
		if m.JPEGQuality < 1 || m.JPEGQuality > 100 {
			return fmt.Errorf("jpeg quality %d out of range 1..100", m.JPEGQuality)
		}
	}
	if p.FrameBuffers < 1 {
		return fmt.Errorf("frame_buffers must be at least 1")
	}
	if p.WarmupFrames < 0 {
		return fmt.Errorf("warmup_frames must not be negative")
	}
	return nil
}
