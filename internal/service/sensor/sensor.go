// Package sensor reads the PIR motion sensor.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"motioncam/internal/service/retry"
)

// Sensor reports the binary motion state; one read per orchestrator tick.
type Sensor interface {
	Active() (bool, error)
}

// GPIOSensor reads a digital input through the sysfs GPIO interface.
type GPIOSensor struct {
	root      string
	pin       int
	activeLow bool
}

// NewGPIOSensor creates a sensor on pin below root (normally /sys/class/gpio).
func NewGPIOSensor(root string, pin int, activeLow bool) *GPIOSensor {
	return &GPIOSensor{root: root, pin: pin, activeLow: activeLow}
}

func (s *GPIOSensor) pinDir() string {
	return filepath.Join(s.root, "gpio"+strconv.Itoa(s.pin))
}

// Export makes the pin available and configures it as an input. The kernel
// creates the pin directory asynchronously, so the direction write is retried.
func (s *GPIOSensor) Export(ctx context.Context, timeout time.Duration) error {
	if _, err := os.Stat(s.pinDir()); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(s.root, "export"), []byte(strconv.Itoa(s.pin)), 0644); err != nil {
			return fmt.Errorf("failed to export gpio %d: %w", s.pin, err)
		}
	}

	return retry.Until(ctx, timeout, 50*time.Millisecond, func() error {
		return os.WriteFile(filepath.Join(s.pinDir(), "direction"), []byte("in"), 0644)
	})
}

// Active returns true when motion is detected.
func (s *GPIOSensor) Active() (bool, error) {
	raw, err := os.ReadFile(filepath.Join(s.pinDir(), "value"))
	if err != nil {
		return false, fmt.Errorf("failed to read gpio %d: %w", s.pin, err)
	}

	var high bool
	switch strings.TrimSpace(string(raw)) {
	case "1":
		high = true
	case "0":
		high = false
	default:
		return false, fmt.Errorf("unexpected gpio %d value %q", s.pin, raw)
	}

	return high != s.activeLow, nil
}

// GPIOOutput drives a digital output through sysfs, e.g. the camera flash LED.
type GPIOOutput struct {
	root string
	pin  int
}

func NewGPIOOutput(root string, pin int) *GPIOOutput {
	return &GPIOOutput{root: root, pin: pin}
}

func (o *GPIOOutput) pinDir() string {
	return filepath.Join(o.root, "gpio"+strconv.Itoa(o.pin))
}

// Export makes the pin available and configures it as an output driven low.
func (o *GPIOOutput) Export(ctx context.Context, timeout time.Duration) error {
	if _, err := os.Stat(o.pinDir()); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(o.root, "export"), []byte(strconv.Itoa(o.pin)), 0644); err != nil {
			return fmt.Errorf("failed to export gpio %d: %w", o.pin, err)
		}
	}

	return retry.Until(ctx, timeout, 50*time.Millisecond, func() error {
		return os.WriteFile(filepath.Join(o.pinDir(), "direction"), []byte("low"), 0644)
	})
}

// Set drives the pin high when on.
func (o *GPIOOutput) Set(on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	if err := os.WriteFile(filepath.Join(o.pinDir(), "value"), []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write gpio %d: %w", o.pin, err)
	}
	return nil
}
