// Package display draws the status panel. It holds no business logic: nothing
// drawn here feeds back into capture or upload decisions.
package display

import (
	"math"
	"strings"

	"motioncam/internal/logger"
)

// Panel geometry and layout of a 128x64 monochrome display.
const (
	Width  = 128
	Height = 64

	statusX      = 72
	statusTop    = 24
	circleX      = 32
	circleY      = 32
	detectingY   = 8
	dotsY        = 16
	statusLine1  = 32
	statusLine2  = 40
	uploadingY   = 52
	radiusFactor = 5

	// DefaultAnimationFrames is the length of the idle animation cycle.
	DefaultAnimationFrames = 4
)

// Panel is the display collaborator.
type Panel interface {
	Clear()
	Text(x, y int, s string)
	Circle(x, y, r int)
	FillRect(x, y, w, h int)
	Flush() error
}

// PhaseKind selects which status text is shown.
type PhaseKind int

const (
	PhaseIdle PhaseKind = iota
	PhaseDetecting
	PhaseUploading
)

// Phase is what the renderer is asked to show.
type Phase struct {
	Kind  PhaseKind
	Stamp string
}

func Idle() Phase                  { return Phase{Kind: PhaseIdle} }
func Detecting(stamp string) Phase { return Phase{Kind: PhaseDetecting, Stamp: stamp} }
func Uploading() Phase             { return Phase{Kind: PhaseUploading} }

// Renderer owns the animation counter (0..frames-1).
type Renderer struct {
	panel  Panel
	frame  int
	frames int
	logger *logger.Logger
}

func NewRenderer(panel Panel, frames int, logger *logger.Logger) *Renderer {
	if frames < 1 {
		frames = DefaultAnimationFrames
	}
	return &Renderer{panel: panel, frames: frames, logger: logger}
}

// Frame returns the animation frame the next Render will draw.
func (r *Renderer) Frame() int {
	return r.frame
}

// Ready shows the boot banner.
func (r *Renderer) Ready() {
	r.panel.Clear()
	r.panel.Text(0, 0, "Ready")
	r.flush()
}

// Render draws phase. Idle and Detecting are the once-per-tick status and
// advance the animation; Uploading overlays its line without advancing.
func (r *Renderer) Render(phase Phase) {
	switch phase.Kind {
	case PhaseUploading:
		r.panel.Text(statusX, uploadingY, "Uploading...")
	case PhaseDetecting:
		r.drawAnimation()
		r.panel.Text(statusX, statusLine1, phase.Stamp)
		r.panel.Text(statusX, statusLine2, "Detected")
	default:
		r.drawAnimation()
		r.panel.Text(statusX, statusLine1, "No object")
		r.panel.Text(statusX, statusLine2, "detected")
	}
	r.flush()
}

func (r *Renderer) drawAnimation() {
	r.panel.Text(statusX, detectingY, "Detecting")
	r.panel.Circle(circleX, circleY, Radius(r.frame))
	r.panel.Text(statusX, dotsY, strings.Repeat(".", r.frame))
	r.frame++
}

// Settle ends a tick. When the animation has run its full cycle the counter
// resets, the panel is cleared and true is returned; otherwise only the status
// area is erased.
func (r *Renderer) Settle() bool {
	if r.frame >= r.frames {
		r.frame = 0
		r.panel.Clear()
		r.flush()
		return true
	}
	r.panel.FillRect(statusX, statusTop, Width-statusX, Height-statusTop)
	r.flush()
	return false
}

func (r *Renderer) flush() {
	if err := r.panel.Flush(); err != nil {
		r.logger.Warning("Display refresh failed: %v", err)
	}
}

// Radius is the animation circle radius for a frame: frame^1.5 * 5.
func Radius(frame int) int {
	return int(math.Pow(float64(frame), 1.5) * radiusFactor)
}
