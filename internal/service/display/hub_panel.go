package display

import (
	"encoding/json"
	"sync"
	"time"

	"motioncam/internal/dto"
)

// Broadcaster delivers an encoded frame to viewers without blocking.
type Broadcaster interface {
	Broadcast(message []byte) bool
}

// HubPanel keeps the scene drawn since the last Clear and streams it on every Flush.
type HubPanel struct {
	out   Broadcaster
	ops   []dto.DrawOp
	mu    sync.Mutex
	clock func() time.Time
}

func NewHubPanel(out Broadcaster) *HubPanel {
	return &HubPanel{out: out, clock: time.Now}
}

func (p *HubPanel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = []dto.DrawOp{{Op: "clear"}}
}

func (p *HubPanel) Text(x, y int, s string) {
	p.add(dto.DrawOp{Op: "text", X: x, Y: y, Text: s})
}

func (p *HubPanel) Circle(x, y, r int) {
	p.add(dto.DrawOp{Op: "circle", X: x, Y: y, R: r})
}

// FillRect paints the area black.
func (p *HubPanel) FillRect(x, y, w, h int) {
	p.add(dto.DrawOp{Op: "fill", X: x, Y: y, W: w, H: h})
}

func (p *HubPanel) add(op dto.DrawOp) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op)
}

// Snapshot returns the current scene.
func (p *HubPanel) Snapshot() dto.StatusFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := make([]dto.DrawOp, len(p.ops))
	copy(ops, p.ops)
	return dto.StatusFrame{Width: Width, Height: Height, Ops: ops, SentAt: p.clock()}
}

func (p *HubPanel) Flush() error {
	data, err := json.Marshal(p.Snapshot())
	if err != nil {
		return err
	}
	p.out.Broadcast(data)
	return nil
}
