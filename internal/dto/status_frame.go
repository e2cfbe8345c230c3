// StatusFrame is one refresh of the status panel, streamed to viewers as JSON.
package dto

import "time"

type DrawOp struct {
	Op   string `json:"op"` // clear, text, circle, fill
	X    int    `json:"x,omitempty"`
	Y    int    `json:"y,omitempty"`
	W    int    `json:"w,omitempty"`
	H    int    `json:"h,omitempty"`
	R    int    `json:"r,omitempty"`
	Text string `json:"text,omitempty"`
}

type StatusFrame struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Ops    []DrawOp  `json:"ops"`
	SentAt time.Time `json:"sentAt"`
}
