package model

// State is a node of the capture-upload state machine.
type State int

const (
	StateIdle State = iota
	StateTriggered
	StateCapturing
	StatePersisted
	StateCaptureFailed
	StateUploading
)

var stateNames = map[State]string{
	StateIdle:          "idle",
	StateTriggered:     "triggered",
	StateCapturing:     "capturing",
	StatePersisted:     "persisted",
	StateCaptureFailed: "capture_failed",
	StateUploading:     "uploading",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
