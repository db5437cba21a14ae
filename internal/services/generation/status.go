package generation

import "sync"

// Status is the /status document, shaped exactly like the reference
// front-end expects it.
type Status struct {
	Progress     int    `json:"progress"`
	Message      string `json:"message"`
	IsGenerating bool   `json:"is_generating"`
}

// Tracker holds the current generation status for polling clients. The
// WebSocket notifications carry the same events; this is the pull-based
// fallback.
type Tracker struct {
	mu      sync.Mutex
	current Status
}

func NewTracker() *Tracker {
	return &Tracker{current: Status{Message: "Idle"}}
}

func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tracker) SetMessage(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.Message = message
}

func (t *Tracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Status{Progress: 0, Message: "Starting Generation...", IsGenerating: true}
}

func (t *Tracker) SetProgress(step, totalSteps int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if totalSteps > 0 {
		t.current.Progress = step * 100 / totalSteps
	}
	t.current.Message = "Generating..."
}

func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Status{Progress: 100, Message: "Idle", IsGenerating: false}
}

func (t *Tracker) Fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.IsGenerating = false
	t.current.Message = "Error: " + message
}
