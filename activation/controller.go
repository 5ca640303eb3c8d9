// Package activation suppresses output that would be unreliable right after
// a reset or right after a stale-rotation skip.
package activation

import "sync"

type State struct {
	JustActivated bool
	LastSkipped   bool
}

type Reason int

const (
	None Reason = iota
	JustActivated
	LastSkipped
)

func (r Reason) String() string {
	switch r {
	case JustActivated:
		return "just_activated"
	case LastSkipped:
		return "last_skipped"
	default:
		return "none"
	}
}

// Controller is safe for use by the frame handler and a concurrent reset signal.
type Controller struct {
	mu    sync.Mutex
	state State
}

func NewController() *Controller {
	return &Controller{}
}

// Reset enters the one-frame JUST_ACTIVATED state and forgets any pending skip.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{JustActivated: true}
}

// MarkSkipped records a stale-rotation skip. The next frame that would be
// emitted is dropped as well.
func (c *Controller) MarkSkipped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LastSkipped = true
}

// Suppress is called once per frame that is otherwise ready to emit. It
// consumes at most one flag, JustActivated before LastSkipped.
func (c *Controller) Suppress() Reason {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.JustActivated {
		c.state.JustActivated = false
		return JustActivated
	}

	if c.state.LastSkipped {
		c.state.LastSkipped = false
		return LastSkipped
	}

	return None
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
