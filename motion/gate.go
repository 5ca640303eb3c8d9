// Package motion decides whether the camera moved enough, and rotated little
// enough, since the last accepted pose for a frame to be worth segmenting.
package motion

import (
	"fmt"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/khaledhikmat/vs-segmenter/spatial"
)

// AngularTolerance is the largest relative rotation (radians, Euler norm)
// under which the baseline pose stays valid.
var AngularTolerance = spatial.Radians(0.5)

type Kind int

const (
	SkipInsufficientMotion Kind = iota
	SkipStale
	Proceed
)

func (k Kind) String() string {
	switch k {
	case Proceed:
		return "proceed"
	case SkipStale:
		return "skip_stale"
	default:
		return "skip_insufficient_motion"
	}
}

// Decision is the per-frame verdict of the gate.
// Offset is a unit vector in camera coordinates and is only set on Proceed.
// Baseline marks the evaluation that seeded an empty history.
type Decision struct {
	Kind     Kind
	Offset   r3.Vector
	Baseline bool
}

// Gate holds the last accepted pose. The mutex lets Reset arrive from
// another goroutine while frames are being evaluated.
type Gate struct {
	threshold float64

	mu   sync.Mutex
	last *spatial.Pose
}

func NewGate(threshold float64) (*Gate, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("movement threshold must be >= 0, got %v", threshold)
	}
	return &Gate{threshold: threshold}, nil
}

func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Enabled reports whether frames should go through Evaluate at all.
func (g *Gate) Enabled() bool {
	return g.threshold > 0
}

// Evaluate compares current against the history and updates it on
// Proceed, SkipStale and the initial baseline.
func (g *Gate) Evaluate(current spatial.Pose) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last == nil {
		g.last = &current
		return Decision{Kind: SkipInsufficientMotion, Baseline: true}
	}

	rotation := spatial.EulerXYZ(spatial.RelativeRotation(g.last.Rotation, current.Rotation))
	if rotation.Norm() > AngularTolerance {
		g.last = &current
		return Decision{Kind: SkipStale}
	}

	diff := current.Translation.Sub(g.last.Translation)
	if diff.Norm() < g.threshold {
		return Decision{Kind: SkipInsufficientMotion}
	}

	movement := spatial.InverseRotate(current.Rotation, diff)
	g.last = &current

	return Decision{
		Kind:   Proceed,
		Offset: movement.Normalize(),
	}
}

// Last returns the current baseline, if any.
func (g *Gate) Last() (spatial.Pose, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last == nil {
		return spatial.Pose{}, false
	}
	return *g.last, true
}

func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = nil
}
