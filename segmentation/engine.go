package segmentation

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

// Engine owns the single strategy instance. Load, Process and Reset all run
// under the same mutex so a reset signal never interleaves with inference.
type Engine struct {
	factory Factory

	loaded   atomic.Bool
	mu       sync.Mutex
	strategy Strategy
	size     image.Point
}

func NewEngine(factory Factory) *Engine {
	return &Engine{factory: factory}
}

// Load builds the named strategy bound to size. Calls after a successful
// load are no-ops, whatever their arguments.
func (e *Engine) Load(size image.Point, name string) error {
	if e.loaded.Load() {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.strategy != nil {
		return nil
	}

	kind, err := ParseKind(name)
	if err != nil {
		return err
	}

	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("invalid output size %v", size)
	}

	lgr.Logger.Info(
		"loading segmentation strategy",
		slog.String("strategy", kind.String()),
		slog.Int("width", size.X),
		slog.Int("height", size.Y),
	)

	strategy, err := e.factory(kind, size)
	if err != nil {
		return fmt.Errorf("error building %s strategy: %w", kind, err)
	}

	e.strategy = strategy
	e.size = size
	e.loaded.Store(true)
	return nil
}

func (e *Engine) Loaded() bool {
	return e.loaded.Load()
}

// Size is the bound output size, zero before Load.
func (e *Engine) Size() image.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size
}

func (e *Engine) Kind() Kind {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.strategy == nil {
		return 0
	}
	return e.strategy.Kind()
}

// Process runs the active strategy. The caller owns the returned mask.
func (e *Engine) Process(in Input) (gocv.Mat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.strategy == nil {
		return gocv.NewMat(), ErrNotLoaded
	}

	if in.Image.Cols() != e.size.X || in.Image.Rows() != e.size.Y {
		return gocv.NewMat(), fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrSizeMismatch, in.Image.Cols(), in.Image.Rows(), e.size.X, e.size.Y)
	}

	return e.strategy.Process(in)
}

// Reset clears the strategy's carried state but keeps the instance.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.strategy != nil {
		e.strategy.Reset()
	}
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.strategy == nil {
		return nil
	}

	err := e.strategy.Close()
	e.strategy = nil
	e.size = image.Point{}
	e.loaded.Store(false)
	return err
}
