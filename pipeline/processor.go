package pipeline

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-segmenter/activation"
	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/motion"
	"github.com/khaledhikmat/vs-segmenter/segmentation"
	"github.com/khaledhikmat/vs-segmenter/service/bridge"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
	"github.com/khaledhikmat/vs-segmenter/spatial"
)

const (
	ActionActivate = "activate"
	ActionReset    = "reset"
)

var ErrUnknownAction = xerrors.New("unknown control action")

type ProcessorConfig struct {
	Node              string
	Strategy          string
	MovementThreshold float64
}

type ProcessorStats struct {
	Frames           int
	DroppedNotLoaded int
	SkippedMotion    int
	SkippedStale     int
	MissingPose      int
	Suppressed       int
	Emitted          int
}

// Processor gates, segments and pairs camera frames for one node.
//
// Frames are handled one at a time in arrival order. Camera info and
// control signals may arrive from other goroutines while a frame is in
// flight; the engine, gate and activation controller each guard themselves.
type Processor struct {
	cfg        ProcessorConfig
	converter  bridge.IService
	engine     *segmentation.Engine
	gate       *motion.Gate
	activation *activation.Controller

	frameMu sync.Mutex

	mu        sync.Mutex
	camera    model.CameraInfo
	lastImage *model.Image
	stats     ProcessorStats
}

func NewProcessor(cfg ProcessorConfig, converter bridge.IService, engine *segmentation.Engine) (*Processor, error) {
	gate, err := motion.NewGate(cfg.MovementThreshold)
	if err != nil {
		return nil, err
	}

	return &Processor{
		cfg:        cfg,
		converter:  converter,
		engine:     engine,
		gate:       gate,
		activation: activation.NewController(),
	}, nil
}

// GatingEnabled reports whether frames need a pose.
func (p *Processor) GatingEnabled() bool {
	return p.gate.Enabled()
}

func (p *Processor) Loaded() bool {
	return p.engine.Loaded()
}

// CameraFrame is the coordinate frame announced by camera info.
func (p *Processor) CameraFrame() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.camera.FrameID
}

// OnCameraInfo records the camera and lazily loads the engine at the
// announced size. Announcements without a frame id are recorded only.
func (p *Processor) OnCameraInfo(info model.CameraInfo) error {
	p.mu.Lock()
	p.camera = info
	p.mu.Unlock()

	if info.FrameID == "" {
		return nil
	}

	return p.engine.Load(image.Pt(info.Width, info.Height), p.cfg.Strategy)
}

// Close releases the engine's strategy. The processor drops frames afterwards.
func (p *Processor) Close() error {
	return p.engine.Close()
}

// OnFrame returns the pair for img, or nil when the frame is dropped.
// pose may be nil when gating is disabled. Errors are never fatal to the
// node; the frame is dropped.
func (p *Processor) OnFrame(img model.Image, pose *spatial.Pose) (*model.FramePair, error) {
	p.frameMu.Lock()
	defer p.frameMu.Unlock()

	p.mu.Lock()
	p.stats.Frames++
	p.lastImage = &img
	p.mu.Unlock()

	if !p.engine.Loaded() {
		p.count(func(s *ProcessorStats) { s.DroppedNotLoaded++ })
		return nil, nil
	}

	offset := r3.Vector{}
	if p.gate.Enabled() {
		if pose == nil {
			p.count(func(s *ProcessorStats) { s.MissingPose++ })
			lgr.Logger.Debug("frame dropped without pose", slog.Time("stamp", img.Stamp))
			return nil, nil
		}

		decision := p.gate.Evaluate(*pose)
		switch decision.Kind {
		case motion.SkipStale:
			p.activation.MarkSkipped()
			p.count(func(s *ProcessorStats) { s.SkippedStale++ })
			lgr.Logger.Debug("frame dropped on stale baseline", slog.Time("stamp", img.Stamp))
			return nil, nil
		case motion.SkipInsufficientMotion:
			p.count(func(s *ProcessorStats) { s.SkippedMotion++ })
			return nil, nil
		}
		offset = decision.Offset
	}

	mat, err := p.converter.ToMat(img)
	if err != nil {
		return nil, fmt.Errorf("error converting frame: %w", err)
	}
	defer mat.Close()

	// Segment before the suppression check so stateful strategies still see
	// the frames whose output is discarded.
	mask, err := p.engine.Process(segmentation.Input{Image: mat, Offset: offset})
	defer mask.Close()
	if err != nil {
		return nil, fmt.Errorf("error segmenting frame: %w", err)
	}

	if reason := p.activation.Suppress(); reason != activation.None {
		p.count(func(s *ProcessorStats) { s.Suppressed++ })
		lgr.Logger.Debug("frame suppressed",
			slog.String("reason", reason.String()),
			slog.Time("stamp", img.Stamp),
		)
		return nil, nil
	}

	maskImg, err := p.converter.FromMat(mask, bridge.EncodingMono8, img.Stamp, img.FrameID)
	if err != nil {
		return nil, fmt.Errorf("error converting mask: %w", err)
	}

	p.count(func(s *ProcessorStats) { s.Emitted++ })
	return &model.FramePair{
		ID:     uuid.NewString(),
		Image:  img,
		Mask:   maskImg,
		Offset: offset,
		Stamp:  img.Stamp,
	}, nil
}

// Reset suppresses the next emitted frame and clears strategy state and the
// cached frame. With resetPose the motion baseline is dropped too. It does
// not wait for a frame already being processed.
func (p *Processor) Reset(resetPose bool) {
	p.engine.Reset()
	p.activation.Reset()

	p.mu.Lock()
	p.lastImage = nil
	p.mu.Unlock()

	if resetPose {
		p.gate.Reset()
	}
}

// HandleTransition applies the action addressed to this node, if any.
func (p *Processor) HandleTransition(st model.StateTransition) error {
	action, ok := st.ActionFor(p.cfg.Node)
	if !ok {
		return nil
	}

	switch action {
	case ActionActivate:
		lgr.Logger.Info("node activated", slog.String("node", p.cfg.Node))
		return nil
	case ActionReset:
		lgr.Logger.Info("node reset", slog.String("node", p.cfg.Node))
		p.Reset(true)
		return nil
	default:
		return fmt.Errorf("%w %q for node %s", ErrUnknownAction, action, p.cfg.Node)
	}
}

// LastImage is the most recent frame received since the last reset.
func (p *Processor) LastImage() (model.Image, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastImage == nil {
		return model.Image{}, false
	}
	return *p.lastImage, true
}

func (p *Processor) Activation() activation.State {
	return p.activation.State()
}

func (p *Processor) Stats() ProcessorStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Processor) Strategy() segmentation.Kind {
	return p.engine.Kind()
}

func (p *Processor) count(fn func(*ProcessorStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.stats)
}
