package pipeline

import (
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/khaledhikmat/vs-segmenter/activation"
	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/segmentation"
	"github.com/khaledhikmat/vs-segmenter/service/bridge"
	"github.com/khaledhikmat/vs-segmenter/spatial"
)

const (
	testNode  = "image_processor_node"
	testW     = 16
	testH     = 12
	threshold = 0.0075
)

type countingStrategy struct {
	size      image.Point
	processed atomic.Int32
	resets    atomic.Int32
	closed    atomic.Int32
	offsets   []r3.Vector
	mu        sync.Mutex
}

func (c *countingStrategy) Kind() segmentation.Kind { return segmentation.Flow }

func (c *countingStrategy) Process(in segmentation.Input) (gocv.Mat, error) {
	c.processed.Add(1)
	c.mu.Lock()
	c.offsets = append(c.offsets, in.Offset)
	c.mu.Unlock()
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), c.size.Y, c.size.X, gocv.MatTypeCV8UC1), nil
}

func (c *countingStrategy) Reset() { c.resets.Add(1) }

func (c *countingStrategy) Close() error {
	c.closed.Add(1)
	return nil
}

type fixture struct {
	proc     *Processor
	strategy *countingStrategy
	clock    time.Time
}

func newFixture(t *testing.T, movementThreshold float64, load bool) *fixture {
	t.Helper()

	f := &fixture{clock: time.Unix(1700000000, 0)}
	engine := segmentation.NewEngine(func(_ segmentation.Kind, size image.Point) (segmentation.Strategy, error) {
		f.strategy = &countingStrategy{size: size}
		return f.strategy, nil
	})

	proc, err := NewProcessor(ProcessorConfig{
		Node:              testNode,
		Strategy:          "flow",
		MovementThreshold: movementThreshold,
	}, bridge.NewGoCV(), engine)
	require.NoError(t, err)
	f.proc = proc

	if load {
		require.NoError(t, proc.OnCameraInfo(model.CameraInfo{FrameID: "camera_link", Width: testW, Height: testH}))
	}
	return f
}

func (f *fixture) frame() model.Image {
	f.clock = f.clock.Add(33 * time.Millisecond)
	return model.Image{
		Stamp:    f.clock,
		FrameID:  "camera_link",
		Width:    testW,
		Height:   testH,
		Encoding: bridge.EncodingRGB8,
		Data:     make([]byte, testW*testH*3),
	}
}

func at(rot mat.Matrix, x float64) *spatial.Pose {
	p, _ := spatial.NewPose(rot, r3.Vector{X: x}, time.Time{})
	return &p
}

func TestNewProcessorRejectsNegativeThreshold(t *testing.T) {
	_, err := NewProcessor(ProcessorConfig{MovementThreshold: -1}, bridge.NewGoCV(), segmentation.NewEngine(nil))
	assert.Error(t, err)
}

func TestDropsUntilLoaded(t *testing.T) {
	f := newFixture(t, 0, false)

	pair, err := f.proc.OnFrame(f.frame(), nil)
	require.NoError(t, err)
	assert.Nil(t, pair)
	assert.False(t, f.proc.Loaded())

	// Info without a frame id is not enough to load.
	require.NoError(t, f.proc.OnCameraInfo(model.CameraInfo{Width: testW, Height: testH}))
	assert.False(t, f.proc.Loaded())

	require.NoError(t, f.proc.OnCameraInfo(model.CameraInfo{FrameID: "camera_link", Width: testW, Height: testH}))
	assert.True(t, f.proc.Loaded())
	assert.Equal(t, "camera_link", f.proc.CameraFrame())
	assert.Equal(t, segmentation.Flow, f.proc.Strategy())

	stats := f.proc.Stats()
	assert.Equal(t, 1, stats.Frames)
	assert.Equal(t, 1, stats.DroppedNotLoaded)
}

func TestRepeatedCameraInfoIsIdempotent(t *testing.T) {
	f := newFixture(t, 0, true)
	first := f.strategy

	require.NoError(t, f.proc.OnCameraInfo(model.CameraInfo{FrameID: "camera_link", Width: 64, Height: 64}))
	assert.Same(t, first, f.strategy)
}

func TestUnknownStrategyIsFatal(t *testing.T) {
	engine := segmentation.NewEngine(segmentation.NewFactory(segmentation.DefaultParameters()))
	proc, err := NewProcessor(ProcessorConfig{Node: testNode, Strategy: "raft"}, bridge.NewGoCV(), engine)
	require.NoError(t, err)

	err = proc.OnCameraInfo(model.CameraInfo{FrameID: "camera_link", Width: testW, Height: testH})
	require.ErrorIs(t, err, segmentation.ErrUnknownStrategy)
	assert.False(t, proc.Loaded())
}

func TestGatingDisabledEmitsEveryFrame(t *testing.T) {
	f := newFixture(t, 0, true)
	assert.False(t, f.proc.GatingEnabled())

	for i := 0; i < 3; i++ {
		img := f.frame()
		pair, err := f.proc.OnFrame(img, nil)
		require.NoError(t, err)
		require.NotNil(t, pair)

		assert.Equal(t, r3.Vector{}, pair.Offset)
		assert.Equal(t, img.Stamp, pair.Stamp)
		assert.Equal(t, img.Stamp, pair.Mask.Stamp)
		assert.Equal(t, bridge.EncodingMono8, pair.Mask.Encoding)
		assert.Equal(t, testW, pair.Mask.Width)
		assert.Equal(t, testH, pair.Mask.Height)
		assert.NotEmpty(t, pair.ID)
	}

	assert.Equal(t, 3, f.proc.Stats().Emitted)
}

func TestGatedProceedCarriesOffset(t *testing.T) {
	f := newFixture(t, threshold, true)
	require.True(t, f.proc.GatingEnabled())

	pair, err := f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0))
	require.NoError(t, err)
	assert.Nil(t, pair, "baseline frame")

	pair, err = f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0.01))
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.InDelta(t, 1, pair.Offset.X, 1e-12)
	assert.InDelta(t, 0, pair.Offset.Y, 1e-12)
	assert.InDelta(t, 0, pair.Offset.Z, 1e-12)

	// The strategy saw the same offset.
	require.Len(t, f.strategy.offsets, 1)
	assert.Equal(t, pair.Offset, f.strategy.offsets[0])
}

func TestInsufficientMotionDropsWithoutSegmenting(t *testing.T) {
	f := newFixture(t, threshold, true)

	_, _ = f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0))
	pair, err := f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0.001))
	require.NoError(t, err)
	assert.Nil(t, pair)

	assert.Zero(t, f.strategy.processed.Load())
	assert.Equal(t, 2, f.proc.Stats().SkippedMotion)
}

func TestMissingPoseDropsWhenGated(t *testing.T) {
	f := newFixture(t, threshold, true)

	pair, err := f.proc.OnFrame(f.frame(), nil)
	require.NoError(t, err)
	assert.Nil(t, pair)
	assert.Equal(t, 1, f.proc.Stats().MissingPose)
}

func TestStaleSkipSuppressesFollowingFrame(t *testing.T) {
	f := newFixture(t, threshold, true)
	rotated := spatial.RotationZ(spatial.Radians(1))

	_, _ = f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0))

	// Stale: dropped, baseline moves to the rotated pose.
	pair, err := f.proc.OnFrame(f.frame(), at(rotated, 0.01))
	require.NoError(t, err)
	assert.Nil(t, pair)
	assert.True(t, f.proc.Activation().LastSkipped)
	assert.Zero(t, f.strategy.processed.Load())

	// Valid motion, but carries the skip: segmented then suppressed.
	pair, err = f.proc.OnFrame(f.frame(), at(rotated, 0.02))
	require.NoError(t, err)
	assert.Nil(t, pair)
	assert.EqualValues(t, 1, f.strategy.processed.Load())
	assert.False(t, f.proc.Activation().LastSkipped)

	// Emits normally.
	pair, err = f.proc.OnFrame(f.frame(), at(rotated, 0.03))
	require.NoError(t, err)
	require.NotNil(t, pair)

	stats := f.proc.Stats()
	assert.Equal(t, 1, stats.SkippedStale)
	assert.Equal(t, 1, stats.Suppressed)
	assert.Equal(t, 1, stats.Emitted)
}

func TestResetSuppressesFirstFrame(t *testing.T) {
	f := newFixture(t, 0, true)

	f.proc.Reset(true)
	assert.EqualValues(t, 1, f.strategy.resets.Load())
	assert.Equal(t, activation.State{JustActivated: true}, f.proc.Activation())

	pair, err := f.proc.OnFrame(f.frame(), nil)
	require.NoError(t, err)
	assert.Nil(t, pair)

	pair, err = f.proc.OnFrame(f.frame(), nil)
	require.NoError(t, err)
	assert.NotNil(t, pair)

	assert.EqualValues(t, 2, f.strategy.processed.Load())
}

func TestResetClearsPoseAndCachedImage(t *testing.T) {
	f := newFixture(t, threshold, true)

	_, _ = f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0))
	_, ok := f.proc.LastImage()
	assert.True(t, ok)

	f.proc.Reset(true)
	_, ok = f.proc.LastImage()
	assert.False(t, ok)

	// Baseline was cleared so this becomes the new baseline instead of proceeding.
	pair, err := f.proc.OnFrame(f.frame(), at(spatial.Identity(), 1))
	require.NoError(t, err)
	assert.Nil(t, pair)
	assert.Zero(t, f.strategy.processed.Load())
}

func TestResetKeepingPose(t *testing.T) {
	f := newFixture(t, threshold, true)

	_, _ = f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0))
	f.proc.Reset(false)

	// Baseline kept: proceeds, but the first output after reset is suppressed.
	pair, err := f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0.01))
	require.NoError(t, err)
	assert.Nil(t, pair)
	assert.EqualValues(t, 1, f.strategy.processed.Load())

	pair, err = f.proc.OnFrame(f.frame(), at(spatial.Identity(), 0.02))
	require.NoError(t, err)
	assert.NotNil(t, pair)
}

func TestHandleTransition(t *testing.T) {
	f := newFixture(t, 0, true)

	t.Run("other node is ignored", func(t *testing.T) {
		err := f.proc.HandleTransition(model.StateTransition{Actions: []model.NodeAction{
			{Node: "point_tracker_node", Action: "explode"},
		}})
		require.NoError(t, err)
		assert.Equal(t, activation.State{}, f.proc.Activation())
	})

	t.Run("activate is a no-op", func(t *testing.T) {
		err := f.proc.HandleTransition(model.StateTransition{Actions: []model.NodeAction{
			{Node: testNode, Action: ActionActivate},
		}})
		require.NoError(t, err)
		assert.Equal(t, activation.State{}, f.proc.Activation())
	})

	t.Run("reset", func(t *testing.T) {
		err := f.proc.HandleTransition(model.StateTransition{Actions: []model.NodeAction{
			{Node: testNode, Action: ActionReset},
		}})
		require.NoError(t, err)
		assert.True(t, f.proc.Activation().JustActivated)
	})

	t.Run("unknown action is fatal", func(t *testing.T) {
		err := f.proc.HandleTransition(model.StateTransition{Actions: []model.NodeAction{
			{Node: testNode, Action: "pause"},
		}})
		assert.ErrorIs(t, err, ErrUnknownAction)
	})
}

func TestBadFrameIsReportedNotEmitted(t *testing.T) {
	f := newFixture(t, 0, true)

	img := f.frame()
	img.Data = img.Data[:10]
	pair, err := f.proc.OnFrame(img, nil)
	assert.Error(t, err)
	assert.Nil(t, pair)

	img = f.frame()
	img.Width, img.Height = 8, 8
	img.Data = make([]byte, 8*8*3)
	pair, err = f.proc.OnFrame(img, nil)
	assert.ErrorIs(t, err, segmentation.ErrSizeMismatch)
	assert.Nil(t, pair)
}

func TestConcurrentResetWhileProcessing(t *testing.T) {
	f := newFixture(t, 0, true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := f.proc.OnFrame(f.frameAt(i), nil)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			f.proc.Reset(i%2 == 0)
		}
	}()
	wg.Wait()

	stats := f.proc.Stats()
	assert.Equal(t, 50, stats.Frames)
	assert.Equal(t, 50, stats.Emitted+stats.Suppressed)
}

// frameAt builds a frame without touching the shared clock.
func (f *fixture) frameAt(i int) model.Image {
	return model.Image{
		Stamp:    time.Unix(int64(i), 0),
		Width:    testW,
		Height:   testH,
		Encoding: bridge.EncodingRGB8,
		Data:     make([]byte, testW*testH*3),
	}
}

func TestCloseReleasesStrategy(t *testing.T) {
	f := newFixture(t, 0, true)

	require.NoError(t, f.proc.Close())
	assert.Equal(t, int32(1), f.strategy.closed.Load())
	assert.False(t, f.proc.Loaded())

	pair, err := f.proc.OnFrame(f.frame(), nil)
	require.NoError(t, err)
	assert.Nil(t, pair)
	assert.Equal(t, 1, f.proc.Stats().DroppedNotLoaded)

	require.NoError(t, f.proc.Close())
	assert.Equal(t, int32(1), f.strategy.closed.Load())
}
