package segmentation

import (
	"image"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// halfRed builds an RGB frame whose left half is saturated red and right half grey.
func halfRed(t *testing.T, w, h int) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), h, w, gocv.MatTypeCV8UC3)
	left := img.Region(image.Rect(0, 0, w/2, h))
	left.SetTo(gocv.NewScalar(220, 10, 10, 0))
	left.Close()
	return img
}

func TestAppearanceHSVRange(t *testing.T) {
	size := image.Pt(40, 20)
	s, err := NewFactory(DefaultParameters())(Appearance, size)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, Appearance, s.Kind())

	img := halfRed(t, size.X, size.Y)
	defer img.Close()

	mask, err := s.Process(Input{Image: img})
	require.NoError(t, err)
	defer mask.Close()

	assert.Equal(t, gocv.MatTypeCV8UC1, mask.Type())
	assert.Equal(t, size.Y, mask.Rows())
	assert.Equal(t, size.X, mask.Cols())
	assert.Equal(t, uint8(255), mask.GetUCharAt(10, 5))
	assert.Equal(t, uint8(0), mask.GetUCharAt(10, 35))
}

func TestAppearanceMissingModel(t *testing.T) {
	params := DefaultParameters()
	params.Appearance.ModelPath = "./does-not-exist.onnx"

	_, err := NewFactory(params)(Appearance, image.Pt(8, 8))
	assert.Error(t, err)
}

func TestAppearanceRejectsEmptyFrame(t *testing.T) {
	s, err := NewFactory(DefaultParameters())(Appearance, image.Pt(8, 8))
	require.NoError(t, err)
	defer s.Close()

	empty := gocv.NewMat()
	defer empty.Close()
	mask, err := s.Process(Input{Image: empty})
	mask.Close()
	assert.Error(t, err)
}

func TestFlowPrimesOnFirstFrame(t *testing.T) {
	size := image.Pt(32, 24)
	s, err := NewFactory(DefaultParameters())(Flow, size)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, Flow, s.Kind())

	img := halfRed(t, size.X, size.Y)
	defer img.Close()

	first, err := s.Process(Input{Image: img})
	require.NoError(t, err)
	defer first.Close()
	assert.Equal(t, gocv.MatTypeCV8UC1, first.Type())
	assert.Zero(t, gocv.CountNonZero(first))

	second, err := s.Process(Input{Image: img, Offset: r3.Vector{X: 1}})
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, gocv.MatTypeCV8UC1, second.Type())
	assert.Equal(t, size.Y, second.Rows())
	assert.Equal(t, size.X, second.Cols())
}

func TestFlowResetDropsBufferedFrame(t *testing.T) {
	size := image.Pt(32, 24)
	s, err := NewFactory(DefaultParameters())(Flow, size)
	require.NoError(t, err)
	defer s.Close()

	img := halfRed(t, size.X, size.Y)
	defer img.Close()

	m, err := s.Process(Input{Image: img})
	require.NoError(t, err)
	m.Close()

	s.Reset()

	// Primed again: the frame after a reset has nothing to diff against.
	again, err := s.Process(Input{Image: img})
	require.NoError(t, err)
	defer again.Close()
	assert.Zero(t, gocv.CountNonZero(again))
}

func TestFactoryUnknownKind(t *testing.T) {
	_, err := NewFactory(DefaultParameters())(Kind(42), image.Pt(8, 8))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
