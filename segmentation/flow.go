package segmentation

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// FlowParameters tune the Farneback optical flow.
type FlowParameters struct {
	PyrScale   float64
	Levels     int
	WinSize    int
	Iterations int
	PolyN      int
	PolySigma  float64
}

func DefaultFlowParameters() FlowParameters {
	return FlowParameters{
		PyrScale:   0.5,
		Levels:     3,
		WinSize:    15,
		Iterations: 3,
		PolyN:      5,
		PolySigma:  1.2,
	}
}

// flowStrategy segments by parallax: with the camera translating, near
// objects move further across the image than the background. The previous
// grey frame is buffered between calls.
type flowStrategy struct {
	params FlowParameters
	size   image.Point
	prev   gocv.Mat
	primed bool
}

func newFlow(params FlowParameters, size image.Point) (Strategy, error) {
	return &flowStrategy{
		params: params,
		size:   size,
		prev:   gocv.NewMat(),
	}, nil
}

func (s *flowStrategy) Kind() Kind {
	return Flow
}

func (s *flowStrategy) Process(in Input) (gocv.Mat, error) {
	if in.Image.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(in.Image, &gray, gocv.ColorRGBToGray)

	if !s.primed {
		gray.CopyTo(&s.prev)
		s.primed = true
		return gocv.Zeros(s.size.Y, s.size.X, gocv.MatTypeCV8UC1), nil
	}

	flow := gocv.NewMat()
	defer flow.Close()
	gocv.CalcOpticalFlowFarneback(s.prev, gray, &flow,
		s.params.PyrScale, s.params.Levels, s.params.WinSize,
		s.params.Iterations, s.params.PolyN, s.params.PolySigma, 0)

	gray.CopyTo(&s.prev)

	parts := gocv.Split(flow)
	defer func() {
		for _, p := range parts {
			p.Close()
		}
	}()
	if len(parts) != 2 {
		return gocv.NewMat(), fmt.Errorf("unexpected flow channels: %d", len(parts))
	}

	score := gocv.NewMat()
	defer score.Close()

	// Static points drift against the camera's lateral motion. Project the
	// flow on that direction when it is defined, else use the magnitude.
	dx, dy := -in.Offset.X, -in.Offset.Y
	if n := math.Hypot(dx, dy); n > 1e-6 {
		gocv.AddWeighted(parts[0], dx/n, parts[1], dy/n, 0, &score)
		gocv.Threshold(score, &score, 0, 0, gocv.ThresholdToZero)
	} else {
		angle := gocv.NewMat()
		defer angle.Close()
		gocv.CartToPolar(parts[0], parts[1], &score, &angle, false)
	}

	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Normalize(score, &normalized, 0, 255, gocv.NormMinMax)

	mono := gocv.NewMat()
	defer mono.Close()
	normalized.ConvertTo(&mono, gocv.MatTypeCV8U)

	mask := gocv.NewMat()
	gocv.Threshold(mono, &mask, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	return mask, nil
}

// Reset forgets the buffered frame; the next frame primes the strategy again.
func (s *flowStrategy) Reset() {
	s.prev.Close()
	s.prev = gocv.NewMat()
	s.primed = false
}

func (s *flowStrategy) Close() error {
	return s.prev.Close()
}
