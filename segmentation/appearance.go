package segmentation

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// AppearanceParameters configure the per-frame strategy. With an empty
// ModelPath the strategy falls back to an HSV range segmenter.
type AppearanceParameters struct {
	ModelPath string
	// Network input resolution; the bound size is used when zero.
	InputSize  image.Point
	Confidence float32
	HSVLower   gocv.Scalar
	HSVUpper   gocv.Scalar
}

func DefaultAppearanceParameters() AppearanceParameters {
	return AppearanceParameters{
		Confidence: 0.5,
		HSVLower:   gocv.NewScalar(0, 40, 40, 0),
		HSVUpper:   gocv.NewScalar(180, 255, 255, 0),
	}
}

type appearanceStrategy struct {
	params AppearanceParameters
	size   image.Point
	net    *gocv.Net
	kernel gocv.Mat
}

func newAppearance(params AppearanceParameters, size image.Point) (Strategy, error) {
	s := &appearanceStrategy{
		params: params,
		size:   size,
		kernel: gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
	}

	if params.ModelPath == "" {
		return s, nil
	}

	if _, err := os.Stat(params.ModelPath); err != nil {
		s.kernel.Close()
		return nil, fmt.Errorf("segmentation model %s: %w", params.ModelPath, err)
	}

	net := gocv.ReadNet(params.ModelPath, "")
	if net.Empty() {
		s.kernel.Close()
		return nil, fmt.Errorf("error reading segmentation model %s", params.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		s.kernel.Close()
		return nil, fmt.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		s.kernel.Close()
		return nil, fmt.Errorf("error setting target: %w", err)
	}

	if s.params.InputSize == (image.Point{}) {
		s.params.InputSize = size
	}
	s.net = &net
	return s, nil
}

func (s *appearanceStrategy) Kind() Kind {
	return Appearance
}

func (s *appearanceStrategy) Process(in Input) (gocv.Mat, error) {
	if in.Image.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty frame")
	}

	if s.net != nil {
		return s.infer(in.Image)
	}
	return s.hsvRange(in.Image)
}

func (s *appearanceStrategy) infer(img gocv.Mat) (gocv.Mat, error) {
	// Frames arrive as RGB already, no channel swap.
	blob := gocv.BlobFromImage(img, 1.0/255.0, s.params.InputSize, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 4 {
		return gocv.NewMat(), fmt.Errorf("unexpected segmentation output dims: %v", dims)
	}

	// First channel holds the foreground probability.
	prob := gocv.GetBlobChannel(output, 0, 0)
	defer prob.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(prob, &resized, s.size, 0, 0, gocv.InterpolationLinear)

	scaled := gocv.NewMat()
	defer scaled.Close()
	resized.ConvertToWithParams(&scaled, gocv.MatTypeCV8U, 255, 0)

	mask := gocv.NewMat()
	gocv.Threshold(scaled, &mask, 255*s.params.Confidence, 255, gocv.ThresholdBinary)
	return mask, nil
}

func (s *appearanceStrategy) hsvRange(img gocv.Mat) (gocv.Mat, error) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorRGBToHSV)

	raw := gocv.NewMat()
	defer raw.Close()
	gocv.InRangeWithScalar(hsv, s.params.HSVLower, s.params.HSVUpper, &raw)

	mask := gocv.NewMat()
	gocv.MorphologyEx(raw, &mask, gocv.MorphOpen, s.kernel)
	return mask, nil
}

// Reset is a no-op: nothing is carried between frames.
func (s *appearanceStrategy) Reset() {}

func (s *appearanceStrategy) Close() error {
	if s.net != nil {
		if err := s.net.Close(); err != nil {
			return err
		}
		s.net = nil
	}
	return s.kernel.Close()
}
