package bridge

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-segmenter/model"
)

type gocvService struct {
}

func NewGoCV() IService {
	return &gocvService{}
}

func channels(encoding string) (int, gocv.MatType, error) {
	switch encoding {
	case EncodingRGB8, EncodingBGR8:
		return 3, gocv.MatTypeCV8UC3, nil
	case EncodingRGBA8:
		return 4, gocv.MatTypeCV8UC4, nil
	case EncodingMono8:
		return 1, gocv.MatTypeCV8UC1, nil
	default:
		return 0, 0, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

func (svc *gocvService) ToMat(img model.Image) (gocv.Mat, error) {
	ch, mt, err := channels(img.Encoding)
	if err != nil {
		return gocv.NewMat(), err
	}

	if img.Width <= 0 || img.Height <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}

	row := img.Width * ch
	step := img.Step
	if step == 0 {
		step = row
	}
	if step < row || len(img.Data) < step*(img.Height-1)+row {
		return gocv.NewMat(), fmt.Errorf("image data too short: %d bytes for %dx%d %s (step %d)",
			len(img.Data), img.Width, img.Height, img.Encoding, step)
	}

	data := img.Data
	if step != row {
		// Strip row padding so the matrix is continuous.
		data = make([]byte, row*img.Height)
		for y := 0; y < img.Height; y++ {
			copy(data[y*row:(y+1)*row], img.Data[y*step:y*step+row])
		}
	}

	view, err := gocv.NewMatFromBytes(img.Height, img.Width, mt, data[:row*img.Height])
	if err != nil {
		return gocv.NewMat(), err
	}
	defer view.Close()

	// Channel swaps and drops are symmetric, so the BGR-named codes serve RGB too.
	out := gocv.NewMat()
	switch img.Encoding {
	case EncodingRGB8:
		view.CopyTo(&out)
	case EncodingBGR8:
		gocv.CvtColor(view, &out, gocv.ColorBGRToRGB)
	case EncodingRGBA8:
		gocv.CvtColor(view, &out, gocv.ColorBGRAToBGR)
	case EncodingMono8:
		gocv.CvtColor(view, &out, gocv.ColorGrayToBGR)
	}

	return out, nil
}

func (svc *gocvService) FromMat(m gocv.Mat, encoding string, stamp time.Time, frameID string) (model.Image, error) {
	if m.Empty() {
		return model.Image{}, fmt.Errorf("empty matrix")
	}

	ch, _, err := channels(encoding)
	if err != nil {
		return model.Image{}, err
	}

	src := m
	if m.Channels() != ch {
		converted := gocv.NewMat()
		defer converted.Close()

		switch {
		case ch == 1 && m.Channels() == 3:
			gocv.CvtColor(m, &converted, gocv.ColorRGBToGray)
		case ch == 3 && m.Channels() == 1:
			gocv.CvtColor(m, &converted, gocv.ColorGrayToBGR)
		default:
			return model.Image{}, fmt.Errorf("cannot pack %d channels as %s", m.Channels(), encoding)
		}
		src = converted
	}

	if encoding == EncodingBGR8 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(src, &bgr, gocv.ColorBGRToRGB)
		src = bgr
	}

	return model.Image{
		Stamp:    stamp,
		FrameID:  frameID,
		Width:    src.Cols(),
		Height:   src.Rows(),
		Encoding: encoding,
		Step:     src.Cols() * ch,
		Data:     src.ToBytes(),
	}, nil
}
