package bridge

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-segmenter/model"
)

const (
	EncodingRGB8  = "rgb8"
	EncodingBGR8  = "bgr8"
	EncodingRGBA8 = "rgba8"
	EncodingMono8 = "mono8"
)

// IService converts between transport images and gocv matrices.
type IService interface {
	// ToMat returns an RGB matrix the caller must close.
	ToMat(img model.Image) (gocv.Mat, error)
	// FromMat packs a matrix as a transport image in the given encoding.
	FromMat(m gocv.Mat, encoding string, stamp time.Time, frameID string) (model.Image, error)
}
