package segmentation

import (
	"fmt"
	"image"
	"strings"

	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

var (
	ErrUnknownStrategy = xerrors.New("unknown segmentation strategy")
	ErrNotLoaded       = xerrors.New("segmentation engine not loaded")
	ErrSizeMismatch    = xerrors.New("frame size does not match engine output size")
)

// Kind is the closed set of segmentation strategies.
type Kind int

const (
	Appearance Kind = iota + 1
	Flow
)

const (
	AppearanceName = "appearance"
	FlowName       = "flow"
)

// Names the node configuration has historically used for each kind.
var kindAliases = map[string]Kind{
	AppearanceName: Appearance,
	"yolo":         Appearance,
	FlowName:       Flow,
	"flowgan":      Flow,
}

func ParseKind(name string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return k, nil
}

func (k Kind) String() string {
	switch k {
	case Appearance:
		return AppearanceName
	case Flow:
		return FlowName
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Input is one frame handed to a strategy. Image is an RGB gocv.Mat at the
// engine's bound size. Offset is the unit camera-frame motion since the
// previous accepted frame, zero when motion gating is off.
type Input struct {
	Image  gocv.Mat
	Offset r3.Vector
}

// Strategy maps an image to a mono8 foreground mask of the same size.
// The caller owns the returned Mat.
type Strategy interface {
	Kind() Kind
	Process(in Input) (gocv.Mat, error)
	// Reset drops any state carried between frames.
	Reset()
	Close() error
}

// Factory builds the strategy for kind bound to size.
type Factory func(kind Kind, size image.Point) (Strategy, error)
