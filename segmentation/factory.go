package segmentation

import (
	"fmt"
	"image"
)

type Parameters struct {
	Appearance AppearanceParameters
	Flow       FlowParameters
}

func DefaultParameters() Parameters {
	return Parameters{
		Appearance: DefaultAppearanceParameters(),
		Flow:       DefaultFlowParameters(),
	}
}

// NewFactory returns the Factory for the two built-in strategies.
func NewFactory(params Parameters) Factory {
	return func(kind Kind, size image.Point) (Strategy, error) {
		switch kind {
		case Appearance:
			return newAppearance(params.Appearance, size)
		case Flow:
			return newFlow(params.Flow, size)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, kind)
		}
	}
}
