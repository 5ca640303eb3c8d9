package control

import "github.com/khaledhikmat/vs-segmenter/model"

// IService delivers state transitions addressed to nodes.
type IService interface {
	Subscribe() (<-chan model.StateTransition, error)
	Unsubscribe() error
}
