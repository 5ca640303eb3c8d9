package data

import "github.com/khaledhikmat/vs-segmenter/model"

type IService interface {
	RetrieveCameras() ([]model.Camera, error)

	NewError(err interface{}) error
	NewFramerStats(stats model.FramerStats) error
	NewSegmenterStats(stats model.SegmenterStats) error
	NewPublisherStats(stats model.PublisherStats) error
	NewNodeStats(stats model.NodeStats) error
}
