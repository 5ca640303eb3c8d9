package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/pipeline"
	"github.com/khaledhikmat/vs-segmenter/service/data"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory) error

func procStats(datasvc data.IService, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.FramerStats:
		err = datasvc.NewFramerStats(stats)
	case model.SegmenterStats:
		err = datasvc.NewSegmenterStats(stats)
	case model.PublisherStats:
		err = datasvc.NewPublisherStats(stats)
	case model.NodeStats:
		err = datasvc.NewNodeStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	lgr.Logger.Warn("pipeline error", slog.Any("error", err))

	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
