package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/pipeline"
	"github.com/khaledhikmat/vs-segmenter/service/config"
	"github.com/khaledhikmat/vs-segmenter/service/data"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

// Node runs the image processor node until cancelled or until the pipeline
// hits a fatal error, which is returned.
func Node(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	camera := resolveCamera(svcs.CfgSvc, svcs.DataSvc)
	return run(canxCtx, svcs, camera)
}

func run(canxCtx context.Context, svcs pipeline.ServicesFactory, camera model.Camera) error {
	proc, err := pipeline.NewNodeProcessor(svcs)
	if err != nil {
		return err
	}
	defer func() {
		if err := proc.Close(); err != nil {
			lgr.Logger.Warn("error closing segmentation engine", slog.Any("error", err))
		}
	}()

	// Not closed: producers may still report while shutting down.
	errorStream := make(chan interface{})
	statsStream := make(chan interface{})

	publishers := []pipeline.Publisher{pipeline.RecorderPublisher}
	if svcs.BrokerSvc != nil {
		publishers = append(publishers, pipeline.BrokerPublisher)
	}

	agentResult := make(chan error, 1)
	go func() {
		agentResult <- pipeline.Agent(canxCtx, svcs, proc, errorStream, statsStream, camera, publishers)
	}()

	var fatal error

	// Wait for cancellation, agent exit, stats or error
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"node context cancelled",
			)
			goto resume

		case fatal = <-agentResult:
			if fatal != nil {
				lgr.Logger.Error(
					"node agent failed",
					slog.Any("error", fatal),
				)
			}
			goto resume

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are existing
resume:
	lgr.Logger.Info(
		"node is waiting for all go routines to exit",
	)

	timer := time.NewTimer(time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"node shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second),
			)

			return fatal

		case err := <-agentResult:
			if fatal == nil {
				fatal = err
			}

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}

// resolveCamera picks the first camera record that is not excluded and falls
// back to a camera built from configuration.
func resolveCamera(cfgSvc config.IService, dataSvc data.IService) model.Camera {
	cameras, err := dataSvc.RetrieveCameras()
	if err != nil {
		lgr.Logger.Info("no camera records, using configuration", slog.Any("error", err))
	}

	for _, camera := range cameras {
		if !camera.Excluded {
			return camera
		}
	}

	return configuredCamera(cfgSvc)
}

func configuredCamera(cfgSvc config.IService) model.Camera {
	camera := model.Camera{
		ID:         cfgSvc.GetNodeName(),
		Name:       cfgSvc.GetNodeName(),
		FramerType: "random",
		Topic:      cfgSvc.GetCameraTopic(),
		FrameID:    pipeline.DefaultCameraFrame,
		Width:      cfgSvc.GetFrameWidth(),
		Height:     cfgSvc.GetFrameHeight(),
	}

	if framer := cfgSvc.GetFramerType(); framer != "random" {
		camera.FramerType = "capture"
		camera.SourceURL = framer
	}

	return camera
}
