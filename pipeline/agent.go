package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/segmentation"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

// NewNodeProcessor builds the processor and its engine from configuration.
func NewNodeProcessor(svcs ServicesFactory) (*Processor, error) {
	params := segmentation.DefaultParameters()
	params.Appearance.ModelPath = svcs.CfgSvc.GetModelPath()

	// Unknown names are rejected before any frame arrives.
	if _, err := segmentation.ParseKind(svcs.CfgSvc.GetSegmentationModel()); err != nil {
		return nil, err
	}

	return NewProcessor(ProcessorConfig{
		Node:              svcs.CfgSvc.GetNodeName(),
		Strategy:          svcs.CfgSvc.GetSegmentationModel(),
		MovementThreshold: svcs.CfgSvc.GetMovementThreshold(),
	}, svcs.BridgeSvc, segmentation.NewEngine(segmentation.NewFactory(params)))
}

// Agent runs the node's pipeline for one camera: framer -> segmenter ->
// publishers. It applies camera info and control transitions as they arrive
// and returns on cancellation or on a fatal error.
func Agent(canxCtx context.Context,
	svcs ServicesFactory,
	proc *Processor,
	errorStream chan interface{},
	statsStream chan interface{},
	camera model.Camera,
	publishers []Publisher) error {
	nodeID := uuid.NewString()
	lgr.Logger.Info(
		"agent starting....",
		slog.String("nodeID", nodeID),
		slog.String("node", svcs.CfgSvc.GetNodeName()),
		slog.String("camera", camera.Name),
		slog.String("framerType", camera.FramerType),
		slog.String("strategy", svcs.CfgSvc.GetSegmentationModel()),
		slog.Bool("gating", proc.GatingEnabled()),
	)

	nodeStartTime := time.Now().Unix()
	nodeStats := model.NodeStats{
		ID:     nodeID,
		Node:   svcs.CfgSvc.GetNodeName(),
		Camera: camera.Name,
	}

	// Children are cancelled when the agent returns, fatal or not.
	agentCtx, agentCancel := context.WithCancel(canxCtx)
	defer agentCancel()

	pairStreams := []chan model.FramePair{}
	for _, publisher := range publishers {
		pairStreams = append(pairStreams, publisher(agentCtx, svcs, errorStream, statsStream))
	}

	frameStream := Segmenter(agentCtx, svcs, proc, camera, errorStream, statsStream, pairStreams)

	infoStream := make(chan model.CameraInfo, 1)
	Framer(agentCtx, svcs, camera, errorStream, statsStream, infoStream, []chan FrameData{frameStream})

	var controlStream <-chan model.StateTransition
	if svcs.ControlSvc != nil {
		stream, err := svcs.ControlSvc.Subscribe()
		if err != nil {
			return fmt.Errorf("error subscribing to control: %w", err)
		}
		controlStream = stream
		defer func() {
			if err := svcs.ControlSvc.Unsubscribe(); err != nil {
				lgr.Logger.Warn("error unsubscribing from control", slog.Any("error", err))
			}
		}()
	}

	period := time.Duration(svcs.CfgSvc.GetStatsPeriodicTimeout()) * time.Second
	if period <= 0 {
		period = 30 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"agent context cancelled",
			)
			return nil

		case info := <-infoStream:
			if err := proc.OnCameraInfo(info); err != nil {
				return fmt.Errorf("error loading segmentation engine: %w", err)
			}
			lgr.Logger.Info("camera announced",
				slog.String("frame", info.FrameID),
				slog.Int("width", info.Width),
				slog.Int("height", info.Height),
			)

		case st := <-controlStream:
			action, addressed := st.ActionFor(nodeStats.Node)
			if err := proc.HandleTransition(st); err != nil {
				if errors.Is(err, ErrUnknownAction) {
					return err
				}
				errorStream <- model.GenError("node_agent", err, map[string]interface{}{}, "error handling transition")
				continue
			}
			if addressed {
				switch action {
				case ActionActivate:
					nodeStats.Activations++
				case ActionReset:
					nodeStats.Resets++
				}
			}

		case <-ticker.C:
			nodeStats.Uptime = time.Now().Unix() - nodeStartTime
			statsStream <- nodeStats
		}
	}
}
