package mode

import (
	"context"
	"time"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/pipeline"
	"github.com/khaledhikmat/vs-segmenter/service/control"
	"github.com/khaledhikmat/vs-segmenter/service/pose"
)

const replayControlPeriod = 10 * time.Second

// Replay runs the node on synthetic frames along the simulated trajectory.
// Without a control source it activates the node and then resets it.
func Replay(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	svcs.PoseSvc = pose.NewSimulated(svcs.CfgSvc)

	if svcs.ControlSvc == nil {
		node := svcs.CfgSvc.GetNodeName()
		svcs.ControlSvc = control.NewScripted(canxCtx, replayControlPeriod, []model.StateTransition{
			{Actions: []model.NodeAction{{Node: node, Action: pipeline.ActionActivate}}},
			{Actions: []model.NodeAction{{Node: node, Action: pipeline.ActionReset}}},
		})
	}

	camera := configuredCamera(svcs.CfgSvc)
	camera.FramerType = "random"
	camera.SourceURL = ""

	return run(canxCtx, svcs, camera)
}
