package pipeline

import (
	"context"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/service/bridge"
	"github.com/khaledhikmat/vs-segmenter/service/broker"
	"github.com/khaledhikmat/vs-segmenter/service/config"
	"github.com/khaledhikmat/vs-segmenter/service/control"
	"github.com/khaledhikmat/vs-segmenter/service/data"
	"github.com/khaledhikmat/vs-segmenter/service/pose"
	"github.com/khaledhikmat/vs-segmenter/service/storage"
)

// DefaultCameraFrame is announced for cameras whose record carries no frame id.
const DefaultCameraFrame = "camera_link"

type ServicesFactory struct {
	CfgSvc     config.IService
	DataSvc    data.IService
	PoseSvc    pose.IService
	ControlSvc control.IService
	BridgeSvc  bridge.IService
	StorageSvc storage.IService
	// BrokerSvc is nil when MQTT is disabled.
	BrokerSvc broker.IService
}

type FrameData struct {
	Image  model.Image
	Camera model.Camera
}

// Signature of publisher function
type Publisher func(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan model.FramePair
