package config

import (
	"fmt"
)

const (
	DefaultNodeName          = "image_processor_node"
	DefaultMovementThreshold = 0.0075
	DefaultSegmentationModel = "appearance"
	DefaultBaseFrame         = "base_link"
	DefaultCameraTopic       = "/camera/color/image_raw"
)

type hardcodedService struct {
}

func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetNodeName() string {
	return DefaultNodeName
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetInputFolder() string {
	return "./settings"
}

func (svc *hardcodedService) GetCamerasInputFile() string {
	return fmt.Sprintf("%s/cameras.json", svc.GetInputFolder())
}

func (svc *hardcodedService) GetPosesInputFile() string {
	return fmt.Sprintf("%s/poses.json", svc.GetInputFolder())
}

func (svc *hardcodedService) GetRecordingsFolder() string {
	return "./recordings"
}

func (svc *hardcodedService) GetStatsPeriodicTimeout() int {
	return 30
}

func (svc *hardcodedService) GetMovementThreshold() float64 {
	return DefaultMovementThreshold
}

func (svc *hardcodedService) GetSegmentationModel() string {
	return DefaultSegmentationModel
}

func (svc *hardcodedService) GetBaseFrame() string {
	return DefaultBaseFrame
}

func (svc *hardcodedService) GetCameraTopic() string {
	return DefaultCameraTopic
}

func (svc *hardcodedService) GetModelPath() string {
	// Empty selects the model-free appearance segmenter.
	return ""
}

func (svc *hardcodedService) GetFramerType() string {
	return "random"
}

func (svc *hardcodedService) GetFrameWidth() int {
	return 640
}

func (svc *hardcodedService) GetFrameHeight() int {
	return 480
}

func (svc *hardcodedService) GetSimulatedSpeed() float64 {
	// Meters per second along the camera's base-frame X axis.
	return 0.05
}

func (svc *hardcodedService) GetMQTTBroker() string {
	// Empty disables MQTT control and publishing.
	return ""
}

func (svc *hardcodedService) GetMQTTClientID() string {
	return DefaultNodeName
}

func (svc *hardcodedService) GetControlTopic() string {
	return "state_transition"
}

func (svc *hardcodedService) GetMaskTopic() string {
	return "image_mask"
}

func (svc *hardcodedService) GetPairTopic() string {
	return "image_mask_pair"
}
