package config

type IService interface {
	GetNodeName() string
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetCamerasInputFile() string
	GetPosesInputFile() string
	GetRecordingsFolder() string
	GetStatsPeriodicTimeout() int

	GetMovementThreshold() float64
	GetSegmentationModel() string
	GetBaseFrame() string
	GetCameraTopic() string
	GetModelPath() string

	GetFramerType() string
	GetFrameWidth() int
	GetFrameHeight() int
	GetSimulatedSpeed() float64

	GetMQTTBroker() string
	GetMQTTClientID() string
	GetControlTopic() string
	GetMaskTopic() string
	GetPairTopic() string
}
