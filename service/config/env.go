package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cast"

	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

// envService reads each setting from the environment and falls back to the
// hard-coded default when the variable is unset or cannot be parsed.
type envService struct {
	defaults IService
	lookup   func(string) (string, bool)
}

func NewEnv() IService {
	return NewEnvWithLookup(os.LookupEnv)
}

func NewEnvWithLookup(lookup func(string) (string, bool)) IService {
	return &envService{
		defaults: NewHardCoded(),
		lookup:   lookup,
	}
}

func (svc *envService) str(key, def string) string {
	if v, ok := svc.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (svc *envService) integer(key string, def int) int {
	v, ok := svc.lookup(key)
	if !ok || v == "" {
		return def
	}

	i, err := cast.ToIntE(v)
	if err != nil {
		lgr.Logger.Warn("invalid integer setting, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.Int("default", def),
		)
		return def
	}
	return i
}

func (svc *envService) float(key string, def float64) float64 {
	v, ok := svc.lookup(key)
	if !ok || v == "" {
		return def
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		lgr.Logger.Warn("invalid float setting, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.Float64("default", def),
		)
		return def
	}
	return f
}

func (svc *envService) GetNodeName() string {
	return svc.str("NODE_NAME", svc.defaults.GetNodeName())
}

func (svc *envService) GetModeMaxShutdownTime() int {
	return svc.integer("MODE_MAX_SHUTDOWN_TIME", svc.defaults.GetModeMaxShutdownTime())
}

func (svc *envService) GetInputFolder() string {
	return svc.str("INPUT_FOLDER", svc.defaults.GetInputFolder())
}

func (svc *envService) GetCamerasInputFile() string {
	return svc.str("CAMERAS_FILE", fmt.Sprintf("%s/cameras.json", svc.GetInputFolder()))
}

func (svc *envService) GetPosesInputFile() string {
	return svc.str("POSES_FILE", fmt.Sprintf("%s/poses.json", svc.GetInputFolder()))
}

func (svc *envService) GetRecordingsFolder() string {
	return svc.str("RECORDINGS_FOLDER", svc.defaults.GetRecordingsFolder())
}

func (svc *envService) GetStatsPeriodicTimeout() int {
	return svc.integer("STATS_PERIODIC_TIMEOUT", svc.defaults.GetStatsPeriodicTimeout())
}

func (svc *envService) GetMovementThreshold() float64 {
	return svc.float("MOVEMENT_THRESHOLD", svc.defaults.GetMovementThreshold())
}

func (svc *envService) GetSegmentationModel() string {
	return svc.str("SEGMENTATION_MODEL", svc.defaults.GetSegmentationModel())
}

func (svc *envService) GetBaseFrame() string {
	return svc.str("BASE_FRAME", svc.defaults.GetBaseFrame())
}

func (svc *envService) GetCameraTopic() string {
	return svc.str("CAMERA_TOPIC", svc.defaults.GetCameraTopic())
}

func (svc *envService) GetModelPath() string {
	return svc.str("MODEL_PATH", svc.defaults.GetModelPath())
}

func (svc *envService) GetFramerType() string {
	return svc.str("FRAMER_TYPE", svc.defaults.GetFramerType())
}

func (svc *envService) GetFrameWidth() int {
	return svc.integer("FRAME_WIDTH", svc.defaults.GetFrameWidth())
}

func (svc *envService) GetFrameHeight() int {
	return svc.integer("FRAME_HEIGHT", svc.defaults.GetFrameHeight())
}

func (svc *envService) GetSimulatedSpeed() float64 {
	return svc.float("SIMULATED_SPEED", svc.defaults.GetSimulatedSpeed())
}

func (svc *envService) GetMQTTBroker() string {
	return svc.str("MQTT_BROKER", svc.defaults.GetMQTTBroker())
}

func (svc *envService) GetMQTTClientID() string {
	return svc.str("MQTT_CLIENT_ID", svc.GetNodeName())
}

func (svc *envService) GetControlTopic() string {
	return svc.str("CONTROL_TOPIC", svc.defaults.GetControlTopic())
}

func (svc *envService) GetMaskTopic() string {
	return svc.str("MASK_TOPIC", svc.defaults.GetMaskTopic())
}

func (svc *envService) GetPairTopic() string {
	return svc.str("PAIR_TOPIC", svc.defaults.GetPairTopic())
}
