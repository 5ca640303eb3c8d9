package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	svc := NewEnvWithLookup(lookupFrom(nil))

	assert.Equal(t, DefaultNodeName, svc.GetNodeName())
	assert.Equal(t, DefaultMovementThreshold, svc.GetMovementThreshold())
	assert.Equal(t, DefaultSegmentationModel, svc.GetSegmentationModel())
	assert.Equal(t, DefaultBaseFrame, svc.GetBaseFrame())
	assert.Equal(t, DefaultCameraTopic, svc.GetCameraTopic())
	assert.Equal(t, "./settings/cameras.json", svc.GetCamerasInputFile())
	assert.Equal(t, "./settings/poses.json", svc.GetPosesInputFile())
	assert.Equal(t, DefaultNodeName, svc.GetMQTTClientID())
	assert.Empty(t, svc.GetMQTTBroker())
	assert.Equal(t, "image_mask", svc.GetMaskTopic())
	assert.Equal(t, "image_mask_pair", svc.GetPairTopic())
	assert.Equal(t, "state_transition", svc.GetControlTopic())
}

func TestOverrides(t *testing.T) {
	svc := NewEnvWithLookup(lookupFrom(map[string]string{
		"MOVEMENT_THRESHOLD": "0",
		"SEGMENTATION_MODEL": "FlowGAN",
		"INPUT_FOLDER":       "/tmp/in",
		"FRAME_WIDTH":        "320",
		"NODE_NAME":          "proc_2",
		"SIMULATED_SPEED":    "0.2",
	}))

	assert.Equal(t, 0.0, svc.GetMovementThreshold())
	assert.Equal(t, "FlowGAN", svc.GetSegmentationModel())
	assert.Equal(t, "/tmp/in/cameras.json", svc.GetCamerasInputFile())
	assert.Equal(t, 320, svc.GetFrameWidth())
	assert.Equal(t, "proc_2", svc.GetMQTTClientID())
	assert.Equal(t, 0.2, svc.GetSimulatedSpeed())
}

func TestUnparsableFallsBack(t *testing.T) {
	svc := NewEnvWithLookup(lookupFrom(map[string]string{
		"MOVEMENT_THRESHOLD": "lots",
		"FRAME_HEIGHT":       "tall",
		"BASE_FRAME":         "",
	}))

	assert.Equal(t, DefaultMovementThreshold, svc.GetMovementThreshold())
	assert.Equal(t, 480, svc.GetFrameHeight())
	assert.Equal(t, DefaultBaseFrame, svc.GetBaseFrame())
}
