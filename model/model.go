package model

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/golang/geo/r3"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

type Camera struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SourceURL  string `json:"sourceUrl"`
	FramerType string `json:"framerType"`
	Topic      string `json:"topic"`
	FrameID    string `json:"frameId"` // The camera's coordinate frame
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Excluded   bool   `json:"excluded"`
}

// Image is a frame as carried by the transport: packed rows of Encoding pixels.
type Image struct {
	Stamp    time.Time `json:"stamp" msgpack:"stamp"`
	FrameID  string    `json:"frameId" msgpack:"frame_id"`
	Width    int       `json:"width" msgpack:"width"`
	Height   int       `json:"height" msgpack:"height"`
	Encoding string    `json:"encoding" msgpack:"encoding"`
	Step     int       `json:"step" msgpack:"step"`
	Data     []byte    `json:"-" msgpack:"data"`
}

// FramePair is the published output: the source frame, its mono8 mask and
// the unit camera-frame motion since the previous accepted frame.
type FramePair struct {
	ID     string    `json:"id" msgpack:"id"`
	Image  Image     `json:"rgb" msgpack:"rgb"`
	Mask   Image     `json:"mask" msgpack:"mask"`
	Offset r3.Vector `json:"imageFrameOffset" msgpack:"image_frame_offset"`
	Stamp  time.Time `json:"stamp" msgpack:"stamp"`
}

// CameraInfo announces the camera's size and coordinate frame.
type CameraInfo struct {
	FrameID string `json:"frameId"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type NodeAction struct {
	Node   string `json:"node"`
	Action string `json:"action"`
}

// StateTransition addresses actions to nodes by name.
type StateTransition struct {
	Actions []NodeAction `json:"actions"`
}

// ActionFor returns the action addressed to node. Later entries win.
func (st StateTransition) ActionFor(node string) (string, bool) {
	action, found := "", false
	for _, a := range st.Actions {
		if a.Node == node {
			action, found = a.Action, true
		}
	}
	return action, found && action != ""
}

type FramerStats struct {
	Name      string `json:"name"`
	Camera    string `json:"camera"`
	FPS       int    `json:"fps"`
	Frames    int    `json:"frames"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type SegmenterStats struct {
	Name             string  `json:"name"`
	Camera           string  `json:"camera"`
	Strategy         string  `json:"strategy"`
	Frames           int     `json:"frames"`
	DroppedNotLoaded int     `json:"droppedNotLoaded"`
	SkippedMotion    int     `json:"skippedMotion"`
	SkippedStale     int     `json:"skippedStale"`
	MissingPose      int     `json:"missingPose"`
	Suppressed       int     `json:"suppressed"`
	Emitted          int     `json:"emitted"`
	Errors           int     `json:"errors"`
	Uptime           int64   `json:"uptime"`
	AvgProcTime      float64 `json:"avgProcTime"`
	Timestamp        int64   `json:"timestamp"`
}

type PublisherStats struct {
	Name      string `json:"name"`
	Published int    `json:"published"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type NodeStats struct {
	ID          string `json:"id"`
	Node        string `json:"node"`
	Camera      string `json:"camera"`
	Resets      int64  `json:"resets"`
	Activations int64  `json:"activations"`
	Uptime      int64  `json:"uptime"`
	Timestamp   int64  `json:"timestamp"`
}
