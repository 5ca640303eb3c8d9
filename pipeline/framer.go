package pipeline

import (
	"context"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/service/bridge"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

const randomFramePeriod = 33 * time.Millisecond

// Framer captures frames for the camera and routes them to the frame streams.
// The camera is announced on infoStream before its first frame.
func Framer(canxCtx context.Context, svcs ServicesFactory, camera model.Camera, errorStream chan interface{}, statsStream chan interface{}, infoStream chan model.CameraInfo, frameStreams []chan FrameData) {
	if camera.FramerType == "" || camera.FramerType == "random" {
		go randomFramer(canxCtx, svcs, camera, errorStream, statsStream, infoStream, frameStreams)
		return
	}

	go captureFramer(canxCtx, svcs, camera, errorStream, statsStream, infoStream, frameStreams)
}

func cameraFrame(camera model.Camera) string {
	if camera.FrameID == "" {
		return DefaultCameraFrame
	}
	return camera.FrameID
}

func captureFramer(canxCtx context.Context, svcs ServicesFactory, camera model.Camera, errorStream chan interface{}, statsStream chan interface{}, infoStream chan model.CameraInfo, frameStreams []chan FrameData) {
	webcam, err := gocv.OpenVideoCapture(camera.SourceURL)
	if err != nil {
		errorStream <- model.GenError("node_capture_framer",
			err,
			map[string]interface{}{"source": camera.SourceURL},
			"error opening capture source")
		return
	}
	defer webcam.Close()

	stats := &framerStats{start: time.Now()}
	defer func() {
		statsStream <- stats.report("captureFramer", camera)
	}()

	frameID := cameraFrame(camera)
	announced := false

	// Capture frames, route captured frames to streamers and monitor cancellations
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"captureFramer context cancelled",
			)
			return

		default:
			img := gocv.NewMat()
			if ok := webcam.Read(&img); !ok || img.Empty() {
				stats.errors++
				img.Close() // Crucial to close the image to avoid memory leaks
				if stats.errors%100 == 0 {
					lgr.Logger.Warn("capture source not delivering frames",
						slog.String("source", camera.SourceURL),
						slog.Int("errors", stats.errors),
					)
				}
				continue
			}

			// Captured frames are BGR; the bridge packs RGB matrices.
			rgb := gocv.NewMat()
			gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)
			img.Close()

			frame, err := svcs.BridgeSvc.FromMat(rgb, bridge.EncodingRGB8, time.Now(), frameID)
			rgb.Close()
			if err != nil {
				stats.errors++
				errorStream <- model.GenError("node_capture_framer",
					err,
					map[string]interface{}{},
					"error packing captured frame")
				continue
			}

			if !announced {
				if !announce(canxCtx, infoStream, frame) {
					return
				}
				announced = true
			}

			stats.frames++
			if !route(canxCtx, camera, frame, frameStreams) {
				lgr.Logger.Info("captureFramer context cancelled while sending!!")
				return
			}
		}
	}
}

func randomFramer(canxCtx context.Context, svcs ServicesFactory, camera model.Camera, errorStream chan interface{}, statsStream chan interface{}, infoStream chan model.CameraInfo, frameStreams []chan FrameData) {
	stats := &framerStats{start: time.Now()}
	defer func() {
		statsStream <- stats.report("randomFramer", camera)
	}()

	width, height := camera.Width, camera.Height
	if width <= 0 || height <= 0 {
		width, height = svcs.CfgSvc.GetFrameWidth(), svcs.CfgSvc.GetFrameHeight()
	}
	frameID := cameraFrame(camera)
	announced := false

	ticker := time.NewTicker(randomFramePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"randomFramer context cancelled",
			)
			return

		case <-ticker.C:
			img := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
			gocv.RandU(&img, gocv.NewScalar(0, 0, 0, 0), gocv.NewScalar(255, 255, 255, 0))

			frame, err := svcs.BridgeSvc.FromMat(img, bridge.EncodingRGB8, time.Now(), frameID)
			img.Close() // Crucial to close the image to avoid memory leaks
			if err != nil {
				stats.errors++
				errorStream <- model.GenError("node_random_framer",
					err,
					map[string]interface{}{},
					"error packing random frame")
				continue
			}

			if !announced {
				if !announce(canxCtx, infoStream, frame) {
					return
				}
				announced = true
			}

			stats.frames++
			if !route(canxCtx, camera, frame, frameStreams) {
				lgr.Logger.Info("randomFramer context cancelled while sending!!")
				return
			}
		}
	}
}

func announce(canxCtx context.Context, infoStream chan model.CameraInfo, frame model.Image) bool {
	select {
	case <-canxCtx.Done():
		return false
	case infoStream <- model.CameraInfo{FrameID: frame.FrameID, Width: frame.Width, Height: frame.Height}:
		return true
	}
}

func route(canxCtx context.Context, camera model.Camera, frame model.Image, frameStreams []chan FrameData) bool {
	for _, frameStream := range frameStreams {
		// WARNING: We need an extra check to make sure we don't send on c closed channel
		select {
		case <-canxCtx.Done():
			return false
		case frameStream <- FrameData{Image: frame, Camera: camera}:
		}
	}
	return true
}

type framerStats struct {
	start  time.Time
	frames int
	errors int
}

func (s *framerStats) report(name string, camera model.Camera) model.FramerStats {
	uptime := int64(time.Since(s.start).Seconds())
	fps := 0
	if uptime > 0 {
		fps = int(float64(s.frames) / float64(uptime))
	}
	return model.FramerStats{
		Name:   name,
		Camera: camera.Name,
		Frames: s.frames,
		Errors: s.errors,
		Uptime: uptime,
		FPS:    fps,
	}
}
