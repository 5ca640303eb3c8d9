package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
	"github.com/khaledhikmat/vs-segmenter/spatial"
)

// Segmenter feeds frames through the processor and routes emitted pairs to
// the pair streams. It runs a single worker so frames keep arrival order.
func Segmenter(canx context.Context, svcs ServicesFactory, proc *Processor, camera model.Camera, errorStream chan interface{}, statsStream chan interface{}, pairStreams []chan model.FramePair) chan FrameData {
	in := make(chan FrameData, 10)

	go func() {
		beginTime := time.Now()
		errors := 0
		var totalProcTime time.Duration

		defer func() {
			s := proc.Stats()
			var avgProcTime float64
			if s.Frames > 0 {
				avgProcTime = totalProcTime.Seconds() / float64(s.Frames)
			}

			statsStream <- model.SegmenterStats{
				Name:             "segmenter",
				Camera:           camera.Name,
				Strategy:         proc.Strategy().String(),
				Frames:           s.Frames,
				DroppedNotLoaded: s.DroppedNotLoaded,
				SkippedMotion:    s.SkippedMotion,
				SkippedStale:     s.SkippedStale,
				MissingPose:      s.MissingPose,
				Suppressed:       s.Suppressed,
				Emitted:          s.Emitted,
				Errors:           errors,
				Uptime:           int64(time.Since(beginTime).Seconds()),
				AvgProcTime:      avgProcTime,
			}
		}()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"segmenter context cancelled",
				)
				return

			case f := <-in:
				start := time.Now()

				var pose *spatial.Pose
				// Frames before the engine loads are dropped without pose work.
				if proc.Loaded() && proc.GatingEnabled() {
					p, err := svcs.PoseSvc.Lookup(canx, svcs.CfgSvc.GetBaseFrame(), proc.CameraFrame(), f.Image.Stamp)
					if err != nil {
						errors++
						errorStream <- model.GenError("node_segmenter",
							err,
							map[string]interface{}{"stamp": f.Image.Stamp},
							"error looking up camera pose")
					} else {
						pose = &p
					}
				}

				pair, err := proc.OnFrame(f.Image, pose)
				totalProcTime += time.Since(start)
				if err != nil {
					errors++
					errorStream <- model.GenError("node_segmenter",
						err,
						map[string]interface{}{"stamp": f.Image.Stamp},
						"error processing frame")
					continue
				}

				if pair == nil {
					continue
				}

				lgr.Logger.Debug("pair emitted",
					slog.String("id", pair.ID),
					slog.Time("stamp", pair.Stamp),
				)

				for _, pairStream := range pairStreams {
					select {
					case <-canx.Done():
						lgr.Logger.Info("segmenter context cancelled while sending!!")
						return
					case pairStream <- *pair:
					}
				}
			}
		}
	}()

	return in
}
