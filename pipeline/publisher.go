package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

// RecorderPublisher writes each mask as a PNG and hands it to the storage service.
func RecorderPublisher(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan model.FramePair {
	in := make(chan model.FramePair, 100)

	go func() {
		stats := &publisherStats{start: time.Now()}
		defer func() {
			statsStream <- stats.report("recorderPublisher")
		}()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"recorder publisher context cancelled",
				)
				return

			case pair := <-in:
				url, err := recordMask(svcs, pair)
				if err != nil {
					stats.errors++
					errorStream <- model.GenError("node_recorder_publisher",
						err,
						map[string]interface{}{"pair": pair.ID},
						"error recording mask")
					continue
				}

				stats.published++
				lgr.Logger.Debug(
					"mask recorded",
					slog.String("pair", pair.ID),
					slog.String("url", url),
				)
			}
		}
	}()

	return in
}

func recordMask(svcs ServicesFactory, pair model.FramePair) (string, error) {
	mask, err := svcs.BridgeSvc.ToMat(pair.Mask)
	if err != nil {
		return "", err
	}
	defer mask.Close()

	fn := filepath.Join(os.TempDir(), fmt.Sprintf("%s_mask_%d.png", pair.ID, pair.Stamp.UnixNano()))
	if ok := gocv.IMWrite(fn, mask); !ok {
		return "", fmt.Errorf("error writing %s", fn)
	}

	url, err := svcs.StorageSvc.StoreFile(fn)
	if err != nil {
		os.Remove(fn)
		return "", err
	}

	return url, nil
}

// BrokerPublisher publishes the mask and the whole pair on their topics.
func BrokerPublisher(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan model.FramePair {
	in := make(chan model.FramePair, 100)

	go func() {
		stats := &publisherStats{start: time.Now()}
		defer func() {
			statsStream <- stats.report("brokerPublisher")
		}()

		maskTopic := svcs.CfgSvc.GetMaskTopic()
		pairTopic := svcs.CfgSvc.GetPairTopic()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"broker publisher context cancelled",
				)
				return

			case pair := <-in:
				if err := svcs.BrokerSvc.Publish(maskTopic, pair.Mask); err != nil {
					stats.errors++
					errorStream <- model.GenError("node_broker_publisher",
						err,
						map[string]interface{}{"topic": maskTopic, "pair": pair.ID},
						"error publishing mask")
					continue
				}

				if err := svcs.BrokerSvc.Publish(pairTopic, pair); err != nil {
					stats.errors++
					errorStream <- model.GenError("node_broker_publisher",
						err,
						map[string]interface{}{"topic": pairTopic, "pair": pair.ID},
						"error publishing pair")
					continue
				}

				stats.published++
			}
		}
	}()

	return in
}

type publisherStats struct {
	start     time.Time
	published int
	errors    int
}

func (s *publisherStats) report(name string) model.PublisherStats {
	return model.PublisherStats{
		Name:      name,
		Published: s.published,
		Errors:    s.errors,
		Uptime:    int64(time.Since(s.start).Seconds()),
	}
}
