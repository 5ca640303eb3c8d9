package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-segmenter/model"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
)

type scriptedService struct {
	CanxCtx     context.Context
	Period      time.Duration
	Transitions []model.StateTransition

	mu         sync.Mutex
	subsCancel context.CancelFunc
	stream     chan model.StateTransition
}

// NewScripted replays transitions in order, one every period, then stays
// quiet until cancelled.
func NewScripted(canxCtx context.Context, period time.Duration, transitions []model.StateTransition) IService {
	return &scriptedService{
		CanxCtx:     canxCtx,
		Period:      period,
		Transitions: transitions,
	}
}

func (svc *scriptedService) Subscribe() (<-chan model.StateTransition, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.subsCancel != nil {
		return nil, xerrors.New("control scripted service. Already subscribed. Unsubscribe first")
	}

	// Only one channel is ever handed out, whatever the number of re-subscriptions.
	if svc.stream == nil {
		svc.stream = make(chan model.StateTransition)
	}

	subsCtx, subsCancel := context.WithCancel(svc.CanxCtx)
	svc.subsCancel = subsCancel

	go func() {
		for _, st := range svc.Transitions {
			select {
			case <-subsCtx.Done():
				lgr.Logger.Info("control scripted service context cancelled")
				return
			case <-time.After(svc.Period):
			}

			select {
			case <-subsCtx.Done():
				return
			case svc.stream <- st:
				lgr.Logger.Debug("control transition delivered", slog.Any("actions", st.Actions))
			}
		}
	}()

	return svc.stream, nil
}

func (svc *scriptedService) Unsubscribe() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.subsCancel == nil {
		return xerrors.New("not subscribed yet. Subscribe first")
	}

	svc.subsCancel()
	svc.subsCancel = nil
	return nil
}
