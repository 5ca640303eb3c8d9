package pose

import (
	"context"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/khaledhikmat/vs-segmenter/service/config"
	"github.com/khaledhikmat/vs-segmenter/spatial"
)

type simulatedService struct {
	CfgSvc config.IService

	mu    sync.Mutex
	start time.Time
}

// NewSimulated returns a camera that travels along the base X axis at the
// configured speed, without rotating, starting from the first lookup.
func NewSimulated(cfgSvc config.IService) IService {
	return &simulatedService{
		CfgSvc: cfgSvc,
	}
}

func (svc *simulatedService) Lookup(ctx context.Context, _, _ string, at time.Time) (spatial.Pose, error) {
	if err := ctx.Err(); err != nil {
		return spatial.Pose{}, err
	}

	svc.mu.Lock()
	if svc.start.IsZero() {
		svc.start = at
	}
	elapsed := at.Sub(svc.start).Seconds()
	svc.mu.Unlock()

	x := svc.CfgSvc.GetSimulatedSpeed() * elapsed
	return spatial.IdentityPose(r3.Vector{X: x}, at), nil
}
