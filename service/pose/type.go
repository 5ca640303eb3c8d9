package pose

import (
	"context"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-segmenter/spatial"
)

var ErrNoPose = xerrors.New("no pose available")

// IService returns the pose of camera in base at a point in time.
// Lookups may block on the backing source.
type IService interface {
	Lookup(ctx context.Context, base, camera string, at time.Time) (spatial.Pose, error)
}
