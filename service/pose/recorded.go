package pose

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/khaledhikmat/vs-segmenter/spatial"
)

// Sample is one recorded transform. Rotation is row-major 3x3.
type Sample struct {
	Time        time.Time  `json:"time"`
	Base        string     `json:"base"`
	Camera      string     `json:"camera"`
	Translation [3]float64 `json:"translation"`
	Rotation    [9]float64 `json:"rotation"`
}

type recordedService struct {
	samples []Sample
}

// NewRecorded loads a JSON array of samples. Lookups return the latest
// sample not after the requested time.
func NewRecorded(path string) (IService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	samples := []Sample{}
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("error decoding poses %s: %w", path, err)
	}

	return NewRecordedFromSamples(samples), nil
}

func NewRecordedFromSamples(samples []Sample) IService {
	sorted := append([]Sample{}, samples...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return &recordedService{samples: sorted}
}

func (svc *recordedService) Lookup(ctx context.Context, base, camera string, at time.Time) (spatial.Pose, error) {
	if err := ctx.Err(); err != nil {
		return spatial.Pose{}, err
	}

	// First sample strictly after at; walk back to a matching frame pair.
	i := sort.Search(len(svc.samples), func(i int) bool {
		return svc.samples[i].Time.After(at)
	})
	for i--; i >= 0; i-- {
		s := svc.samples[i]
		if (s.Base == "" || s.Base == base) && (s.Camera == "" || s.Camera == camera) {
			return spatial.NewPose(
				mat.NewDense(3, 3, s.Rotation[:]),
				r3.Vector{X: s.Translation[0], Y: s.Translation[1], Z: s.Translation[2]},
				s.Time,
			)
		}
	}

	return spatial.Pose{}, fmt.Errorf("%w: %s -> %s at %s", ErrNoPose, base, camera, at.Format(time.RFC3339Nano))
}
