// Package spatial holds the rigid-transform math used to compare camera poses.
package spatial

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Pose is the camera frame expressed in the base frame at a point in time.
// Treat it as immutable once captured.
type Pose struct {
	Rotation    *mat.Dense
	Translation r3.Vector
	Time        time.Time
}

func NewPose(rotation mat.Matrix, translation r3.Vector, at time.Time) (Pose, error) {
	r, c := rotation.Dims()
	if r != 3 || c != 3 {
		return Pose{}, fmt.Errorf("rotation must be 3x3, got %dx%d", r, c)
	}

	return Pose{
		Rotation:    mat.DenseCopyOf(rotation),
		Translation: translation,
		Time:        at,
	}, nil
}

// NewPoseFromMatrix splits a 4x4 homogeneous transform into rotation and translation.
func NewPoseFromMatrix(m mat.Matrix, at time.Time) (Pose, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return Pose{}, fmt.Errorf("homogeneous transform must be 4x4, got %dx%d", r, c)
	}

	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, m.At(i, j))
		}
	}

	return Pose{
		Rotation:    rot,
		Translation: r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)},
		Time:        at,
	}, nil
}

func IdentityPose(translation r3.Vector, at time.Time) Pose {
	return Pose{
		Rotation:    Identity(),
		Translation: translation,
		Time:        at,
	}
}

// Matrix returns the pose as a 4x4 homogeneous transform.
func (p Pose) Matrix() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, p.Rotation.At(i, j))
		}
	}
	m.Set(0, 3, p.Translation.X)
	m.Set(1, 3, p.Translation.Y)
	m.Set(2, 3, p.Translation.Z)
	m.Set(3, 3, 1)
	return m
}

func Identity() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

func RotationX(rad float64) *mat.Dense {
	s, c := math.Sincos(rad)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

func RotationY(rad float64) *mat.Dense {
	s, c := math.Sincos(rad)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

func RotationZ(rad float64) *mat.Dense {
	s, c := math.Sincos(rad)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// RelativeRotation returns aᵀ·b, the rotation taking frame a onto frame b.
// Rotation matrices are orthonormal so the transpose is the inverse.
func RelativeRotation(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a.T(), b)
	return &out
}

// EulerXYZ decomposes r into intrinsic X-Y-Z angles (radians), r = Rx·Ry·Rz.
func EulerXYZ(r mat.Matrix) r3.Vector {
	sy := clamp(r.At(0, 2), -1, 1)
	y := math.Asin(sy)

	// Gimbal lock: only x+z is observable, attribute it all to x.
	if math.Abs(sy) > 1-1e-9 {
		x := math.Atan2(r.At(2, 1), r.At(1, 1))
		return r3.Vector{X: x, Y: y, Z: 0}
	}

	x := math.Atan2(-r.At(1, 2), r.At(2, 2))
	z := math.Atan2(-r.At(0, 1), r.At(0, 0))
	return r3.Vector{X: x, Y: y, Z: z}
}

// InverseRotate expresses the base-frame vector v in the frame rotated by r.
func InverseRotate(r mat.Matrix, v r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(r.T(), mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
