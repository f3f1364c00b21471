package kinematics

import (
	"math"

	"github.com/cyrilix/robocar-truck/pkg/vehicle"
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// RigidBodyPose is a tracked body in the tracker world frame (Y up).
type RigidBodyPose struct {
	Position    Vec3       `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// Frame maps tracker coordinates into the local 2D frame of the state:
//
//	X = -z * Scale
//	Y =  x * Scale
//
// A body whose forward axis (-Z) is aligned with the tracker -Z axis has heading 0.
type Frame struct {
	Scale float64
}

// Position returns the body position in the local frame.
func (f Frame) Position(p RigidBodyPose) (float64, float64) {
	return -p.Position.Z * f.Scale, p.Position.X * f.Scale
}

// Heading returns the body yaw in the local frame, in radians within (-pi, pi].
func (f Frame) Heading(p RigidBodyPose) float64 {
	q := p.Orientation
	// forward axis -Z rotated by q, then permuted into the local frame
	fx := 1 - 2*(q.X*q.X+q.Y*q.Y)
	fy := -2 * (q.X*q.Z + q.W*q.Y)
	return math.Atan2(fy, fx)
}

// MotionCapture assigns tractor and trailer poses from tracking data and recomputes the
// derived quantities. V1 and Delta still come from the actuation input and only feed the
// rate estimates.
//
// V2 is not assigned: it keeps whatever value it had before.
type MotionCapture struct {
	Frame Frame
}

func (m MotionCapture) Step(s *vehicle.State, dt float64, in Input) {
	s.X1Prev = s.X1
	s.Y1Prev = s.Y1
	s.Psi1Prev = s.Psi1
	s.Psi2Prev = s.Psi2

	s.V1 = in.Velocity
	s.Delta = in.SteerAngle

	if in.Tractor != nil {
		s.X1, s.Y1 = m.Frame.Position(*in.Tractor)
		s.Psi1 = m.Frame.Heading(*in.Tractor)
	}
	if in.Trailer != nil {
		s.X2, s.Y2 = m.Frame.Position(*in.Trailer)
		s.Psi2 = m.Frame.Heading(*in.Trailer)
	}

	s.Gamma = s.Psi1 - s.Psi2

	s.Psi1dot = s.V1 / s.L1 * math.Tan(s.Delta)

	s.X1dot = s.V1 * math.Cos(s.Psi1)
	s.Y1dot = s.V1 * math.Sin(s.Psi1)

	s.Psi2dot = (s.V1*math.Sin(s.Gamma) + s.Psi1dot*s.L1c*math.Cos(s.Gamma)) / s.L2

	s.X0, s.Y0 = vehicle.FrontAxle(s.X1, s.Y1, s.Psi1, s.L1)
	s.X1c, s.Y1c = vehicle.Hitch(s.X1, s.Y1, s.Psi1, s.L1c)
}
