// Package kinematics advances a tractor-trailer state by one fixed time step.
//
// Two interchangeable strategies implement Integrator:
//
//   - Actuation integrates a velocity and steering command with explicit Euler
//     on a kinematic single-track model with a hitch constraint,
//   - MotionCapture assigns tractor and trailer poses from tracking data and
//     only recomputes the derived quantities.
//
// Both are pure CPU work on the state fields: no locking, no logging, no error
// paths. Degenerate geometry (zero wheelbase) propagates NaN or Inf.
package kinematics

import (
	"errors"
	"fmt"

	"github.com/cyrilix/robocar-truck/pkg/vehicle"
)

type Mode string

const (
	ModeActuation = Mode("actuation")
	ModeMocap     = Mode("mocap")
)

var ErrUnknownMode = errors.New("unknown kinematics mode")

// Input is the command applied during one step. Tractor and Trailer are only read by
// MotionCapture, a nil pose keeps the previous tracked value.
type Input struct {
	Velocity   float64
	SteerAngle float64

	Tractor *RigidBodyPose
	Trailer *RigidBodyPose
}

// Integrator mutates state to reflect one dt advance. It must be called exactly once per
// tick: the previous-step snapshot is taken at the beginning of every call.
type Integrator interface {
	Step(state *vehicle.State, dt float64, in Input)
}

// New returns the integrator for mode. frame is only used by the motion capture strategy.
func New(mode Mode, frame Frame) (Integrator, error) {
	switch mode {
	case ModeActuation:
		return Actuation{}, nil
	case ModeMocap:
		return MotionCapture{Frame: frame}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
