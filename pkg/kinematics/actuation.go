package kinematics

import (
	"math"

	"github.com/cyrilix/robocar-truck/pkg/vehicle"
)

// Actuation integrates velocity and steering commands.
type Actuation struct{}

func (Actuation) Step(s *vehicle.State, dt float64, in Input) {
	Step(s, dt, in.Velocity, in.SteerAngle)
}

// Step advances s by dt seconds under a velocity and a steering angle in radians.
// The steering angle is not clamped. dt = 0 recomputes rates and offsets without moving.
//
// Field order matters for numerical parity with recorded paths: the tractor heading is
// advanced before the velocity components are evaluated, and the front axle is projected
// from the drive axle position before the drive axle is advanced.
func Step(s *vehicle.State, dt, inputVelocity, inputSteerAngle float64) {
	s.X1Prev = s.X1
	s.Y1Prev = s.Y1
	s.Psi1Prev = s.Psi1
	s.Psi2Prev = s.Psi2

	s.V1 = inputVelocity
	s.Delta = inputSteerAngle

	s.Gamma = s.Psi1 - s.Psi2

	s.Psi1dot = s.V1 / s.L1 * math.Tan(s.Delta)
	s.Psi1 += s.Psi1dot * dt

	s.X1dot = s.V1 * math.Cos(s.Psi1)
	s.Y1dot = s.V1 * math.Sin(s.Psi1)

	s.Psi2dot = (s.V1*math.Sin(s.Gamma) + s.Psi1dot*s.L1c*math.Cos(s.Gamma)) / s.L2
	s.Psi2 += s.Psi2dot * dt

	s.V2 = s.V1*math.Cos(s.Gamma) - s.Psi1dot*s.L1c*math.Sin(s.Gamma)

	s.X0, s.Y0 = vehicle.FrontAxle(s.X1, s.Y1, s.Psi1, s.L1)
	s.X1 = s.X1Prev + s.X1dot*dt
	s.Y1 = s.Y1Prev + s.Y1dot*dt
	s.X1c, s.Y1c = vehicle.Hitch(s.X1, s.Y1, s.Psi1, s.L1c)
	s.X2, s.Y2 = vehicle.TrailerAxle(s.X1c, s.Y1c, s.Psi2, s.L2)
}
