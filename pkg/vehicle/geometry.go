package vehicle

import "math"

// FrontAxle projects the front axle position from the tractor reference point.
func FrontAxle(x1, y1, psi1, l1 float64) (float64, float64) {
	return x1 + l1*math.Cos(psi1), y1 + l1*math.Sin(psi1)
}

// Hitch projects the coupling position from the tractor reference point.
func Hitch(x1, y1, psi1, l1c float64) (float64, float64) {
	return x1 + l1c*math.Cos(psi1), y1 + l1c*math.Sin(psi1)
}

// TrailerAxle projects the trailer axle position backward from the hitch.
func TrailerAxle(x1c, y1c, psi2, l2 float64) (float64, float64) {
	return x1c - l2*math.Cos(psi2), y1c - l2*math.Sin(psi2)
}

// UpdateOffsets recomputes front axle, hitch and trailer axle from X1, Y1, Psi1 and Psi2.
func (s *State) UpdateOffsets() {
	s.X0, s.Y0 = FrontAxle(s.X1, s.Y1, s.Psi1, s.L1)
	s.X1c, s.Y1c = Hitch(s.X1, s.Y1, s.Psi1, s.L1c)
	s.X2, s.Y2 = TrailerAxle(s.X1c, s.Y1c, s.Psi2, s.L2)
}
