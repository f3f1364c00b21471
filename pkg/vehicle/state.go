// Package vehicle holds the kinematic state of an articulated tractor-trailer.
package vehicle

import "math"

// State is the instantaneous and previous-step kinematic state of one tractor-trailer,
// plus its fixed geometry.
//
// Positions are expressed in the local 2D frame, angles in radians. Headings are not
// wrapped and accumulate over time.
type State struct {
	// Front axle (tractor steering axle)
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	// Tractor drive axle, reference point of the tractor
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	// Hitch (fifth wheel)
	X1c float64 `json:"x1c"`
	Y1c float64 `json:"y1c"`
	// Trailer axle
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`

	Psi1  float64 `json:"psi1"`
	Psi2  float64 `json:"psi2"`
	Gamma float64 `json:"gamma"`

	V1    float64 `json:"v1"`
	V2    float64 `json:"v2"`
	Delta float64 `json:"delta"`

	L1           float64 `json:"l1"`
	L1c          float64 `json:"l1c"`
	L2           float64 `json:"l2"`
	TractorWidth float64 `json:"tractor_width"`
	TrailerWidth float64 `json:"trailer_width"`

	X1Prev   float64 `json:"x1_prev"`
	Y1Prev   float64 `json:"y1_prev"`
	Psi1Prev float64 `json:"psi1_prev"`
	Psi2Prev float64 `json:"psi2_prev"`

	X1dot   float64 `json:"x1_dot"`
	Y1dot   float64 `json:"y1_dot"`
	Psi1dot float64 `json:"psi1_dot"`
	Psi2dot float64 `json:"psi2_dot"`
}

// New returns a state at the origin whose geometry is shape scaled by scale.
func New(scale float64, shape Shape) *State {
	s := State{}
	s.Initialize(scale, shape.L1Ratio, shape.L1cRatio, shape.L2Ratio, shape.TractorWidthRatio, shape.TrailerWidthRatio)
	return &s
}

// Initialize sets the vehicle geometry from normalized ratios and a scale factor.
// Caller guarantees every argument is positive.
func (s *State) Initialize(scale, l1Ratio, l1cRatio, l2Ratio, tractorWidthRatio, trailerWidthRatio float64) {
	s.L1 = l1Ratio * scale
	s.L1c = l1cRatio * scale
	s.L2 = l2Ratio * scale
	s.TractorWidth = tractorWidthRatio * scale
	s.TrailerWidth = trailerWidthRatio * scale
}

// SetVehiclePosition teleports the tractor reference point to (x, y) and overwrites both
// headings. Derived quantities are left untouched until the next step.
func (s *State) SetVehiclePosition(x, y, tractorAngleDeg, trailerAngleDeg float64) {
	s.X1 = x
	s.Y1 = y
	s.Psi1 = degToRad(tractorAngleDeg)
	s.Psi2 = degToRad(trailerAngleDeg)
}

// SetTractorAngle rotates the tractor by scrollDelta*sensitivity radians.
func (s *State) SetTractorAngle(scrollDelta, sensitivity float64) {
	s.Psi1 += scrollDelta * sensitivity
}

// SetTrailerAngle rotates the trailer by scrollDelta*sensitivity radians.
func (s *State) SetTrailerAngle(scrollDelta, sensitivity float64) {
	s.Psi2 += scrollDelta * sensitivity
}

// Articulation returns psi1 - psi2 from the current headings.
func (s *State) Articulation() float64 {
	return s.Psi1 - s.Psi2
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
