package vehicle

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const epsilon = 1e-9

func TestState_Initialize(t *testing.T) {
	s := State{X1: 3, Psi1: 0.5}
	s.Initialize(2, 5, 1, 8, 2.5, 2.6)

	cases := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"l1", s.L1, 10},
		{"l1c", s.L1c, 2},
		{"l2", s.L2, 16},
		{"tractor width", s.TractorWidth, 5},
		{"trailer width", s.TrailerWidth, 5.2},
		{"pose untouched", s.X1, 3},
		{"heading untouched", s.Psi1, 0.5},
	}
	for _, c := range cases {
		if math.Abs(c.value-c.expected) > epsilon {
			t.Errorf("[%v] bad value: %v, wants %v", c.name, c.value, c.expected)
		}
	}
}

func TestNew(t *testing.T) {
	s := New(0.5, Shape{L1Ratio: 4, L1cRatio: 1, L2Ratio: 6, TractorWidthRatio: 2, TrailerWidthRatio: 3})
	if s.L1 != 2 || s.L1c != 0.5 || s.L2 != 3 || s.TractorWidth != 1 || s.TrailerWidth != 1.5 {
		t.Errorf("bad geometry: %#v", s)
	}
	if s.X1 != 0 || s.Y1 != 0 || s.Psi1 != 0 || s.Psi2 != 0 {
		t.Errorf("new state should start at origin: %#v", s)
	}
}

func TestState_SetVehiclePosition(t *testing.T) {
	s := State{X0: 42, V1: 3, Gamma: 0.7}
	s.SetVehiclePosition(1.5, -2, 90, 180)

	if s.X1 != 1.5 || s.Y1 != -2 {
		t.Errorf("bad position (%v, %v), wants (1.5, -2)", s.X1, s.Y1)
	}
	if math.Abs(s.Psi1-math.Pi/2) > epsilon {
		t.Errorf("bad tractor heading %v, wants %v", s.Psi1, math.Pi/2)
	}
	if math.Abs(s.Psi2-math.Pi) > epsilon {
		t.Errorf("bad trailer heading %v, wants %v", s.Psi2, math.Pi)
	}
	// derived quantities wait for the next step
	if s.X0 != 42 || s.V1 != 3 || s.Gamma != 0.7 {
		t.Errorf("teleport should not touch derived fields: %#v", s)
	}
}

func TestState_SetAngles(t *testing.T) {
	s := State{Psi1: 1, Psi2: -1}
	s.SetTractorAngle(2, 0.1)
	s.SetTrailerAngle(-3, 0.1)
	if math.Abs(s.Psi1-1.2) > epsilon {
		t.Errorf("bad tractor heading %v, wants 1.2", s.Psi1)
	}
	if math.Abs(s.Psi2+1.3) > epsilon {
		t.Errorf("bad trailer heading %v, wants -1.3", s.Psi2)
	}
	if math.Abs(s.Articulation()-2.5) > epsilon {
		t.Errorf("bad articulation %v, wants 2.5", s.Articulation())
	}
}

func TestState_UpdateOffsets(t *testing.T) {
	s := State{X1: 1, Y1: 2, Psi1: math.Pi / 2, Psi2: 0, L1: 5, L1c: 1, L2: 8}
	s.UpdateOffsets()
	first := s
	s.UpdateOffsets()
	if s != first {
		t.Errorf("offsets should be idempotent: %#v, wants %#v", s, first)
	}

	cases := []struct {
		name   string
		x, y   float64
		wx, wy float64
	}{
		{"front axle", s.X0, s.Y0, 1, 7},
		{"hitch", s.X1c, s.Y1c, 1, 3},
		{"trailer axle", s.X2, s.Y2, -7, 3},
	}
	for _, c := range cases {
		if math.Abs(c.x-c.wx) > epsilon || math.Abs(c.y-c.wy) > epsilon {
			t.Errorf("[%v] bad position (%v, %v), wants (%v, %v)", c.name, c.x, c.y, c.wx, c.wy)
		}
	}
}

func TestLoadShapes(t *testing.T) {
	content := `
test-rig:
  l1: 5
  l1c: 1
  l2: 8
  tractor_width: 2
  trailer_width: 2
`
	shapes, err := LoadShapes(strings.NewReader(content))
	if err != nil {
		t.Fatalf("unable to load shapes: %v", err)
	}
	rig, err := shapes.Get("test-rig")
	if err != nil {
		t.Fatalf("unable to get test-rig: %v", err)
	}
	if rig.L1Ratio != 5 || rig.L2Ratio != 8 {
		t.Errorf("bad shape %#v", rig)
	}
	if _, err := shapes.Get(DefaultShapeName); err != nil {
		t.Errorf("default shape should still be available: %v", err)
	}
	if _, err := shapes.Get("unknown"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("bad error %v, wants %v", err, ErrUnknownShape)
	}
}

func TestLoadShapes_Invalid(t *testing.T) {
	content := `
broken:
  l1: 0
  l1c: 1
  l2: 8
  tractor_width: 2
  trailer_width: 2
`
	_, err := LoadShapes(strings.NewReader(content))
	if !errors.Is(err, ErrInvalidShape) {
		t.Errorf("bad error %v, wants %v", err, ErrInvalidShape)
	}
}

func TestLoadShapes_Empty(t *testing.T) {
	shapes, err := LoadShapes(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shapes) != len(DefaultShapes()) {
		t.Errorf("bad number of shapes %v, wants %v", len(shapes), len(DefaultShapes()))
	}
}
