package vehicle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func straightTruck() *State {
	s := New(1, Shape{L1Ratio: 5, L1cRatio: 1, L2Ratio: 8, TractorWidthRatio: 2, TrailerWidthRatio: 3})
	s.SetVehiclePosition(10, 4, 0, 0)
	s.UpdateOffsets()
	return s
}

func TestState_TractorBoundingBox_Heading0(t *testing.T) {
	s := straightTruck()
	box := s.TractorBoundingBox()

	fl, fr, rr, rl := box[0], box[1], box[2], box[3]
	assert.InDelta(t, fl.X, fr.X, epsilon, "front corners share the longitudinal coordinate")
	assert.InDelta(t, s.TractorWidth, fl.Y-fr.Y, epsilon, "front-left is tractorWidth left of front-right")
	assert.InDelta(t, s.X0-s.X1, fl.X-rl.X, epsilon)
	assert.InDelta(t, s.X0-s.X1, fr.X-rr.X, epsilon)
	assert.InDelta(t, 15.0, fl.X, epsilon)
	assert.InDelta(t, 5.0, fl.Y, epsilon)
	assert.InDelta(t, 3.0, rr.Y, epsilon)
}

func TestState_TrailerBoundingBox_Rotated(t *testing.T) {
	s := straightTruck()
	s.SetVehiclePosition(0, 0, 90, 90)
	s.UpdateOffsets()
	box := s.TrailerBoundingBox()

	// heading +Y, left is -X
	assert.InDelta(t, -s.TrailerWidth/2, box[0].X, epsilon)
	assert.InDelta(t, s.TrailerWidth/2, box[1].X, epsilon)
	assert.InDelta(t, s.Y1c, box[0].Y, epsilon)
	assert.InDelta(t, s.Y2, box[3].Y, epsilon)
	assert.InDelta(t, s.L2, box[0].Y-box[3].Y, epsilon)
}

func TestBoundingBox_Polygon(t *testing.T) {
	box := straightTruck().TractorBoundingBox()
	poly, err := box.Polygon()
	require.NoError(t, err)

	assert.InDelta(t, 5.0*2.0, poly.Area(), 1e-6)
	assert.Equal(t, 5, poly.ExteriorRing().Coordinates().Length())
}

func TestState_InsideRegion(t *testing.T) {
	s := straightTruck()

	bay, err := NewRegion("bay", []Point{{-10, -5}, {20, -5}, {20, 10}, {-10, 10}})
	require.NoError(t, err)
	inside, err := s.InsideRegion(bay)
	require.NoError(t, err)
	assert.True(t, inside)

	narrow, err := NewRegion("narrow", []Point{{5, -5}, {20, -5}, {20, 10}, {5, 10}})
	require.NoError(t, err)
	inside, err = s.InsideRegion(narrow)
	require.NoError(t, err)
	assert.False(t, inside, "trailer sticks out of the region")
}

func TestRegion_Center(t *testing.T) {
	r, err := NewRegion("square", []Point{{0, 0}, {4, 0}, {4, 2}, {0, 2}})
	require.NoError(t, err)
	c := r.Center()
	assert.InDelta(t, 2.0, c.X, epsilon)
	assert.InDelta(t, 1.0, c.Y, epsilon)
}

func TestNewRegion_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		vertices  []Point
		wantErrIs error
	}{
		{name: "line", vertices: []Point{{0, 0}, {1, 1}}, wantErrIs: ErrInvalidRegion},
		{name: "bowtie", vertices: []Point{{0, 0}, {4, 4}, {4, 0}, {0, 4}}},
		{name: "not finite", vertices: []Point{{0, 0}, {math.NaN(), 0}, {4, 4}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewRegion(c.name, c.vertices)
			require.Error(t, err)
			if c.wantErrIs != nil {
				assert.ErrorIs(t, err, c.wantErrIs)
			}
		})
	}
}

func TestState_InsideRegion_InvalidBox(t *testing.T) {
	s := straightTruck()
	s.X1 = math.NaN()
	s.UpdateOffsets()

	bay, err := NewRegion("bay", []Point{{-10, -5}, {20, -5}, {20, 10}, {-10, 10}})
	require.NoError(t, err)
	_, err = s.InsideRegion(bay)
	assert.Error(t, err)
}

func TestState_BoundingBox_NoSideEffect(t *testing.T) {
	s := straightTruck()
	s.Psi1 = math.Pi / 3
	before := *s
	_ = s.TractorBoundingBox()
	_ = s.TrailerBoundingBox()
	assert.Equal(t, before, *s)
}
