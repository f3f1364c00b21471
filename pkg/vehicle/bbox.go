package vehicle

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidRegion is returned when a region has fewer than 3 vertices
var ErrInvalidRegion = errors.New("region needs at least 3 vertices")

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox corners, ordered front-left, front-right, rear-right, rear-left
type BoundingBox [4]Point

// TractorBoundingBox returns the rectangle spanning from the drive axle to the front axle,
// TractorWidth wide, rotated by Psi1.
func (s *State) TractorBoundingBox() BoundingBox {
	return rectangle(Point{s.X0, s.Y0}, Point{s.X1, s.Y1}, s.Psi1, s.TractorWidth)
}

// TrailerBoundingBox returns the rectangle spanning from the trailer axle to the hitch,
// TrailerWidth wide, rotated by Psi2.
func (s *State) TrailerBoundingBox() BoundingBox {
	return rectangle(Point{s.X1c, s.Y1c}, Point{s.X2, s.Y2}, s.Psi2, s.TrailerWidth)
}

func rectangle(front, rear Point, heading, width float64) BoundingBox {
	// left normal of the heading
	nx := -math.Sin(heading) * width / 2
	ny := math.Cos(heading) * width / 2
	return BoundingBox{
		{front.X + nx, front.Y + ny},
		{front.X - nx, front.Y - ny},
		{rear.X - nx, rear.Y - ny},
		{rear.X + nx, rear.Y + ny},
	}
}

// Polygon returns the box as a closed polygon, invalid geometry is reported as an error.
func (b BoundingBox) Polygon() (geom.Polygon, error) {
	return newPolygon(b[:])
}

func newPolygon(vertices []Point) (geom.Polygon, error) {
	coords := make([]float64, 0, 2*(len(vertices)+1))
	for i, p := range vertices {
		if !isFinite(p.X) || !isFinite(p.Y) {
			return geom.Polygon{}, fmt.Errorf("vertex %d is not finite: %v", i, p)
		}
		coords = append(coords, p.X, p.Y)
	}
	coords = append(coords, vertices[0].X, vertices[0].Y)
	ring, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid ring: %w", err)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid polygon: %w", err)
	}
	return poly, nil
}

// Region is a named polygonal area of the local frame, e.g. a parking bay
type Region struct {
	Name string
	Area geom.Polygon
}

// NewRegion builds a region from its vertices, the ring is closed automatically.
func NewRegion(name string, vertices []Point) (Region, error) {
	if len(vertices) < 3 {
		return Region{}, fmt.Errorf("region %q: %w", name, ErrInvalidRegion)
	}
	area, err := newPolygon(vertices)
	if err != nil {
		return Region{}, fmt.Errorf("region %q: %w", name, err)
	}
	return Region{Name: name, Area: area}, nil
}

// Center returns the region centroid.
func (r Region) Center() Point {
	xy, ok := r.Area.Centroid().XY()
	if !ok {
		return Point{}
	}
	return Point{X: xy.X, Y: xy.Y}
}

// InsideRegion reports whether both tractor and trailer boxes are covered by the region.
func (s *State) InsideRegion(r Region) (bool, error) {
	for _, box := range []BoundingBox{s.TractorBoundingBox(), s.TrailerBoundingBox()} {
		poly, err := box.Polygon()
		if err != nil {
			return false, fmt.Errorf("unable to check region %q: %w", r.Name, err)
		}
		covered, err := geom.Covers(r.Area.AsGeometry(), poly.AsGeometry())
		if err != nil {
			return false, fmt.Errorf("unable to check region %q: %w", r.Name, err)
		}
		if !covered {
			return false, nil
		}
	}
	return true, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
