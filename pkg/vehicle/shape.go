package vehicle

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DefaultShapeName is the preset used when no shape file is given
const DefaultShapeName = "scaled-truck"

var (
	ErrUnknownShape = errors.New("unknown shape")
	ErrInvalidShape = errors.New("invalid shape")
)

// Shape holds the dimensionless proportions of a tractor-trailer, multiplied by a scale
// factor at initialization.
type Shape struct {
	L1Ratio           float64 `yaml:"l1"`
	L1cRatio          float64 `yaml:"l1c"`
	L2Ratio           float64 `yaml:"l2"`
	TractorWidthRatio float64 `yaml:"tractor_width"`
	TrailerWidthRatio float64 `yaml:"trailer_width"`
}

// Validate rejects non-positive ratios, the integrator divides by L1 and L2.
func (s Shape) Validate() error {
	ratios := []struct {
		name  string
		value float64
	}{
		{"l1", s.L1Ratio},
		{"l1c", s.L1cRatio},
		{"l2", s.L2Ratio},
		{"tractor_width", s.TractorWidthRatio},
		{"trailer_width", s.TrailerWidthRatio},
	}
	for _, r := range ratios {
		if !(r.value > 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidShape, r.name, r.value)
		}
	}
	return nil
}

// Shapes is a set of named presets
type Shapes map[string]Shape

// DefaultShapes returns the built-in presets, proportions of a 1:14 scaled tractor with a
// semi-trailer.
func DefaultShapes() Shapes {
	return Shapes{
		DefaultShapeName: {
			L1Ratio:           3.6,
			L1cRatio:          0.3,
			L2Ratio:           7.7,
			TractorWidthRatio: 2.5,
			TrailerWidthRatio: 2.55,
		},
	}
}

// LoadShapes decodes presets from YAML of the form:
//
//	scaled-truck:
//	  l1: 3.6
//	  l1c: 0.3
//	  l2: 7.7
//	  tractor_width: 2.5
//	  trailer_width: 2.55
//
// Loaded presets are merged over the built-in ones.
func LoadShapes(r io.Reader) (Shapes, error) {
	var loaded Shapes
	if err := yaml.NewDecoder(r).Decode(&loaded); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to decode shapes: %w", err)
	}
	shapes := DefaultShapes()
	for name, shape := range loaded {
		if err := shape.Validate(); err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		shapes[name] = shape
	}
	return shapes, nil
}

// Get returns the named preset.
func (s Shapes) Get(name string) (Shape, error) {
	shape, ok := s[name]
	if !ok {
		return Shape{}, fmt.Errorf("%w: %q", ErrUnknownShape, name)
	}
	return shape, nil
}
