package main

import (
	"errors"
	"math"
	"testing"

	"github.com/cyrilix/robocar-truck/pkg/vehicle"
)

func TestParseRegion(t *testing.T) {
	cases := []struct {
		name       string
		value      string
		wantErr    bool
		wantCenter vehicle.Point
	}{
		{name: "square", value: "0,0 4,0 4,4 0,4", wantCenter: vehicle.Point{X: 2, Y: 2}},
		{name: "extra spaces", value: "  -2,-1   2,-1 2,1 -2,1 ", wantCenter: vehicle.Point{X: 0, Y: 0}},
		{name: "bad vertex", value: "0,0 4 4,4", wantErr: true},
		{name: "bad number", value: "0,0 4,x 4,4", wantErr: true},
		{name: "too few vertices", value: "0,0 4,4", wantErr: true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := parseRegion(c.value)
			if (err != nil) != c.wantErr {
				t.Fatalf("parseRegion(%q): err=%v, wants error %v", c.value, err, c.wantErr)
			}
			if c.wantErr {
				return
			}
			center := r.Center()
			if math.Abs(center.X-c.wantCenter.X) > 1e-9 || math.Abs(center.Y-c.wantCenter.Y) > 1e-9 {
				t.Errorf("invalid center %v, wants %v", center, c.wantCenter)
			}
		})
	}

	if _, err := parseRegion("0,0 1,1"); !errors.Is(err, vehicle.ErrInvalidRegion) {
		t.Errorf("invalid error %v, wants %v", err, vehicle.ErrInvalidRegion)
	}
}

func TestLoadShape(t *testing.T) {
	shape, err := loadShape("", vehicle.DefaultShapeName)
	if err != nil {
		t.Fatalf("unable to load default shape: %v", err)
	}
	if shape != vehicle.DefaultShapes()[vehicle.DefaultShapeName] {
		t.Errorf("invalid shape %#v", shape)
	}

	if _, err := loadShape("", "unknown"); !errors.Is(err, vehicle.ErrUnknownShape) {
		t.Errorf("invalid error %v, wants %v", err, vehicle.ErrUnknownShape)
	}
	if _, err := loadShape("testdata/missing.yaml", vehicle.DefaultShapeName); err == nil {
		t.Errorf("an error is expected for a missing file")
	}
}
