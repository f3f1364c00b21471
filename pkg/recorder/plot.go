package recorder

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

const plotMargin = 10

var (
	tractorColor = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	trailerColor = color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// Plot renders the tractor and trailer axle tracks of p, seen from above with +y up, on a
// size x size image.
func Plot(p Path, size int) (*image.NRGBA, error) {
	if len(p.Samples) == 0 {
		return nil, fmt.Errorf("unable to plot path %q: %w", p.Name, ErrEmptyPath)
	}
	if size <= 2*plotMargin {
		return nil, fmt.Errorf("invalid plot size %v", size)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range p.Samples {
		for _, v := range []Vec2{s.TractorAxle, s.TrailerAxle} {
			minX, maxX = math.Min(minX, v[0]), math.Max(maxX, v[0])
			minY, maxY = math.Min(minY, v[1]), math.Max(maxY, v[1])
		}
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		span = 1
	}
	ratio := float64(size-2*plotMargin) / span

	toPixel := func(v Vec2) (float64, float64) {
		return plotMargin + (v[0]-minX)*ratio, plotMargin + (v[1]-minY)*ratio
	}

	img := imaging.New(size, size, color.White)
	for i := 1; i < len(p.Samples); i++ {
		prev, cur := p.Samples[i-1], p.Samples[i]

		x0, y0 := toPixel(prev.TrailerAxle)
		x1, y1 := toPixel(cur.TrailerAxle)
		drawLine(img, x0, y0, x1, y1, trailerColor)

		x0, y0 = toPixel(prev.TractorAxle)
		x1, y1 = toPixel(cur.TractorAxle)
		drawLine(img, x0, y0, x1, y1, tractorColor)
	}
	if len(p.Samples) == 1 {
		x, y := toPixel(p.Samples[0].TractorAxle)
		img.Set(int(math.Round(x)), int(math.Round(y)), tractorColor)
	}

	// image rows grow downward
	return imaging.FlipV(img), nil
}

// WritePNG encodes the plot of p as png.
func WritePNG(w io.Writer, p Path, size int) error {
	img, err := Plot(p, size)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("unable to encode plot of path %q: %w", p.Name, err)
	}
	return nil
}

func drawLine(img *image.NRGBA, x0, y0, x1, y1 float64, c color.Color) {
	steps := math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0)))
	if math.IsNaN(steps) {
		return
	}
	if steps == 0 {
		img.Set(int(math.Round(x0)), int(math.Round(y0)), c)
		return
	}
	dx, dy := (x1-x0)/steps, (y1-y0)/steps
	for i := 0.0; i <= steps; i++ {
		img.Set(int(math.Round(x0+i*dx)), int(math.Round(y0+i*dy)), c)
	}
}
