package layout

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/geo"
)

// Radial places bands evenly on a circle around the anchor, starting at
// 12 o'clock and proceeding clockwise on screen.
type Radial struct {
	// Radius of the circle in degrees of latitude. Zero means
	// DefaultRadialRadius.
	Radius float64
}

// Place implements Placer.
func (r Radial) Place(anchor orb.Point, bands []band.Band) []Result {
	switch len(bands) {
	case 0:
		return nil
	case 1:
		return []Result{{BandID: bands[0].ID, Position: anchor, Anchor: anchor, Strategy: StrategyRadial}}
	}
	radius := r.Radius
	if radius <= 0 {
		radius = DefaultRadialRadius
	}
	step := 2 * math.Pi / float64(len(bands))
	out := make([]Result, len(bands))
	for i, b := range bands {
		angle := -math.Pi/2 + float64(i)*step
		out[i] = Result{
			BandID:   b.ID,
			Position: geo.Offset(anchor, radius, angle),
			Anchor:   anchor,
			Strategy: StrategyRadial,
		}
	}
	return out
}

// Spiral places bands on a golden-angle spiral in geographic space.
type Spiral struct {
	// Scale is the radius of the spiral in degrees per √(i+0.5). Zero means
	// DefaultSpiralScale.
	Scale float64
}

// Place implements Placer.
func (s Spiral) Place(anchor orb.Point, bands []band.Band) []Result {
	switch len(bands) {
	case 0:
		return nil
	case 1:
		return []Result{{BandID: bands[0].ID, Position: anchor, Anchor: anchor, Strategy: StrategySpiral}}
	}
	scale := s.Scale
	if scale <= 0 {
		scale = DefaultSpiralScale
	}
	out := make([]Result, len(bands))
	for i, b := range bands {
		angle := geo.Radians(float64(i) * 137.5)
		radius := scale * math.Sqrt(float64(i)+0.5)
		out[i] = Result{
			BandID:   b.ID,
			Position: geo.Offset(anchor, radius, angle),
			Anchor:   anchor,
			Strategy: StrategySpiral,
		}
	}
	return out
}

// Raw leaves every band at its own resolved coordinate.
type Raw struct{}

// Place implements Placer. Bands without a coordinate fall back to the
// anchor, or to band.DefaultCoordinate when the anchor is not finite.
func (Raw) Place(anchor orb.Point, bands []band.Band) []Result {
	if len(bands) == 0 {
		return nil
	}
	out := make([]Result, len(bands))
	for i, b := range bands {
		out[i] = rawResult(anchor, b)
	}
	return out
}

func rawResult(anchor orb.Point, b band.Band) Result {
	pos, ok := b.Coord()
	if !ok || !geo.Finite(pos) {
		pos = anchor
	}
	if !geo.Finite(pos) {
		pos = band.DefaultCoordinate
	}
	if !geo.Finite(anchor) {
		anchor = pos
	}
	return Result{BandID: b.ID, Position: pos, Anchor: anchor, Strategy: StrategyRaw}
}
