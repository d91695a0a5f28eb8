// Package geo holds the small coordinate helpers shared by the layout engine.
//
// Geographic coordinates are [orb.Point] values ([lng, lat] in degrees).
// Screen coordinates are [Pixel] values in the rendering surface's current
// viewport, with y growing downwards.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Pixel is a position in viewport pixel space.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Pixel) Add(dx, dy float64) Pixel { return Pixel{X: p.X + dx, Y: p.Y + dy} }

// Dist returns the Euclidean distance between p and q.
func (p Pixel) Dist(q Pixel) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Finite reports whether both components are finite numbers.
func (p Pixel) Finite() bool { return finite(p.X) && finite(p.Y) }

// Finite reports whether both components of a geographic point are finite.
func Finite(p orb.Point) bool { return finite(p[0]) && finite(p[1]) }

// FiniteBound reports whether every corner of b is finite and the bound is
// not inverted.
func FiniteBound(b orb.Bound) bool {
	return Finite(b.Min) && Finite(b.Max) && b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1]
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Offset moves p by an angular distance (degrees) along bearing angle
// (radians, screen convention: 0 = east, -π/2 = north). The longitude
// component is stretched by 1/cos(lat) so the offset covers the same ground
// distance in both axes.
func Offset(p orb.Point, radius, angle float64) orb.Point {
	// Screen y grows downwards while latitude grows northwards.
	dLat := -radius * math.Sin(angle)
	dLng := radius * math.Cos(angle) / math.Cos(Radians(p.Lat()))
	return orb.Point{p.Lon() + dLng, p.Lat() + dLat}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
