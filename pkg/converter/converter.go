// Package converter maps between geographic coordinates and the current
// viewport's pixel space.
//
// A [Converter] never caches a conversion: every call goes to the rendering
// surface, so results always reflect the latest committed transform.
package converter

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/geo"
)

// DefaultZoom is returned by [Converter.Zoom] when the surface cannot report
// a zoom factor.
const DefaultZoom = 1.2

// Surface is the viewport accessor supplied by the rendering surface.
// [viewport.Viewport] is the reference implementation.
type Surface interface {
	Ready() bool
	GeoToScreen(orb.Point) (geo.Pixel, error)
	ScreenToGeo(geo.Pixel) (orb.Point, error)
	CurrentZoom() (float64, error)
}

// Converter is a live view over a ready Surface.
type Converter struct {
	surface Surface
}

// New returns a converter over s, or nil when s is missing or not yet
// initialized. Callers must check for nil and skip layout for that cycle.
func New(s Surface) *Converter {
	if s == nil || !s.Ready() {
		return nil
	}
	return &Converter{surface: s}
}

// GeoToPixel projects a geographic point into viewport pixels. A failed
// conversion yields a non-finite pixel.
func (c *Converter) GeoToPixel(p orb.Point) geo.Pixel {
	px, err := c.surface.GeoToScreen(p)
	if err != nil {
		return geo.Pixel{X: math.NaN(), Y: math.NaN()}
	}
	return px
}

// PixelToGeo inverts GeoToPixel. A failed conversion yields a non-finite
// point.
func (c *Converter) PixelToGeo(px geo.Pixel) orb.Point {
	p, err := c.surface.ScreenToGeo(px)
	if err != nil {
		return orb.Point{math.NaN(), math.NaN()}
	}
	return p
}

// Zoom returns the current zoom factor, or DefaultZoom on any failure.
func (c *Converter) Zoom() float64 {
	if c == nil {
		return DefaultZoom
	}
	z, err := c.surface.CurrentZoom()
	if err != nil || math.IsNaN(z) || math.IsInf(z, 0) || z <= 0 {
		return DefaultZoom
	}
	return z
}
