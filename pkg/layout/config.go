package layout

import (
	"math"

	"github.com/matzehuels/bandmap/pkg/geo"
)

// Default simulation parameters.
const (
	DefaultBaseMarkerSize = 32.0
	DefaultMaxMarkerSize  = 44.0
	DefaultMinGap         = 2.0
	DefaultIterations     = 120
	DefaultZoomLow        = 1.0
	DefaultZoomHigh       = 10.0
	DefaultRadialRadius   = 3.0
	DefaultSpiralScale    = 0.5
)

// Config controls the force simulation.
type Config struct {
	// Zoom is the viewport zoom the layout is computed for. Zero means
	// "ask the converter".
	Zoom float64 `toml:"-" json:"zoom,omitempty"`

	BaseMarkerSize float64 `toml:"base_marker_size" json:"base_marker_size"`
	MaxMarkerSize  float64 `toml:"max_marker_size" json:"max_marker_size"`
	MinGap         float64 `toml:"min_gap" json:"min_gap"`
	Iterations     int     `toml:"iterations" json:"iterations"`

	// ZoomLow and ZoomHigh bound the interpolation range for marker size
	// and centering strength.
	ZoomLow  float64 `toml:"zoom_low" json:"zoom_low"`
	ZoomHigh float64 `toml:"zoom_high" json:"zoom_high"`

	// CenterScale multiplies the centering strength. Dense provinces use
	// a smaller value so that markers may spread further.
	CenterScale float64 `toml:"-" json:"center_scale,omitempty"`
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		BaseMarkerSize: DefaultBaseMarkerSize,
		MaxMarkerSize:  DefaultMaxMarkerSize,
		MinGap:         DefaultMinGap,
		Iterations:     DefaultIterations,
		ZoomLow:        DefaultZoomLow,
		ZoomHigh:       DefaultZoomHigh,
		CenterScale:    1,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.BaseMarkerSize <= 0 {
		c.BaseMarkerSize = d.BaseMarkerSize
	}
	if c.MaxMarkerSize < c.BaseMarkerSize {
		c.MaxMarkerSize = math.Max(d.MaxMarkerSize, c.BaseMarkerSize)
	}
	if c.MinGap < 0 {
		c.MinGap = 0
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	if c.ZoomLow <= 0 {
		c.ZoomLow = d.ZoomLow
	}
	if c.ZoomHigh <= c.ZoomLow {
		c.ZoomHigh = c.ZoomLow + (d.ZoomHigh - d.ZoomLow)
	}
	if c.CenterScale <= 0 {
		c.CenterScale = d.CenterScale
	}
	return c
}

// zoomT returns the interpolation parameter for the configured zoom.
func (c Config) zoomT() float64 {
	return geo.Clamp((c.Zoom-c.ZoomLow)/(c.ZoomHigh-c.ZoomLow), 0, 1)
}

// MarkerSize returns the marker diameter in pixels at the configured zoom.
func (c Config) MarkerSize() float64 {
	return geo.Lerp(c.BaseMarkerSize, c.MaxMarkerSize, c.zoomT())
}

// CenterStrength returns the radial centering strength.
func (c Config) CenterStrength() float64 {
	return (0.3 + 0.7*c.zoomT()) * c.CenterScale
}

// CollideRadius is the per-marker collision radius.
func (c Config) CollideRadius() float64 {
	return c.MarkerSize()/2 + c.MinGap
}

// Crowded returns the configuration for a dense province: half the
// centering strength and 1.5 times the iteration budget.
func (c Config) Crowded() Config {
	c.Iterations = int(math.Ceil(float64(c.Iterations) * 1.5))
	c.CenterScale *= 0.5
	return c
}
