// Package pipeline provides the one-shot load → layout → render pipeline
// behind the bandmap CLI and server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read the band dataset and province geometry from a data
//     directory or a remote base URL, and derive the province atlas
//  2. Layout: run one layout pass through a [controller.Controller], either
//     for the national overview or for a focused province
//  3. Render: draw the snapshot as SVG, JSON, PNG or PDF
//
// Only the province atlas is cached (keyed by the geometry's content hash).
// Layout results depend on the viewport and are recomputed every time.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    DataDir:  "data",
//	    Province: "四川",
//	    Formats:  []render.Format{render.FormatSVG},
//	})
//	svg := result.Artifacts[render.FormatSVG]
//
// Interactive callers keep the controller instead:
//
//	data, _, err := runner.Load(ctx, opts)
//	vp, ctrl := runner.NewSession(data, opts)
package pipeline

import (
	"io"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/controller"
	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/layout"
	"github.com/matzehuels/bandmap/pkg/render"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultDataDir is the local data directory used when neither DataDir
	// nor DataURL is set.
	DefaultDataDir = "data"

	// DefaultScale is the PNG resolution multiplier.
	DefaultScale = 2.0
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	DataDir  string `json:"data_dir,omitempty"`
	DataURL  string `json:"data_url,omitempty"`
	Geometry string `json:"geometry,omitempty"`
	Refresh  bool   `json:"refresh,omitempty"`

	// Layout options
	Strategy     layout.Strategy  `json:"strategy,omitempty"`
	Layout       layout.Config    `json:"layout"`
	RadialRadius float64          `json:"radial_radius,omitempty"`
	SpiralScale  float64          `json:"spiral_scale,omitempty"`
	Viewport     viewport.Options `json:"viewport"`
	Province     string           `json:"province,omitempty"`
	Filter       band.Filter      `json:"filter"`

	// Render options
	Formats    []render.Format `json:"formats,omitempty"`
	Connectors bool            `json:"connectors,omitempty"`
	Labels     bool            `json:"labels,omitempty"`
	Counts     bool            `json:"counts,omitempty"`
	Scale      float64         `json:"scale,omitempty"`
	Title      string          `json:"title,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
	// FS overrides DataDir and DataURL.
	FS fs.FS `json:"-"`
	// Controller supplies timings and the clock for sessions. Surface,
	// Layout and Strategy are taken from the fields above.
	Controller controller.Options `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Data     *Data
	Snapshot *controller.Snapshot
	View     viewport.Transform

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[render.Format][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Data is the loaded input of a layout pass.
type Data struct {
	Dataset *band.Dataset
	// Geometry is nil when no boundary file could be read; Atlas is then
	// the built-in centre table.
	Geometry *band.Geometry
	Atlas    *band.Atlas
	// GeometryHash is the content hash of the boundary file.
	GeometryHash string
}

// Bands returns the loaded bands.
func (d *Data) Bands() []band.Band {
	if d == nil || d.Dataset == nil {
		return nil
	}
	return d.Dataset.Bands
}

// Stats contains pipeline execution statistics.
type Stats struct {
	BandCount     int
	ProvinceCount int
	Positioned    int
	Degraded      int
	LoadTime      time.Duration
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	AtlasHit bool // Whether the province atlas came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks option values and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad sets the data source defaults.
func (o *Options) ValidateForLoad() error {
	if o.DataDir == "" && o.DataURL == "" && o.FS == nil {
		o.DataDir = DefaultDataDir
	}
	if o.Geometry == "" {
		o.Geometry = band.GeometryFile
	}
	if err := errors.ValidatePath(o.Geometry); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForLayout checks the strategy and viewport.
func (o *Options) ValidateForLayout() error {
	if o.Strategy == "" {
		o.Strategy = layout.StrategyAuto
	}
	if _, err := layout.ParseStrategy(string(o.Strategy)); err != nil {
		return err
	}
	if o.Viewport.Width < 0 || o.Viewport.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "viewport size must not be negative")
	}
	if err := errors.ValidateFinite("zoom", o.Viewport.Zoom); err != nil {
		return err
	}
	o.Layout = o.Layout.WithDefaults()
	return nil
}

// ValidateForRender checks the output formats.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []render.Format{render.FormatSVG}
	}
	for _, f := range o.Formats {
		if _, err := render.ParseFormat(string(f)); err != nil {
			return err
		}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	return nil
}

// ControllerOptions returns the controller options for a session on surface.
func (o *Options) ControllerOptions(surface controller.Surface) controller.Options {
	co := o.Controller
	co.Surface = surface
	co.Layout = o.Layout
	co.Strategy = o.Strategy
	co.RadialRadius = o.RadialRadius
	co.SpiralScale = o.SpiralScale
	if co.Logger == nil {
		co.Logger = o.Logger
	}
	return co
}
