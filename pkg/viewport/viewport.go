// Package viewport is the reference rendering surface for the layout engine.
//
// A [Viewport] owns the map's view state (centre, zoom, pixel size) and
// exposes it only through accessors. Projection is Web Mercator (via
// orb/project) scaled to pixels, so conversions are exact inverses of each
// other under a fixed transform.
//
// Listeners registered with [Viewport.Subscribe] are notified after every
// committed change. Notifications run after the viewport's lock is released,
// so a listener may call straight back into the viewport and observe the
// committed transform.
package viewport

import (
	"errors"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/matzehuels/bandmap/pkg/geo"
)

// Default view values. The zoom limits match the map's zoom indicator range.
const (
	DefaultWidth   = 1000.0
	DefaultHeight  = 800.0
	DefaultZoom    = 1.2
	DefaultMinZoom = 0.8
	DefaultMaxZoom = 12.0
)

// DefaultCenter is the geographic centre of the national overview.
var DefaultCenter = orb.Point{104.0, 37.5}

// ErrNotReady is returned by conversions before the map geometry is ready.
var ErrNotReady = errors.New("viewport not ready")

// Options configures a new Viewport. Zero fields take the package defaults.
type Options struct {
	Width   float64
	Height  float64
	Center  orb.Point
	Zoom    float64
	MinZoom float64
	MaxZoom float64
	// ScaleFactor is the pixels-per-radian at zoom 1 relative to Width.
	ScaleFactor float64
}

func (o *Options) setDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Center == (orb.Point{}) {
		o.Center = DefaultCenter
	}
	if o.MinZoom <= 0 {
		o.MinZoom = DefaultMinZoom
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = DefaultMaxZoom
	}
	if o.MaxZoom < o.MinZoom {
		o.MinZoom, o.MaxZoom = o.MaxZoom, o.MinZoom
	}
	if o.Zoom <= 0 {
		o.Zoom = DefaultZoom
	}
	if o.ScaleFactor <= 0 {
		o.ScaleFactor = 0.9
	}
}

// Transform is an immutable copy of the view state.
type Transform struct {
	Center orb.Point `json:"center"`
	Zoom   float64   `json:"zoom"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
}

// Viewport is safe for concurrent use.
type Viewport struct {
	mu          sync.RWMutex
	ready       bool
	width       float64
	height      float64
	center      orb.Point
	zoom        float64
	minZoom     float64
	maxZoom     float64
	scaleFactor float64

	listenersMu sync.Mutex
	listeners   map[int]func(Transform)
	nextID      int
}

// New creates a viewport that is not yet ready. Call MarkReady once the map
// geometry has been registered.
func New(opts Options) *Viewport {
	opts.setDefaults()
	return &Viewport{
		width:       opts.Width,
		height:      opts.Height,
		center:      opts.Center,
		zoom:        geo.Clamp(opts.Zoom, opts.MinZoom, opts.MaxZoom),
		minZoom:     opts.MinZoom,
		maxZoom:     opts.MaxZoom,
		scaleFactor: opts.ScaleFactor,
		listeners:   make(map[int]func(Transform)),
	}
}

// MarkReady flags the surface as initialized.
func (v *Viewport) MarkReady() {
	v.mu.Lock()
	v.ready = true
	v.mu.Unlock()
}

// Ready reports whether conversions are available.
func (v *Viewport) Ready() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ready
}

// Limits returns the zoom bounds.
func (v *Viewport) Limits() (minZoom, maxZoom float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.minZoom, v.maxZoom
}

// Transform returns the committed view state.
func (v *Viewport) Transform() Transform {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.transformLocked()
}

func (v *Viewport) transformLocked() Transform {
	return Transform{Center: v.center, Zoom: v.zoom, Width: v.width, Height: v.height}
}

// CurrentZoom returns the committed zoom factor.
func (v *Viewport) CurrentZoom() (float64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.ready {
		return 0, ErrNotReady
	}
	return v.zoom, nil
}

// GeoToScreen projects a geographic point into viewport pixels.
func (v *Viewport) GeoToScreen(p orb.Point) (geo.Pixel, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.ready {
		return geo.Pixel{}, ErrNotReady
	}
	return v.project(p, v.center, v.zoom), nil
}

// ScreenToGeo inverts GeoToScreen for the current transform.
func (v *Viewport) ScreenToGeo(px geo.Pixel) (orb.Point, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.ready {
		return orb.Point{}, ErrNotReady
	}
	return v.invert(px, v.center, v.zoom), nil
}

// ProjectAt projects p as it would appear with the given centre and zoom,
// without touching the committed state. Used to derive focus views.
func (v *Viewport) ProjectAt(p, center orb.Point, zoom float64) geo.Pixel {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.project(p, center, zoom)
}

// pixelsPerMeter is the scale at the given zoom.
func (v *Viewport) pixelsPerMeter(zoom float64) float64 {
	return zoom * v.width * v.scaleFactor / orb.EarthRadius
}

func (v *Viewport) project(p, center orb.Point, zoom float64) geo.Pixel {
	m := project.WGS84.ToMercator(p)
	c := project.WGS84.ToMercator(center)
	k := v.pixelsPerMeter(zoom)
	return geo.Pixel{
		X: v.width/2 + k*(m[0]-c[0]),
		Y: v.height/2 - k*(m[1]-c[1]),
	}
}

func (v *Viewport) invert(px geo.Pixel, center orb.Point, zoom float64) orb.Point {
	c := project.WGS84.ToMercator(center)
	k := v.pixelsPerMeter(zoom)
	m := orb.Point{
		c[0] + (px.X-v.width/2)/k,
		c[1] - (px.Y-v.height/2)/k,
	}
	return project.Mercator.ToWGS84(m)
}

// SetZoom sets an absolute zoom, clamped to the limits, and returns the
// applied value.
func (v *Viewport) SetZoom(z float64) float64 {
	if math.IsNaN(z) {
		return v.Transform().Zoom
	}
	return v.update(func() {
		v.zoom = geo.Clamp(z, v.minZoom, v.maxZoom)
	}).Zoom
}

// ZoomBy changes the zoom by delta, clamped to the limits.
func (v *Viewport) ZoomBy(delta float64) float64 {
	if math.IsNaN(delta) {
		return v.Transform().Zoom
	}
	return v.update(func() {
		v.zoom = geo.Clamp(v.zoom+delta, v.minZoom, v.maxZoom)
	}).Zoom
}

// SetCenter moves the view centre.
func (v *Viewport) SetCenter(c orb.Point) {
	if !geo.Finite(c) {
		return
	}
	v.update(func() { v.center = c })
}

// SetView sets centre and zoom as one change.
func (v *Viewport) SetView(c orb.Point, zoom float64) Transform {
	return v.update(func() {
		if geo.Finite(c) {
			v.center = c
		}
		if !math.IsNaN(zoom) {
			v.zoom = geo.Clamp(zoom, v.minZoom, v.maxZoom)
		}
	})
}

// Pan shifts the view by a pixel offset.
func (v *Viewport) Pan(dx, dy float64) {
	v.update(func() {
		px := geo.Pixel{X: v.width/2 + dx, Y: v.height/2 + dy}
		c := v.invert(px, v.center, v.zoom)
		if geo.Finite(c) {
			v.center = c
		}
	})
}

// Resize changes the pixel size of the surface.
func (v *Viewport) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	v.update(func() {
		v.width = width
		v.height = height
	})
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (v *Viewport) Subscribe(fn func(Transform)) (unsubscribe func()) {
	v.listenersMu.Lock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	v.listenersMu.Unlock()

	return func() {
		v.listenersMu.Lock()
		delete(v.listeners, id)
		v.listenersMu.Unlock()
	}
}

// update applies fn under the write lock and notifies listeners when the
// transform actually changed.
func (v *Viewport) update(fn func()) Transform {
	v.mu.Lock()
	before := v.transformLocked()
	fn()
	after := v.transformLocked()
	v.mu.Unlock()

	if before != after {
		v.notify(after)
	}
	return after
}

func (v *Viewport) notify(t Transform) {
	v.listenersMu.Lock()
	fns := make([]func(Transform), 0, len(v.listeners))
	for id := 0; id < v.nextID; id++ {
		if fn, ok := v.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	v.listenersMu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}
