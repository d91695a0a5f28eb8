// Package controller decides when band markers are laid out and publishes
// the results.
//
// A [Controller] owns the map session: the loaded bands and provinces, the
// selected province, the active filter and the latest [Snapshot]. It
// listens to the viewport and re-runs the placers from package layout on:
//
//   - data load, after a settle delay,
//   - zoom and pan, debounced,
//   - selection changes, filter changes, resets and resizes, immediately.
//
// All triggers share one [Debouncer]: an immediate trigger cancels any
// pending debounced pass. Every pass takes a new generation number and a
// snapshot is only published when its generation is newer than the
// published one, so a slow stale pass can never overwrite a later one.
//
// Layout runs synchronously in the goroutine of the trigger (or of the
// debounce timer). The controller never holds its own lock while calling
// into the viewport, and the viewport notifies listeners after releasing its
// lock, so the two can call each other freely.
package controller

import (
	"context"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/converter"
	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/geo"
	"github.com/matzehuels/bandmap/pkg/layout"
	"github.com/matzehuels/bandmap/pkg/observability"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

// Default timings.
const (
	DefaultDebounce    = 150 * time.Millisecond
	DefaultSettleDelay = 300 * time.Millisecond
	DefaultZoomStep    = 0.8
)

// Focus zoom bounds before the viewport limits are applied.
const (
	focusFill    = 0.9
	focusMinZoom = 1.0
	focusMaxZoom = 15.0
	// fallbackFocusZoom frames a province whose bound is unknown.
	fallbackFocusZoom = 4.0
)

// Surface is the viewport as seen by the controller.
// [viewport.Viewport] implements it.
type Surface interface {
	converter.Surface
	Transform() viewport.Transform
	Limits() (minZoom, maxZoom float64)
	SetZoom(z float64) float64
	ZoomBy(delta float64) float64
	SetView(center orb.Point, zoom float64) viewport.Transform
	ProjectAt(p, center orb.Point, zoom float64) geo.Pixel
	Subscribe(fn func(viewport.Transform)) (unsubscribe func())
}

// Options configures a Controller.
type Options struct {
	Surface Surface
	Layout  layout.Config
	// Strategy is the configured placement strategy. Empty means auto.
	Strategy     layout.Strategy
	RadialRadius float64
	SpiralScale  float64

	Debounce    time.Duration
	SettleDelay time.Duration
	ZoomStep    float64

	// HomeCenter and HomeZoom are the reset view. Zero values take the
	// surface's transform at construction.
	HomeCenter orb.Point
	HomeZoom   float64

	Clock   Clock
	Logger  *log.Logger
	Context context.Context
}

// Controller is safe for concurrent use.
type Controller struct {
	surface  Surface
	opts     Options
	debounce *Debouncer
	logger   *log.Logger
	ctx      context.Context

	mu       sync.Mutex
	state    State
	bands    []band.Band
	atlas    *band.Atlas
	filter   band.Filter
	selected string
	width    float64
	height   float64

	generation atomic.Uint64
	snapshot   atomic.Pointer[Snapshot]
	// ownViews holds the views the controller is applying itself. A
	// notification matching one of them is consumed instead of being
	// treated as a gesture. Guarded by mu.
	ownViews []ownView

	listenersMu sync.Mutex
	listeners   map[int]func(*Snapshot)
	nextID      int

	unsubscribe func()
}

// New creates a controller in the Unloaded state and subscribes it to the
// surface's change notifications.
func New(opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	} else if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = DefaultZoomStep
	}
	if opts.Strategy == "" {
		opts.Strategy = layout.StrategyAuto
	}
	opts.Layout = opts.Layout.WithDefaults()
	t := opts.Surface.Transform()
	if opts.HomeCenter == (orb.Point{}) {
		opts.HomeCenter = t.Center
	}
	if opts.HomeZoom <= 0 {
		opts.HomeZoom = t.Zoom
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Controller{
		surface:   opts.Surface,
		opts:      opts,
		debounce:  NewDebouncer(opts.Clock),
		logger:    logger,
		ctx:       ctx,
		width:     t.Width,
		height:    t.Height,
		listeners: make(map[int]func(*Snapshot)),
	}
	c.unsubscribe = opts.Surface.Subscribe(c.onViewportChange)
	return c
}

// Close detaches the controller from the surface and drops any pending pass.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.debounce.Cancel()
}

// =============================================================================
// Inputs
// =============================================================================

// Load installs the band set and province atlas and moves an unloaded map
// to Idle. The first layout runs after the settle delay so that the surface
// can finish its first paint. Bands without coordinates are resolved first.
func (c *Controller) Load(bands []band.Band, atlas *band.Atlas) {
	if atlas == nil {
		atlas = band.BuiltinAtlas()
	}
	resolved := band.Resolve(bands, atlas, c.logger)

	c.mu.Lock()
	c.bands = resolved
	c.atlas = atlas
	if c.state == Unloaded {
		c.state = Idle
	}
	c.mu.Unlock()

	c.debounce.Schedule(c.opts.SettleDelay, func() { c.recompute(TriggerLoad) })
}

// SetFilter changes the visible band set and re-lays out immediately.
func (c *Controller) SetFilter(f band.Filter) {
	c.mu.Lock()
	if c.filter == f {
		c.mu.Unlock()
		return
	}
	c.filter = f
	loaded := c.state != Unloaded
	c.mu.Unlock()

	if loaded {
		c.debounce.Cancel()
		c.recompute(TriggerFilter)
	}
}

// Filter returns the active filter.
func (c *Controller) Filter() band.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// State returns the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selected returns the focused province, or "".
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Atlas returns the loaded province atlas.
func (c *Controller) Atlas() *band.Atlas {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atlas
}

// Band returns a loaded band by ID.
func (c *Controller) Band(id string) (band.Band, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.bands {
		if b.ID == id {
			return b, true
		}
	}
	return band.Band{}, false
}

// Snapshot returns the latest published layout, or nil before the first
// pass.
func (c *Controller) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// OnLayout registers fn to receive every published snapshot.
func (c *Controller) OnLayout(fn func(*Snapshot)) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// =============================================================================
// Selection
// =============================================================================

// Select focuses a province. Selecting the focused province again does
// nothing; selecting another one switches directly. An empty name
// deselects.
func (c *Controller) Select(province string) error {
	name := band.NormalizeProvince(province)
	if name == "" {
		c.Deselect()
		return nil
	}

	c.mu.Lock()
	if c.state == Unloaded {
		c.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidInput, "map is not loaded")
	}
	prov, known := c.atlas.Lookup(name)
	members := c.membersLocked(name)
	if !known && len(members) == 0 {
		c.mu.Unlock()
		return errors.New(errors.ErrCodeProvinceNotFound, "unknown province %q", province)
	}
	if c.selected == name {
		c.mu.Unlock()
		return nil
	}
	c.selected = name
	c.state = ProvinceFocused
	c.mu.Unlock()

	// Cancel before moving: a gesture that lands during the move keeps
	// its debounced pass.
	c.debounce.Cancel()
	if center, zoom, ok := FocusView(c.surface, prov, members); ok {
		c.applyView(center, zoom)
	}
	c.recompute(TriggerSelect)
	return nil
}

// Toggle selects province, or deselects it when it is already focused.
// This is the behaviour of a click on a province shape.
func (c *Controller) Toggle(province string) error {
	if name := band.NormalizeProvince(province); name != "" && name == c.Selected() {
		c.Deselect()
		return nil
	}
	return c.Select(province)
}

// ClickMarker focuses the province of the clicked band.
func (c *Controller) ClickMarker(bandID string) error {
	b, ok := c.Band(bandID)
	if !ok {
		return errors.New(errors.ErrCodeBandNotFound, "unknown band %q", bandID)
	}
	return c.Select(b.Province)
}

// Deselect returns to the national overview.
func (c *Controller) Deselect() {
	c.mu.Lock()
	if c.selected == "" {
		c.mu.Unlock()
		return
	}
	c.selected = ""
	c.state = Idle
	c.mu.Unlock()

	c.debounce.Cancel()
	c.applyView(c.opts.HomeCenter, c.opts.HomeZoom)
	c.recompute(TriggerDeselect)
}

// membersLocked returns the loaded bands of a normalized province.
func (c *Controller) membersLocked(name string) []band.Band {
	var out []band.Band
	for _, b := range c.bands {
		if band.NormalizeProvince(b.Province) == name {
			out = append(out, b)
		}
	}
	return out
}

// FocusView returns the centre and zoom that frame a province on s.
//
// With a usable bound the zoom fits the province into 90% of the viewport,
// clamped to [1, 15] and then to the surface limits. Without one the view
// centres on the province (or the mean of its bands) at a fixed zoom. ok is
// false when nothing about the province is known.
func FocusView(s Surface, prov band.Province, members []band.Band) (center orb.Point, zoom float64, ok bool) {
	minZoom, maxZoom := s.Limits()
	switch {
	case prov.Valid && prov.HasArea():
		t := s.Transform()
		nw := s.ProjectAt(orb.Point{prov.Bound.Min[0], prov.Bound.Max[1]}, prov.Center, 1)
		se := s.ProjectAt(orb.Point{prov.Bound.Max[0], prov.Bound.Min[1]}, prov.Center, 1)
		dx, dy := math.Abs(se.X-nw.X), math.Abs(se.Y-nw.Y)
		fit := math.Max(dx/t.Width, dy/t.Height)
		if fit <= 0 || math.IsNaN(fit) || math.IsInf(fit, 0) {
			return prov.Center, geo.Clamp(fallbackFocusZoom, minZoom, maxZoom), true
		}
		zoom = geo.Clamp(focusFill/fit, focusMinZoom, focusMaxZoom)
		return prov.Center, geo.Clamp(zoom, minZoom, maxZoom), true
	case prov.Valid:
		return prov.Center, geo.Clamp(fallbackFocusZoom, minZoom, maxZoom), true
	case len(members) > 0:
		var sum orb.Point
		for _, b := range members {
			p, _ := b.Coord()
			sum[0] += p[0]
			sum[1] += p[1]
		}
		n := float64(len(members))
		return orb.Point{sum[0] / n, sum[1] / n}, geo.Clamp(fallbackFocusZoom, minZoom, maxZoom), true
	}
	return orb.Point{}, 0, false
}

// =============================================================================
// Controls
// =============================================================================

// Controls is the imperative zoom handle for external UI such as zoom
// buttons and indicators.
type Controls struct {
	c *Controller
}

// Controls returns the imperative zoom handle.
func (c *Controller) Controls() *Controls {
	return &Controls{c: c}
}

// ZoomBy changes the zoom by delta, clamped to the surface limits, and
// returns the applied zoom. Layout follows after the debounce delay.
func (h *Controls) ZoomBy(delta float64) float64 {
	return h.c.surface.ZoomBy(delta)
}

// ZoomIn zooms in by one step.
func (h *Controls) ZoomIn() float64 { return h.ZoomBy(h.c.opts.ZoomStep) }

// ZoomOut zooms out by one step.
func (h *Controls) ZoomOut() float64 { return h.ZoomBy(-h.c.opts.ZoomStep) }

// SetZoom sets an absolute zoom, clamped to the surface limits.
func (h *Controls) SetZoom(z float64) float64 {
	return h.c.surface.SetZoom(z)
}

// Zoom returns the current zoom, or converter.DefaultZoom when the surface
// is not ready.
func (h *Controls) Zoom() float64 {
	return converter.New(h.c.surface).Zoom()
}

// ZoomPercent returns the zoom position within the surface limits, 0 to 100.
func (h *Controls) ZoomPercent() float64 {
	minZoom, maxZoom := h.c.surface.Limits()
	if maxZoom <= minZoom {
		return 0
	}
	return geo.Clamp((h.Zoom()-minZoom)/(maxZoom-minZoom), 0, 1) * 100
}

// ResetView clears the selection, restores the home view and re-lays out.
func (h *Controls) ResetView() {
	h.c.reset()
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.selected = ""
	loaded := c.state != Unloaded
	if loaded {
		c.state = Idle
	}
	c.mu.Unlock()

	c.debounce.Cancel()
	c.applyView(c.opts.HomeCenter, c.opts.HomeZoom)
	if loaded {
		c.recompute(TriggerReset)
	}
}

// ownView is the centre and zoom a controller SetView will produce.
type ownView struct {
	center orb.Point
	zoom   float64
}

// applyView moves the surface without treating the change as a gesture.
// Only the notification carrying this exact view is ignored; a gesture that
// lands meanwhile still schedules a pass.
func (c *Controller) applyView(center orb.Point, zoom float64) {
	cur := c.surface.Transform()
	want := ownView{center: cur.Center, zoom: cur.Zoom}
	if geo.Finite(center) {
		want.center = center
	}
	if !math.IsNaN(zoom) {
		lo, hi := c.surface.Limits()
		want.zoom = geo.Clamp(zoom, lo, hi)
	}

	c.mu.Lock()
	c.ownViews = append(c.ownViews, want)
	c.mu.Unlock()
	defer func() {
		// Unconsumed when the view did not change.
		c.mu.Lock()
		c.takeOwnViewLocked(want.center, want.zoom)
		c.mu.Unlock()
	}()

	c.surface.SetView(center, zoom)
}

// takeOwnViewLocked removes one pending own view equal to center and zoom
// and reports whether there was one.
func (c *Controller) takeOwnViewLocked(center orb.Point, zoom float64) bool {
	for i, v := range c.ownViews {
		if v.center == center && v.zoom == zoom {
			c.ownViews = append(c.ownViews[:i], c.ownViews[i+1:]...)
			return true
		}
	}
	return false
}

// =============================================================================
// Viewport notifications
// =============================================================================

func (c *Controller) onViewportChange(t viewport.Transform) {
	c.mu.Lock()
	resized := t.Width != c.width || t.Height != c.height
	c.width, c.height = t.Width, t.Height
	own := !resized && c.takeOwnViewLocked(t.Center, t.Zoom)
	loaded := c.state != Unloaded
	selected := c.selected
	var prov band.Province
	var known bool
	var members []band.Band
	if resized && selected != "" {
		prov, known = c.atlas.Lookup(selected)
		members = c.membersLocked(selected)
	}
	c.mu.Unlock()

	if !loaded || own {
		return
	}
	if resized {
		// Province pixel geometry depends on the surface size, so the
		// focused view is derived again before the layout pass.
		c.debounce.Cancel()
		if selected != "" {
			if !known {
				prov = band.Province{}
			}
			if center, zoom, ok := FocusView(c.surface, prov, members); ok {
				c.applyView(center, zoom)
			}
		}
		c.recompute(TriggerResize)
		return
	}
	c.debounce.Schedule(c.opts.Debounce, func() { c.recompute(TriggerZoom) })
}

// =============================================================================
// Layout pass
// =============================================================================

// Recompute runs a layout pass immediately and returns the published
// snapshot, or nil when the map is not loaded or a newer pass won.
func (c *Controller) Recompute() *Snapshot {
	c.debounce.Cancel()
	return c.recompute(TriggerManual)
}

type passInput struct {
	state    State
	selected string
	filter   band.Filter
	bands    []band.Band
	atlas    *band.Atlas
}

func (c *Controller) recompute(trigger Trigger) *Snapshot {
	c.mu.Lock()
	if c.state == Unloaded {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation.Add(1)
	in := passInput{
		state:    c.state,
		selected: c.selected,
		filter:   c.filter,
		bands:    c.bands,
		atlas:    c.atlas,
	}
	c.mu.Unlock()

	snap := c.compute(gen, trigger, in)
	if !c.publish(snap) {
		observability.Layout().OnLayoutSuperseded(c.ctx, string(trigger))
		return nil
	}
	return snap
}

func (c *Controller) compute(gen uint64, trigger Trigger, in passInput) *Snapshot {
	start := time.Now()

	visible := in.filter.Apply(in.bands)
	counts := band.CountByProvince(visible)
	if in.selected != "" {
		focused := make([]band.Band, 0, counts[in.selected])
		for _, b := range visible {
			if band.NormalizeProvince(b.Province) == in.selected {
				focused = append(focused, b)
			}
		}
		visible = focused
	}
	groups := band.GroupByProvince(visible)
	observability.Layout().OnLayoutStart(c.ctx, string(trigger), len(groups), len(visible))

	conv := converter.New(c.surface)
	zoom := conv.Zoom()
	cfg := c.opts.Layout
	cfg.Zoom = zoom
	markerRadius := cfg.MarkerSize() / 2

	snap := &Snapshot{
		Generation: gen,
		Trigger:    trigger,
		State:      in.state,
		Selected:   in.selected,
		Zoom:       zoom,
		View:       c.surface.Transform(),
		Anchors:    make(map[string]orb.Point, len(groups)),
		Styles:     make(map[string]ProvinceStyle, in.atlas.Len()),
		Counts:     counts,
		order:      make([]string, 0, len(visible)),
		results:    make(map[string]layout.Result, len(visible)),
		bands:      make(map[string]band.Band, len(visible)),
	}
	for _, p := range in.atlas.Provinces {
		snap.Styles[p.Name] = styleFor(p.Name, in.selected)
	}

	for _, g := range groups {
		prov, known := in.atlas.Lookup(g.Province)
		placer := layout.Select(layout.Selection{
			Strategy:     c.opts.Strategy,
			Converter:    conv,
			Province:     prov,
			Known:        known,
			Config:       cfg,
			RadialRadius: c.opts.RadialRadius,
			SpiralScale:  c.opts.SpiralScale,
		})
		if d, ok := degradation(g.Province, prov, known, conv, c.opts.Strategy, placer); ok {
			snap.Degraded = append(snap.Degraded, d)
			c.logger.Debug("layout degraded", "province", d.Province, "strategy", d.Strategy, "reason", d.Reason)
			observability.Layout().OnDegraded(c.ctx, d.Province, string(d.Strategy), string(d.Reason))
		}

		anchor := orb.Point{math.NaN(), math.NaN()}
		if known && prov.Valid {
			anchor = prov.Center
			snap.Anchors[g.Province] = anchor
		}
		for i, r := range placer.Place(anchor, g.Bands) {
			if r.Radius == 0 {
				r.Radius = markerRadius
			}
			b := g.Bands[i]
			snap.order = append(snap.order, b.ID)
			snap.results[b.ID] = r
			snap.bands[b.ID] = b
		}
	}

	observability.Layout().OnLayoutComplete(c.ctx, string(trigger), snap.Len(), time.Since(start), nil)
	return snap
}

// degradation reports why a group did not get the configured placer.
func degradation(name string, prov band.Province, known bool, conv *converter.Converter, want layout.Strategy, placer layout.Placer) (Degradation, bool) {
	got := layout.StrategyOf(placer)
	switch {
	case !known:
		return Degradation{Province: name, Strategy: got, Reason: errors.ErrCodeProvinceNotFound}, true
	case !prov.Valid:
		return Degradation{Province: name, Strategy: got, Reason: errors.ErrCodeInvalidGeometry}, true
	case conv == nil && (want == layout.StrategyAuto || want == layout.StrategyForce):
		return Degradation{Province: name, Strategy: got, Reason: errors.ErrCodeConverterUnavailable}, true
	}
	return Degradation{}, false
}

// publish stores snap unless a newer generation is already published, then
// notifies listeners.
func (c *Controller) publish(snap *Snapshot) bool {
	for {
		cur := c.snapshot.Load()
		if cur != nil && cur.Generation >= snap.Generation {
			return false
		}
		if c.snapshot.CompareAndSwap(cur, snap) {
			break
		}
	}

	c.listenersMu.Lock()
	fns := make([]func(*Snapshot), 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	return true
}
