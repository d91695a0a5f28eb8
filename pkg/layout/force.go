package layout

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/converter"
	"github.com/matzehuels/bandmap/pkg/geo"
)

// Simulation constants, matching the usual d3-force cooling schedule.
const (
	alphaMin          = 0.001
	velocityDecay     = 0.4
	axisStrengthRatio = 0.3
	collideStrength   = 1.0
	collideIterations = 4
	relaxSweeps       = 100
	relaxTolerance    = 0.01
	boundStrength     = 0.5
)

var (
	// alphaDecay brings alpha from 1 to alphaMin in 300 ticks.
	alphaDecay = 1 - math.Pow(alphaMin, 1.0/300)
	// goldenAngle is π(3−√5) radians, about 137.5°.
	goldenAngle = math.Pi * (3 - math.Sqrt(5))
)

// Force places a group with the collision-resolving simulation.
type Force struct {
	Converter *converter.Converter
	Config    Config
	// Bound is the province's geographic bound. When it has area and can
	// hold the group, markers are kept inside its projection.
	Bound orb.Bound
}

// Place implements Placer.
//
// A single band is placed exactly at the anchor. If the anchor cannot be
// projected, or a resolved pixel cannot be converted back, the affected
// bands keep their raw coordinates.
func (f Force) Place(anchor orb.Point, bands []band.Band) []Result {
	if len(bands) == 0 {
		return nil
	}
	cfg := f.Config.WithDefaults()
	if cfg.Zoom <= 0 {
		cfg.Zoom = f.Converter.Zoom()
	}
	radius := cfg.MarkerSize() / 2

	if len(bands) == 1 {
		return []Result{{
			BandID:   bands[0].ID,
			Position: anchor,
			Anchor:   anchor,
			Strategy: StrategyForce,
			Radius:   radius,
		}}
	}

	if f.Converter == nil {
		return Raw{}.Place(anchor, bands)
	}
	center := f.Converter.GeoToPixel(anchor)
	if !center.Finite() {
		return Raw{}.Place(anchor, bands)
	}

	var pixels []geo.Pixel
	if box, ok := f.pixelBound(); ok {
		pixels = SimulateWithin(center, len(bands), cfg, box)
	} else {
		pixels = Simulate(center, len(bands), cfg)
	}
	out := make([]Result, len(bands))
	for i, b := range bands {
		pos := f.Converter.PixelToGeo(pixels[i])
		if !geo.Finite(pos) {
			out[i] = rawResult(anchor, b)
			continue
		}
		out[i] = Result{
			BandID:   b.ID,
			Position: pos,
			Anchor:   anchor,
			Strategy: StrategyForce,
			Radius:   radius,
		}
	}
	return out
}

// pixelBound projects Bound to screen space. The corners are reordered
// since screen y grows downward.
func (f Force) pixelBound() (PixelBound, bool) {
	b := f.Bound
	if b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] || !geo.FiniteBound(b) {
		return PixelBound{}, false
	}
	nw := f.Converter.GeoToPixel(orb.Point{b.Min[0], b.Max[1]})
	se := f.Converter.GeoToPixel(orb.Point{b.Max[0], b.Min[1]})
	if !nw.Finite() || !se.Finite() {
		return PixelBound{}, false
	}
	return PixelBound{
		Min: geo.Pixel{X: math.Min(nw.X, se.X), Y: math.Min(nw.Y, se.Y)},
		Max: geo.Pixel{X: math.Max(nw.X, se.X), Y: math.Max(nw.Y, se.Y)},
	}, true
}

// PixelBound is an axis-aligned screen rectangle.
type PixelBound struct {
	Min, Max geo.Pixel
}

// inset shrinks b by pad on every side. An axis narrower than 2·pad
// collapses to its midline.
func (b PixelBound) inset(pad float64) PixelBound {
	out := b
	if b.Max.X-b.Min.X >= 2*pad {
		out.Min.X, out.Max.X = b.Min.X+pad, b.Max.X-pad
	} else {
		mid := (b.Min.X + b.Max.X) / 2
		out.Min.X, out.Max.X = mid, mid
	}
	if b.Max.Y-b.Min.Y >= 2*pad {
		out.Min.Y, out.Max.Y = b.Min.Y+pad, b.Max.Y-pad
	} else {
		mid := (b.Min.Y + b.Max.Y) / 2
		out.Min.Y, out.Max.Y = mid, mid
	}
	return out
}

// fits reports whether n markers spaced minDist apart fit inside b with
// room to spare: a square grid of that spacing must hold 2n.
func (b PixelBound) fits(n int, minDist float64) bool {
	cols := math.Floor((b.Max.X-b.Min.X)/minDist) + 1
	rows := math.Floor((b.Max.Y-b.Min.Y)/minDist) + 1
	return cols*rows >= 2*float64(n)
}

// Contains reports whether p lies inside b, edges included.
func (b PixelBound) Contains(p geo.Pixel) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b PixelBound) clamp(x, y float64) (float64, float64) {
	return geo.Clamp(x, b.Min.X, b.Max.X), geo.Clamp(y, b.Min.Y, b.Max.Y)
}

// node is one simulated marker.
type node struct {
	x, y   float64
	vx, vy float64
}

// Simulate runs the force simulation for n markers around center and
// returns their pixel positions in input order. With n == 1 the marker sits
// exactly on center.
func Simulate(center geo.Pixel, n int, cfg Config) []geo.Pixel {
	return simulate(center, n, cfg, nil)
}

// SimulateWithin is Simulate with markers held inside bound: an axis force
// of strength 0.5 pulls each marker toward the nearest point of the bound
// inset by one marker radius, and the final relaxation clamps to it.
//
// If the inset bound cannot hold n markers without overlap the bound is
// ignored, since separation takes priority.
func SimulateWithin(center geo.Pixel, n int, cfg Config, bound PixelBound) []geo.Pixel {
	cfg = cfg.WithDefaults()
	radius := cfg.CollideRadius()
	inner := bound.inset(radius)
	if !inner.fits(n, 2*radius) {
		return simulate(center, n, cfg, nil)
	}
	return simulate(center, n, cfg, &inner)
}

func simulate(center geo.Pixel, n int, cfg Config, bound *PixelBound) []geo.Pixel {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []geo.Pixel{center}
	}
	cfg = cfg.WithDefaults()

	nodes := seed(center, n)
	strength := cfg.CenterStrength()
	radius := cfg.CollideRadius()

	alpha := 1.0
	for tick := 0; tick < cfg.Iterations; tick++ {
		alpha += -alpha * alphaDecay
		applyCentering(nodes, center, strength, alpha)
		if bound != nil {
			applyBound(nodes, *bound, alpha)
		}
		applyCollision(nodes, radius)
		for i := range nodes {
			nodes[i].vx *= 1 - velocityDecay
			nodes[i].vy *= 1 - velocityDecay
			nodes[i].x += nodes[i].vx
			nodes[i].y += nodes[i].vy
		}
	}
	relax(nodes, 2*radius, bound)

	out := make([]geo.Pixel, n)
	for i, nd := range nodes {
		out[i] = geo.Pixel{X: nd.x, Y: nd.y}
	}
	return out
}

// seed places node i at angle i·goldenAngle and radius √(i+0.5) px.
func seed(center geo.Pixel, n int) []node {
	nodes := make([]node, n)
	for i := range nodes {
		r := math.Sqrt(float64(i) + 0.5)
		a := float64(i) * goldenAngle
		nodes[i] = node{x: center.X + r*math.Cos(a), y: center.Y + r*math.Sin(a)}
	}
	return nodes
}

// applyCentering pulls nodes toward center with a radial force of the given
// strength and two axis forces at 0.3 of it.
func applyCentering(nodes []node, center geo.Pixel, strength, alpha float64) {
	axis := strength * axisStrengthRatio
	// A radial force toward a circle of radius 0 reduces to -strength·alpha
	// times the offset.
	k := -strength * alpha
	for i := range nodes {
		nd := &nodes[i]
		nd.vx += (nd.x - center.X) * k
		nd.vy += (nd.y - center.Y) * k
		nd.vx += (center.X - nd.x) * axis * alpha
		nd.vy += (center.Y - nd.y) * axis * alpha
	}
}

// applyBound pulls each node toward its position clamped into bound. Nodes
// already inside feel nothing.
func applyBound(nodes []node, bound PixelBound, alpha float64) {
	k := boundStrength * alpha
	for i := range nodes {
		nd := &nodes[i]
		tx, ty := bound.clamp(nd.x, nd.y)
		nd.vx += (tx - nd.x) * k
		nd.vy += (ty - nd.y) * k
	}
}

// applyCollision resolves overlaps between predicted positions. All nodes
// share one radius, so each overlapping pair moves apart symmetrically.
func applyCollision(nodes []node, radius float64) {
	minDist := 2 * radius
	for iter := 0; iter < collideIterations; iter++ {
		for i := range nodes {
			a := &nodes[i]
			xi, yi := a.x+a.vx, a.y+a.vy
			for j := i + 1; j < len(nodes); j++ {
				b := &nodes[j]
				x := xi - (b.x + b.vx)
				y := yi - (b.y + b.vy)
				l := x*x + y*y
				if l >= minDist*minDist {
					continue
				}
				if l == 0 {
					x, y = jiggle(i, j)
					l = x*x + y*y
				}
				l = math.Sqrt(l)
				l = (minDist - l) / l * collideStrength
				x *= l
				y *= l
				a.vx += x * 0.5
				a.vy += y * 0.5
				b.vx -= x * 0.5
				b.vy -= y * 0.5
			}
		}
	}
}

// relax moves nodes apart until no pair is closer than minDist, within
// relaxTolerance, or the sweep budget runs out. With a bound, nodes are
// clamped into it after every sweep and once more on return.
func relax(nodes []node, minDist float64, bound *PixelBound) {
	if bound != nil {
		defer clampAll(nodes, *bound)
	}
	for sweep := 0; sweep < relaxSweeps; sweep++ {
		worst := 0.0
		for i := range nodes {
			for j := i + 1; j < len(nodes); j++ {
				a, b := &nodes[i], &nodes[j]
				dx, dy := a.x-b.x, a.y-b.y
				d := math.Hypot(dx, dy)
				overlap := minDist - d
				if overlap <= 0 {
					continue
				}
				worst = math.Max(worst, overlap)
				if d == 0 {
					dx, dy = jiggle(i, j)
					d = math.Hypot(dx, dy)
				}
				push := overlap / 2 / d
				a.x += dx * push
				a.y += dy * push
				b.x -= dx * push
				b.y -= dy * push
			}
		}
		if bound != nil {
			clampAll(nodes, *bound)
		}
		if worst < relaxTolerance {
			return
		}
	}
}

func clampAll(nodes []node, bound PixelBound) {
	for i := range nodes {
		nodes[i].x, nodes[i].y = bound.clamp(nodes[i].x, nodes[i].y)
	}
}

// jiggle is a tiny index-derived direction separating coincident nodes.
func jiggle(i, j int) (float64, float64) {
	a := float64(i*31+j) * goldenAngle
	return 1e-6 * math.Cos(a), 1e-6 * math.Sin(a)
}
