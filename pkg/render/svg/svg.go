// Package svg draws a laid-out band map as a standalone SVG document.
//
// The renderer only consumes positions: it never moves a marker. Province
// outlines come from the boundary GeoJSON, markers and connector lines from
// a [controller.Snapshot], and everything is projected with the same
// viewport the layout pass used.
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/controller"
	"github.com/matzehuels/bandmap/pkg/geo"
)

// Projector maps geographic points to pixels for a given view.
// [viewport.Viewport] implements it.
type Projector interface {
	ProjectAt(p, center orb.Point, zoom float64) geo.Pixel
}

const mapCSS = `
    .province { fill: #eef1f5; stroke: #9aa5b1; stroke-width: 0.8; }
    .province.interactive:hover { fill: #dde6f0; }
    .province.selected { fill: #dbe8f7; stroke: #3e6fb0; stroke-width: 1.5; }
    .connector { stroke: #7b8794; stroke-width: 0.8; stroke-dasharray: 2 2; }
    .marker { stroke: #ffffff; stroke-width: 2; }
    .marker-label { font: 11px sans-serif; fill: #1f2933; text-anchor: middle; }
    .count { font: bold 12px sans-serif; fill: #52606d; text-anchor: middle; }
    .degraded { stroke: #e12d39; stroke-dasharray: 3 2; }`

// palette colours markers by genre.
var palette = []string{
	"#e4572e", "#17bebb", "#ffc914", "#2e282a", "#76b041",
	"#6a4c93", "#1982c4", "#ff595e", "#8ac926", "#c05299",
}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	outlines   *geojson.FeatureCollection
	connectors bool
	labels     bool
	counts     bool
	title      string
}

// WithOutlines draws the given province boundaries under the markers.
func WithOutlines(fc *geojson.FeatureCollection) Option {
	return func(r *renderer) { r.outlines = fc }
}

// WithConnectors draws a line from each province anchor to every marker
// that was moved away from it.
func WithConnectors() Option { return func(r *renderer) { r.connectors = true } }

// WithLabels writes band names under the markers.
func WithLabels() Option { return func(r *renderer) { r.labels = true } }

// WithCounts writes the band count at each province anchor.
func WithCounts() Option { return func(r *renderer) { r.counts = true } }

// WithTitle sets the document title.
func WithTitle(title string) Option { return func(r *renderer) { r.title = title } }

// Render draws snap as SVG.
func Render(snap *controller.Snapshot, proj Projector, opts ...Option) []byte {
	r := renderer{}
	for _, opt := range opts {
		opt(&r)
	}

	view := snap.View
	project := func(p orb.Point) geo.Pixel {
		return proj.ProjectAt(p, view.Center, view.Zoom)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		view.Width, view.Height, view.Width, view.Height)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escape(r.title))
	}
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", mapCSS)

	if r.outlines != nil {
		renderOutlines(&buf, r.outlines, snap, project)
	}
	if r.connectors {
		renderConnectors(&buf, snap, project)
	}
	renderMarkers(&buf, snap, project, r.labels)
	if r.counts {
		renderCounts(&buf, snap, project)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// =============================================================================
// Provinces
// =============================================================================

func renderOutlines(buf *bytes.Buffer, fc *geojson.FeatureCollection, snap *controller.Snapshot, project func(orb.Point) geo.Pixel) {
	buf.WriteString(`  <g id="provinces">` + "\n")
	for _, f := range fc.Features {
		name := band.FeatureName(f)
		if name == "" || f.Geometry == nil {
			continue
		}
		d := pathData(f.Geometry, project)
		if d == "" {
			continue
		}
		style, ok := snap.Styles[name]
		if !ok {
			style = controller.ProvinceStyle{Emphasis: 1, Interactive: true}
		}
		class := "province"
		if style.Interactive {
			class += " interactive"
		}
		if name == snap.Selected {
			class += " selected"
		}
		fmt.Fprintf(buf, `    <path class="%s" data-province="%s" opacity="%.2f" d="%s"/>`+"\n",
			class, escape(name), style.Emphasis, d)
	}
	buf.WriteString("  </g>\n")
}

func pathData(g orb.Geometry, project func(orb.Point) geo.Pixel) string {
	var sb strings.Builder
	var polygons []orb.Polygon
	switch g := g.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{g}
	case orb.MultiPolygon:
		polygons = g
	default:
		return ""
	}
	for _, poly := range polygons {
		for _, ring := range poly {
			writeRing(&sb, ring, project)
		}
	}
	return sb.String()
}

func writeRing(sb *strings.Builder, ring orb.Ring, project func(orb.Point) geo.Pixel) {
	started := false
	for _, p := range ring {
		px := project(p)
		if !px.Finite() {
			continue
		}
		cmd := "L"
		if !started {
			cmd = "M"
			started = true
		}
		fmt.Fprintf(sb, "%s%.1f,%.1f", cmd, px.X, px.Y)
	}
	if started {
		sb.WriteString("Z")
	}
}

// =============================================================================
// Markers
// =============================================================================

func renderConnectors(buf *bytes.Buffer, snap *controller.Snapshot, project func(orb.Point) geo.Pixel) {
	buf.WriteString(`  <g id="connectors">` + "\n")
	for _, res := range snap.All() {
		if !geo.Finite(res.Anchor) {
			continue
		}
		a, m := project(res.Anchor), project(res.Position)
		if !a.Finite() || !m.Finite() || a.Dist(m) <= res.Radius {
			continue
		}
		fmt.Fprintf(buf, `    <line class="connector" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", a.X, a.Y, m.X, m.Y)
	}
	buf.WriteString("  </g>\n")
}

func renderMarkers(buf *bytes.Buffer, snap *controller.Snapshot, project func(orb.Point) geo.Pixel, labels bool) {
	degraded := make(map[string]bool, len(snap.Degraded))
	for _, d := range snap.Degraded {
		degraded[d.Province] = true
	}

	buf.WriteString(`  <g id="markers">` + "\n")
	for m := range snap.Markers() {
		px := project(m.Result.Position)
		if !px.Finite() {
			continue
		}
		radius := m.Result.Radius
		if radius <= 0 {
			radius = 16
		}
		class := "marker"
		if degraded[band.NormalizeProvince(m.Band.Province)] {
			class += " degraded"
		}
		fmt.Fprintf(buf, `    <g data-band="%s" data-strategy="%s">`+"\n", escape(m.Band.ID), m.Result.Strategy)
		fmt.Fprintf(buf, `      <circle class="%s" cx="%.1f" cy="%.1f" r="%.1f" fill="%s">`, class, px.X, px.Y, radius, genreColor(m.Band.Genre))
		fmt.Fprintf(buf, "<title>%s</title></circle>\n", escape(tooltip(m.Band)))
		if labels {
			fmt.Fprintf(buf, `      <text class="marker-label" x="%.1f" y="%.1f">%s</text>`+"\n",
				px.X, px.Y+radius+12, escape(m.Band.Name))
		}
		buf.WriteString("    </g>\n")
	}
	buf.WriteString("  </g>\n")
}

func renderCounts(buf *bytes.Buffer, snap *controller.Snapshot, project func(orb.Point) geo.Pixel) {
	names := make([]string, 0, len(snap.Anchors))
	for name := range snap.Anchors {
		names = append(names, name)
	}
	sort.Strings(names)

	buf.WriteString(`  <g id="counts">` + "\n")
	for _, name := range names {
		n := snap.Counts[name]
		px := project(snap.Anchors[name])
		if n == 0 || !px.Finite() {
			continue
		}
		fmt.Fprintf(buf, `    <text class="count" x="%.1f" y="%.1f">%d</text>`+"\n", px.X, px.Y-4, n)
	}
	buf.WriteString("  </g>\n")
}

func tooltip(b band.Band) string {
	parts := []string{b.Name}
	if loc := strings.TrimSpace(band.NormalizeProvince(b.Province) + " " + b.City); loc != "" {
		parts = append(parts, loc)
	}
	if b.Genre != "" {
		parts = append(parts, b.Genre)
	}
	if b.FoundedYear > 0 {
		parts = append(parts, fmt.Sprintf("%d", b.FoundedYear))
	}
	return strings.Join(parts, " · ")
}

func genreColor(genre string) string {
	h := fnv.New32a()
	h.Write([]byte(genre))
	return palette[int(h.Sum32()%uint32(len(palette)))]
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
