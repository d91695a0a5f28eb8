package svg

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/controller"
	"github.com/matzehuels/bandmap/pkg/geo"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

const testGeometry = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "四川省", "cp": [104.06, 30.67]},
     "geometry": {"type": "Polygon", "coordinates": [[[100,28],[106,28],[106,33],[100,33],[100,28]]]}},
    {"type": "Feature", "properties": {"name": "北京市", "cp": [116.4, 39.9]},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[115.5,39.5],[117.5,39.5],[117.5,41],[115.5,41],[115.5,39.5]]]]}},
    {"type": "Feature", "properties": {"name": "海里"},
     "geometry": {"type": "Point", "coordinates": [120, 20]}}
  ]
}`

func setup(t *testing.T) (*viewport.Viewport, *controller.Controller, *band.Geometry) {
	t.Helper()
	geom, err := band.ParseGeometry([]byte(testGeometry), nil)
	if err != nil {
		t.Fatal(err)
	}
	v := viewport.New(viewport.Options{Width: 800, Height: 600})
	v.MarkReady()
	c := controller.New(controller.Options{Surface: v})
	t.Cleanup(c.Close)
	c.Load([]band.Band{
		{ID: "a", Name: "声音玩具", Genre: "indie", Province: "四川", City: "成都"},
		{ID: "b", Name: "海朋森", Genre: "post-punk", Province: "四川", City: "成都"},
		{ID: "c", Name: "Tom & Jerry <live>", Genre: "indie", Province: "北京", City: "北京", FoundedYear: 2009},
	}, geom.Atlas)
	c.Recompute()
	return v, c, geom
}

func TestRenderDocument(t *testing.T) {
	v, c, geom := setup(t)
	out := string(Render(c.Snapshot(), v, WithOutlines(geom.Collection), WithTitle("bands")))

	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.0 600.0"`,
		`<title>bands</title>`,
		`data-province="四川"`,
		`data-province="北京"`,
		`data-band="a"`,
		`data-band="b"`,
		`data-band="c"`,
		`Tom &amp; Jerry &lt;live&gt;`,
		`2009`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, `data-province="海里"`) {
		t.Error("point feature should not be drawn as a province")
	}
	if !strings.HasSuffix(out, "</svg>\n") {
		t.Error("document not closed")
	}
	if strings.Count(out, "<circle") != 3 {
		t.Errorf("circles = %d, want 3", strings.Count(out, "<circle"))
	}
}

func TestRenderSelection(t *testing.T) {
	v, c, geom := setup(t)
	if err := c.Select("四川"); err != nil {
		t.Fatal(err)
	}
	out := string(Render(c.Snapshot(), v, WithOutlines(geom.Collection)))

	if !strings.Contains(out, `class="province interactive selected" data-province="四川" opacity="1.00"`) {
		t.Error("selected province not highlighted")
	}
	if !strings.Contains(out, `class="province" data-province="北京" opacity="0.30"`) {
		t.Error("other province not dimmed")
	}
	if strings.Contains(out, `data-band="c"`) {
		t.Error("bands outside the focused province should not be drawn")
	}
}

func TestRenderOptionalLayers(t *testing.T) {
	v, c, _ := setup(t)
	snap := c.Snapshot()

	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"connectors", []Option{WithConnectors()}, `<g id="connectors">`},
		{"labels", []Option{WithLabels()}, `class="marker-label"`},
		{"counts", []Option{WithCounts()}, `class="count"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if plain := string(Render(snap, v)); strings.Contains(plain, tt.want) {
				t.Errorf("%q present without option", tt.want)
			}
			if out := string(Render(snap, v, tt.opts...)); !strings.Contains(out, tt.want) {
				t.Errorf("%q missing with option", tt.want)
			}
		})
	}
}

func TestRenderEmptySnapshot(t *testing.T) {
	v := viewport.New(viewport.Options{})
	out := string(Render(&controller.Snapshot{View: v.Transform()}, v))
	if !strings.Contains(out, `<g id="markers">`) || strings.Contains(out, "<circle") {
		t.Errorf("unexpected output for empty snapshot:\n%s", out)
	}
}

func TestPathData(t *testing.T) {
	v := viewport.New(viewport.Options{Width: 100, Height: 100, Center: orb.Point{0, 0}, Zoom: 1})
	proj := func(p orb.Point) geo.Pixel { return v.ProjectAt(p, orb.Point{0, 0}, 1) }
	d := pathData(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, proj)
	if !strings.HasPrefix(d, "M") || !strings.HasSuffix(d, "Z") || strings.Count(d, "L") != 3 {
		t.Errorf("pathData = %q", d)
	}
	if got := pathData(orb.LineString{{0, 0}, {1, 1}}, proj); got != "" {
		t.Errorf("line string path = %q, want empty", got)
	}
}

func TestGenreColorStable(t *testing.T) {
	if genreColor("indie") != genreColor("indie") {
		t.Error("colour not stable")
	}
	if !strings.HasPrefix(genreColor(""), "#") {
		t.Error("empty genre has no colour")
	}
}
