package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/config"
	"github.com/matzehuels/bandmap/pkg/layout"
	"github.com/matzehuels/bandmap/pkg/pipeline"
	"github.com/matzehuels/bandmap/pkg/render"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []render.Format
		wantErr bool
	}{
		{"", []render.Format{render.FormatSVG}, false},
		{"svg", []render.Format{render.FormatSVG}, false},
		{"svg, PNG,json", []render.Format{render.FormatSVG, render.FormatPNG, render.FormatJSON}, false},
		{"svg,gif", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFormats(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFormats(%q) err = %v", tt.in, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, province, want string
	}{
		{"", "", "bandmap"},
		{"", "四川", "bandmap-四川"},
		{"out/map.svg", "", "out/map"},
		{"out/map.PNG", "", "out/map"},
		{"out/map.Pdf", "四川", "out/map"},
		{"map.v2", "", "map.v2"},
		{"map", "北京", "map"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.province); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.province, got, tt.want)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "map")
	artifacts := map[render.Format][]byte{
		render.FormatSVG:  []byte("<svg/>"),
		render.FormatJSON: []byte("{}"),
	}
	paths, err := writeArtifacts(base, []render.Format{render.FormatSVG, render.FormatJSON}, artifacts)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != base+".svg" || paths[1] != base+".json" {
		t.Fatalf("paths = %v", paths)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || string(data) != "<svg/>" {
		t.Errorf("svg file = %q, %v", data, err)
	}
}

func TestViewFlagsApply(t *testing.T) {
	opts := pipeline.Options{DataURL: "https://example.org/data/"}
	f := viewFlags{
		dataDir:  "local",
		strategy: "Spiral",
		width:    640,
		center:   []float64{104, 30},
		province: "四川",
		genre:    "post-punk",
	}
	if err := f.apply(&opts); err != nil {
		t.Fatal(err)
	}
	if opts.DataDir != "local" || opts.DataURL != "" {
		t.Errorf("data source = %q, %q", opts.DataDir, opts.DataURL)
	}
	if opts.Strategy != layout.StrategySpiral {
		t.Errorf("Strategy = %v", opts.Strategy)
	}
	if opts.Viewport.Width != 640 || opts.Viewport.Height != 0 {
		t.Errorf("size = %v x %v", opts.Viewport.Width, opts.Viewport.Height)
	}
	if opts.Viewport.Center != (orb.Point{104, 30}) {
		t.Errorf("Center = %v", opts.Viewport.Center)
	}
	if opts.Province != "四川" || opts.Filter.Genre != "post-punk" {
		t.Errorf("province/filter = %q, %+v", opts.Province, opts.Filter)
	}

	for _, bad := range []viewFlags{{strategy: "grid"}, {center: []float64{1}}} {
		if err := bad.apply(&pipeline.Options{}); err == nil {
			t.Errorf("apply(%+v) = nil, want error", bad)
		}
	}
}

func TestProvinceTable(t *testing.T) {
	data := &pipeline.Data{
		Dataset: &band.Dataset{Bands: []band.Band{
			{ID: "a", Province: "四川省", Genre: "indie"},
			{ID: "b", Province: "四川", Genre: "post-punk"},
		}},
		Atlas: band.BuiltinAtlas(),
	}
	count := func(rows [][]string, name string) string {
		for _, r := range rows {
			if r[0] == name {
				return r[1]
			}
		}
		return ""
	}

	rows := provinceRows(data, band.Filter{})
	if len(rows) != data.Atlas.Len() {
		t.Fatalf("rows = %d, want one per province (%d)", len(rows), data.Atlas.Len())
	}
	if got := count(rows, "四川"); got != "2" {
		t.Errorf("四川 count = %q, want 2", got)
	}
	if got := count(rows, "北京"); got != "0" {
		t.Errorf("北京 count = %q, want 0", got)
	}
	if got := count(provinceRows(data, band.Filter{Genre: "indie"}), "四川"); got != "1" {
		t.Errorf("filtered 四川 count = %q, want 1", got)
	}

	out := provinceTable(rows)
	if !strings.Contains(out, "四川") || !strings.Contains(out, "Crowding") {
		t.Errorf("table missing rows or headers:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetOut(&bytes.Buffer{})

	root.SetArgs([]string{"--config", path, "config", "init"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}

	root.SetArgs([]string{"--config", path, "config", "init"})
	if err := root.Execute(); err == nil {
		t.Error("init over an existing file without --force should fail")
	}
}

func TestCacheCommands(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	c := New(&bytes.Buffer{}, LogInfo)
	var out bytes.Buffer
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "path"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	dir := strings.TrimSpace(out.String())
	if dir != filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName) {
		t.Fatalf("cache path = %q", dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "entry.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	root.SetArgs([]string{"cache", "clear"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "entry.json")); !os.IsNotExist(err) {
		t.Errorf("cache entry survived clear: %v", err)
	}
}

func TestCompletion(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"completion", "bash"}, []string{"bandmap"}},
		{[]string{"completion", "fish"}, []string{"complete -c bandmap"}},
		{[]string{"__complete", "render", "--strategy", ""}, []string{"force\n", "spiral\n", "raw\n"}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args[:2], " "), func(t *testing.T) {
			var out bytes.Buffer
			root := New(&bytes.Buffer{}, LogInfo).RootCommand()
			root.SetOut(&out)
			root.SetArgs(tt.args)
			if err := root.Execute(); err != nil {
				t.Fatal(err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output lacks %q", w)
				}
			}
		})
	}
}
