package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/layout"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.Controller.Debounce.Duration != 150*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Controller.Debounce)
	}
	if cfg.Viewport.MinZoom != 0.8 || cfg.Viewport.MaxZoom != 12 {
		t.Errorf("zoom limits = [%v, %v]", cfg.Viewport.MinZoom, cfg.Viewport.MaxZoom)
	}
}

func TestLoadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[layout]
strategy = "spiral"
iterations = 200
min_gap = 4.0
spiral_scale = 0.25

[viewport]
width = 640
height = 480
center = [110.0, 32.0]

[controller]
debounce = "200ms"
settle_delay = "1s"

[cache]
backend = "none"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Strategy() != layout.StrategySpiral {
		t.Errorf("Strategy() = %v", cfg.Strategy())
	}
	if cfg.Layout.Iterations != 200 || cfg.Layout.MinGap != 4 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.BaseMarkerSize != layout.DefaultBaseMarkerSize {
		t.Errorf("unset key lost its default: %v", cfg.Layout.BaseMarkerSize)
	}
	if cfg.Controller.Debounce.Duration != 200*time.Millisecond || cfg.Controller.SettleDelay.Duration != time.Second {
		t.Errorf("controller = %+v", cfg.Controller)
	}

	vo := cfg.ViewportOptions()
	if vo.Width != 640 || vo.Center[0] != 110 || vo.Zoom != viewport.DefaultZoom {
		t.Errorf("ViewportOptions() = %+v", vo)
	}
	co := cfg.ControllerOptions()
	if co.Strategy != layout.StrategySpiral || co.SpiralScale != 0.25 || co.Debounce != 200*time.Millisecond {
		t.Errorf("ControllerOptions() = %+v", co)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := Load(""); err != nil {
		t.Errorf("missing default file should not fail: %v", err)
	}
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("missing explicit file err = %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("BANDMAP_LAYOUT_STRATEGY", "radial")
	t.Setenv("BANDMAP_VIEWPORT_WIDTH", "1280")
	t.Setenv("BANDMAP_CONTROLLER_DEBOUNCE", "50ms")
	t.Setenv("BANDMAP_SERVER_ADDR", "127.0.0.1:9000")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Strategy() != layout.StrategyRadial {
		t.Errorf("Strategy() = %v", cfg.Strategy())
	}
	if cfg.Viewport.Width != 1280 {
		t.Errorf("Width = %v", cfg.Viewport.Width)
	}
	if cfg.Controller.Debounce.Duration != 50*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Controller.Debounce)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %v", cfg.Server.Addr)
	}
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BANDMAP_DATA_URL=https://example.org/data/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv sets process variables; make sure the test restores them.
	t.Setenv("BANDMAP_DATA_URL", "")
	os.Unsetenv("BANDMAP_DATA_URL")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data.URL != "https://example.org/data/" {
		t.Errorf("Data.URL = %q", cfg.Data.URL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad strategy", func(c *Config) { c.Layout.Strategy = "grid" }},
		{"zero width", func(c *Config) { c.Viewport.Width = 0 }},
		{"inverted zoom", func(c *Config) { c.Viewport.MinZoom, c.Viewport.MaxZoom = 5, 2 }},
		{"redis without url", func(c *Config) { c.Cache.Backend = BackendRedis }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"negative debounce", func(c *Config) { c.Controller.Debounce.Duration = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestEnvParseError(t *testing.T) {
	cfg := Default()
	lookup := func(name string) (string, bool) {
		if name == EnvPrefix+"LAYOUT_ITERATIONS" {
			return "many", true
		}
		return "", false
	}
	err := cfg.applyEnv(lookup)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want %v", err, errors.ErrCodeInvalidConfig)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Layout.Strategy = "raw"
	cfg.Controller.SettleDelay.Duration = 2 * time.Second

	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Strategy() != layout.StrategyRaw || got.Controller.SettleDelay.Duration != 2*time.Second {
		t.Errorf("round trip lost values: %+v", got)
	}
}
