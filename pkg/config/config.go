// Package config loads bandmap settings.
//
// Values are layered, later sources winning:
//
//  1. built-in defaults ([Default])
//  2. the TOML file ($XDG_CONFIG_HOME/bandmap/config.toml or an explicit path)
//  3. a .env file in the working directory
//  4. BANDMAP_* environment variables
//
// CLI flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/controller"
	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/layout"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BANDMAP_"

// Config is the full bandmap configuration.
type Config struct {
	Layout     LayoutConfig     `toml:"layout"`
	Viewport   ViewportConfig   `toml:"viewport"`
	Controller ControllerConfig `toml:"controller"`
	Data       DataConfig       `toml:"data"`
	Cache      CacheConfig      `toml:"cache"`
	Server     ServerConfig     `toml:"server"`
}

// LayoutConfig holds the placer settings.
type LayoutConfig struct {
	layout.Config
	Strategy     string  `toml:"strategy"`
	RadialRadius float64 `toml:"radial_radius"`
	SpiralScale  float64 `toml:"spiral_scale"`
}

// ViewportConfig holds the initial map view.
type ViewportConfig struct {
	Width   float64    `toml:"width"`
	Height  float64    `toml:"height"`
	Zoom    float64    `toml:"zoom"`
	MinZoom float64    `toml:"min_zoom"`
	MaxZoom float64    `toml:"max_zoom"`
	Center  [2]float64 `toml:"center"`
}

// ControllerConfig holds the layout trigger timings.
type ControllerConfig struct {
	Debounce    Duration `toml:"debounce"`
	SettleDelay Duration `toml:"settle_delay"`
	ZoomStep    float64  `toml:"zoom_step"`
}

// DataConfig locates the band dataset.
type DataConfig struct {
	// Dir is a local data directory. URL, when set, is used instead.
	Dir      string `toml:"dir"`
	URL      string `toml:"url"`
	Geometry string `toml:"geometry"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend  string   `toml:"backend"`
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	Prefix   string   `toml:"prefix"`
	TTL      Duration `toml:"ttl"`
}

// ServerConfig holds the HTTP control surface settings.
type ServerConfig struct {
	Addr       string   `toml:"addr"`
	SessionTTL Duration `toml:"session_ttl"`
}

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Duration is a time.Duration written as "150ms" in TOML.
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			Config:       layout.DefaultConfig(),
			Strategy:     string(layout.StrategyAuto),
			RadialRadius: layout.DefaultRadialRadius,
			SpiralScale:  layout.DefaultSpiralScale,
		},
		Viewport: ViewportConfig{
			Width:   viewport.DefaultWidth,
			Height:  viewport.DefaultHeight,
			Zoom:    viewport.DefaultZoom,
			MinZoom: viewport.DefaultMinZoom,
			MaxZoom: viewport.DefaultMaxZoom,
			Center:  viewport.DefaultCenter,
		},
		Controller: ControllerConfig{
			Debounce:    Duration{controller.DefaultDebounce},
			SettleDelay: Duration{controller.DefaultSettleDelay},
			ZoomStep:    controller.DefaultZoomStep,
		},
		Data: DataConfig{
			Dir:      "data",
			Geometry: band.GeometryFile,
		},
		Cache: CacheConfig{
			Backend: BackendFile,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			SessionTTL: Duration{30 * time.Minute},
		},
	}
}

// Dir returns the bandmap config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "bandmap")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load builds the configuration. An empty path reads DefaultPath when it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as TOML to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := layout.ParseStrategy(c.Layout.Strategy); err != nil {
		return err
	}
	v := c.Viewport
	if v.Width <= 0 || v.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "viewport size must be positive, got %vx%v", v.Width, v.Height)
	}
	if v.MinZoom <= 0 || v.MaxZoom < v.MinZoom {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid zoom limits [%v, %v]", v.MinZoom, v.MaxZoom)
	}
	if err := errors.ValidateFinite("viewport center longitude", v.Center[0]); err != nil {
		return err
	}
	if err := errors.ValidateFinite("viewport center latitude", v.Center[1]); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache backend redis needs redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Controller.Debounce.Duration < 0 || c.Controller.SettleDelay.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "controller delays must not be negative")
	}
	return nil
}

// ViewportOptions converts the viewport section.
func (c *Config) ViewportOptions() viewport.Options {
	v := c.Viewport
	return viewport.Options{
		Width:   v.Width,
		Height:  v.Height,
		Zoom:    v.Zoom,
		MinZoom: v.MinZoom,
		MaxZoom: v.MaxZoom,
		Center:  orb.Point(v.Center),
	}
}

// Strategy returns the configured placement strategy.
func (c *Config) Strategy() layout.Strategy {
	s, _ := layout.ParseStrategy(c.Layout.Strategy)
	return s
}

// ControllerOptions converts the layout and controller sections. Surface,
// Clock and Logger are left for the caller.
func (c *Config) ControllerOptions() controller.Options {
	return controller.Options{
		Layout:       c.Layout.Config,
		Strategy:     c.Strategy(),
		RadialRadius: c.Layout.RadialRadius,
		SpiralScale:  c.Layout.SpiralScale,
		Debounce:     c.Controller.Debounce.Duration,
		SettleDelay:  c.Controller.SettleDelay.Duration,
		ZoomStep:     c.Controller.ZoomStep,
	}
}

// =============================================================================
// Environment overrides
// =============================================================================

type envVar struct {
	name string
	set  func(*Config, string) error
}

// envVars lists every supported override. Names are EnvPrefix + section +
// key, upper case.
var envVars = []envVar{
	{"LAYOUT_STRATEGY", func(c *Config, v string) error { c.Layout.Strategy = v; return nil }},
	{"LAYOUT_ITERATIONS", intVar(func(c *Config) *int { return &c.Layout.Iterations })},
	{"LAYOUT_MIN_GAP", floatVar(func(c *Config) *float64 { return &c.Layout.MinGap })},
	{"LAYOUT_BASE_MARKER_SIZE", floatVar(func(c *Config) *float64 { return &c.Layout.BaseMarkerSize })},
	{"LAYOUT_MAX_MARKER_SIZE", floatVar(func(c *Config) *float64 { return &c.Layout.MaxMarkerSize })},
	{"LAYOUT_RADIAL_RADIUS", floatVar(func(c *Config) *float64 { return &c.Layout.RadialRadius })},
	{"LAYOUT_SPIRAL_SCALE", floatVar(func(c *Config) *float64 { return &c.Layout.SpiralScale })},
	{"VIEWPORT_WIDTH", floatVar(func(c *Config) *float64 { return &c.Viewport.Width })},
	{"VIEWPORT_HEIGHT", floatVar(func(c *Config) *float64 { return &c.Viewport.Height })},
	{"VIEWPORT_ZOOM", floatVar(func(c *Config) *float64 { return &c.Viewport.Zoom })},
	{"VIEWPORT_MIN_ZOOM", floatVar(func(c *Config) *float64 { return &c.Viewport.MinZoom })},
	{"VIEWPORT_MAX_ZOOM", floatVar(func(c *Config) *float64 { return &c.Viewport.MaxZoom })},
	{"CONTROLLER_DEBOUNCE", durationVar(func(c *Config) *time.Duration { return &c.Controller.Debounce.Duration })},
	{"CONTROLLER_SETTLE_DELAY", durationVar(func(c *Config) *time.Duration { return &c.Controller.SettleDelay.Duration })},
	{"DATA_DIR", stringVar(func(c *Config) *string { return &c.Data.Dir })},
	{"DATA_URL", stringVar(func(c *Config) *string { return &c.Data.URL })},
	{"DATA_GEOMETRY", stringVar(func(c *Config) *string { return &c.Data.Geometry })},
	{"CACHE_BACKEND", stringVar(func(c *Config) *string { return &c.Cache.Backend })},
	{"CACHE_DIR", stringVar(func(c *Config) *string { return &c.Cache.Dir })},
	{"CACHE_REDIS_URL", stringVar(func(c *Config) *string { return &c.Cache.RedisURL })},
	{"CACHE_PREFIX", stringVar(func(c *Config) *string { return &c.Cache.Prefix })},
	{"CACHE_TTL", durationVar(func(c *Config) *time.Duration { return &c.Cache.TTL.Duration })},
	{"SERVER_ADDR", stringVar(func(c *Config) *string { return &c.Server.Addr })},
	{"SERVER_SESSION_TTL", durationVar(func(c *Config) *time.Duration { return &c.Server.SessionTTL.Duration })},
}

// applyEnv applies BANDMAP_* overrides found by lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok {
			continue
		}
		if err := ev.set(c, strings.TrimSpace(v)); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, ev.name)
		}
	}
	return nil
}

func stringVar(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intVar(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func floatVar(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func durationVar(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*field(c) = d
		return nil
	}
}
