package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bandmap/pkg/buildinfo"
	"github.com/matzehuels/bandmap/pkg/cache"
	"github.com/matzehuels/bandmap/pkg/config"
	"github.com/matzehuels/bandmap/pkg/layout"
	"github.com/matzehuels/bandmap/pkg/observability"
	"github.com/matzehuels/bandmap/pkg/pipeline"
	"github.com/matzehuels/bandmap/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "bandmap"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the --config flag. Empty means the default location.
	ConfigPath string
	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level. At debug level layout, cache and
// server events are logged as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := observability.LogHooks{Logger: c.Logger}
		observability.SetLayoutHooks(hooks)
		observability.SetCacheHooks(hooks)
		observability.SetServerHooks(hooks)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "bandmap lays out Chinese indie bands on a map of China",
		Long:         `bandmap places band markers on a map of China's provinces, resolving overlaps with a collision-aware force layout and falling back to radial or spiral placement where geometry is missing.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.ConfigPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: "+config.DefaultPath()+")")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.provincesCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer = cache.NewDefaultKeyer()
	if prefix := c.Config.Cache.Prefix; prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, prefix)
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	runner.HTTPTTL = c.Config.Cache.TTL.Duration
	return runner, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: c.Config.Cache.RedisURL})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the configured cache directory or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config != nil && c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/bandmap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions builds pipeline options from the loaded config.
func (c *CLI) pipelineOptions() pipeline.Options {
	cfg := c.Config
	return pipeline.Options{
		DataDir:      cfg.Data.Dir,
		DataURL:      cfg.Data.URL,
		Geometry:     cfg.Data.Geometry,
		Strategy:     cfg.Strategy(),
		Layout:       cfg.Layout.Config,
		RadialRadius: cfg.Layout.RadialRadius,
		SpiralScale:  cfg.Layout.SpiralScale,
		Viewport:     cfg.ViewportOptions(),
		Controller:   cfg.ControllerOptions(),
		Logger:       c.Logger,
	}
}

// viewFlags are the flags shared by commands that lay out a map.
type viewFlags struct {
	dataDir  string
	dataURL  string
	strategy string
	width    float64
	height   float64
	zoom     float64
	center   []float64
	province string
	query    string
	genre    string
	refresh  bool
	noCache  bool
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataDir, "data", "", "data directory (default from config)")
	cmd.Flags().StringVar(&f.dataURL, "data-url", "", "base URL of a remote data directory")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "placement strategy: auto, force, radial, spiral, raw")
	cmd.Flags().Float64Var(&f.width, "width", 0, "viewport width in pixels")
	cmd.Flags().Float64Var(&f.height, "height", 0, "viewport height in pixels")
	cmd.Flags().Float64VarP(&f.zoom, "zoom", "z", 0, "initial zoom")
	cmd.Flags().Float64SliceVar(&f.center, "center", nil, "initial centre as lng,lat")
	cmd.Flags().StringVarP(&f.province, "province", "p", "", "focus a province")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "only show bands whose name, city or genre matches")
	cmd.Flags().StringVarP(&f.genre, "genre", "g", "", "only show bands of this genre")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached data")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	_ = cmd.RegisterFlagCompletionFunc("strategy", completeStrategy)
}

// apply overrides config-derived options with the flags that were set.
func (f *viewFlags) apply(opts *pipeline.Options) error {
	if f.dataDir != "" {
		opts.DataDir, opts.DataURL = f.dataDir, ""
	}
	if f.dataURL != "" {
		opts.DataURL = f.dataURL
	}
	if f.strategy != "" {
		s, err := layout.ParseStrategy(f.strategy)
		if err != nil {
			return err
		}
		opts.Strategy = s
	}
	if f.width > 0 {
		opts.Viewport.Width = f.width
	}
	if f.height > 0 {
		opts.Viewport.Height = f.height
	}
	if f.zoom > 0 {
		opts.Viewport.Zoom = f.zoom
	}
	if len(f.center) > 0 {
		if len(f.center) != 2 {
			return fmt.Errorf("--center needs lng,lat, got %d values", len(f.center))
		}
		opts.Viewport.Center = orb.Point{f.center[0], f.center[1]}
	}
	opts.Province = f.province
	opts.Filter.Query = f.query
	opts.Filter.Genre = f.genre
	opts.Refresh = f.refresh
	return nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) ([]render.Format, error) {
	if s == "" {
		return []render.Format{render.FormatSVG}, nil
	}
	var out []render.Format
	for _, part := range strings.Split(s, ",") {
		f, err := render.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
