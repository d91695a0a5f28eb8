package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/cache"
	"github.com/matzehuels/bandmap/pkg/controller"
	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/httputil"
	"github.com/matzehuels/bandmap/pkg/observability"
	"github.com/matzehuels/bandmap/pkg/render"
	"github.com/matzehuels/bandmap/pkg/render/svg"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use it so that data loading behaves the same.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// HTTPTTL is how long remote data files stay cached. Zero means
	// cache.TTLHTTP.
	HTTPTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	data, atlasHit, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Data = data
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.BandCount = len(data.Bands())
	result.Stats.ProvinceCount = data.Atlas.Len()
	result.CacheInfo.AtlasHit = atlasHit

	r.Logger.Info("loaded bands",
		"bands", result.Stats.BandCount,
		"provinces", result.Stats.ProvinceCount,
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	snap, vp, err := r.Layout(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Snapshot = snap
	result.View = snap.View
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Positioned = snap.Len()
	result.Stats.Degraded = len(snap.Degraded)

	r.Logger.Info("computed layout",
		"markers", snap.Len(),
		"state", snap.State,
		"degraded", len(snap.Degraded),
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, err := r.Render(ctx, snap, vp, data, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// =============================================================================
// Load
// =============================================================================

// Load reads the band dataset and the province geometry. It reports
// whether the atlas came from the cache.
//
// A dataset whose genre index cannot be read is not fatal: the map is
// shown empty and a warning is logged. A missing or unparsable geometry
// file falls back to the built-in province centres.
func (r *Runner) Load(ctx context.Context, opts Options) (*Data, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, false, err
	}

	fsys, err := r.dataFS(ctx, opts)
	if err != nil {
		return nil, false, err
	}

	ds, err := band.Load(ctx, fsys, opts.Logger)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeDataFetchFailure) {
			return nil, false, err
		}
		opts.Logger.Warn("showing an empty map", "err", err)
	}

	data := &Data{Dataset: ds}
	raw, err := fs.ReadFile(fsys, opts.Geometry)
	if err != nil {
		opts.Logger.Warn("province geometry unavailable, using built-in centres", "file", opts.Geometry, "err", err)
		data.Atlas = band.BuiltinAtlas()
		return data, false, nil
	}
	data.GeometryHash = cache.Hash(raw)

	geom, hit, err := r.geometry(ctx, raw, data.GeometryHash, opts)
	if err != nil {
		opts.Logger.Warn("invalid province geometry, using built-in centres", "err", err)
		data.GeometryHash = ""
		data.Atlas = band.BuiltinAtlas()
		return data, false, nil
	}
	data.Geometry = geom
	data.Atlas = geom.Atlas
	return data, hit, nil
}

// geometry parses the boundary file, reusing a cached atlas for it when
// one exists.
func (r *Runner) geometry(ctx context.Context, raw []byte, hash string, opts Options) (*band.Geometry, bool, error) {
	key := r.Keyer.AtlasKey(hash, cache.AtlasKeyOpts{})

	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var atlas band.Atlas
			if err := json.Unmarshal(cached, &atlas); err == nil {
				fc, err := geojson.UnmarshalFeatureCollection(raw)
				if err != nil {
					return nil, false, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "parse province geometry")
				}
				observability.Cache().OnCacheHit(ctx, "atlas")
				return &band.Geometry{Collection: fc, Atlas: &atlas}, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "atlas")
	}

	geom, err := band.ParseGeometry(raw, opts.Logger)
	if err != nil {
		return nil, false, err
	}

	if encoded, err := json.Marshal(geom.Atlas); err == nil {
		err := cache.RetryWithBackoff(ctx, func() error {
			return r.Cache.Set(ctx, key, encoded, cache.TTLAtlas)
		})
		if err != nil {
			opts.Logger.Warn("failed to cache province atlas", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "atlas", len(encoded))
		}
	}
	return geom, false, nil
}

func (r *Runner) dataFS(ctx context.Context, opts Options) (fs.FS, error) {
	switch {
	case opts.FS != nil:
		return opts.FS, nil
	case opts.DataURL != "":
		client := httputil.NewClient(httputil.ClientOptions{
			Cache:   r.Cache,
			Keyer:   r.Keyer,
			TTL:     r.HTTPTTL,
			Refresh: opts.Refresh,
		})
		return httputil.NewRemoteFS(ctx, client, opts.DataURL)
	default:
		info, err := os.Stat(opts.DataDir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDataFetchFailure, err, "data directory")
		}
		if !info.IsDir() {
			return nil, errors.New(errors.ErrCodeDataFetchFailure, "%s is not a directory", opts.DataDir)
		}
		return os.DirFS(opts.DataDir), nil
	}
}

// =============================================================================
// Layout
// =============================================================================

// NewSession creates a ready viewport and a controller loaded with data.
// The caller owns the controller and must Close it. The first layout pass
// runs after the controller's settle delay unless the caller triggers one.
func (r *Runner) NewSession(data *Data, opts Options) (*viewport.Viewport, *controller.Controller) {
	r.applyLogger(&opts)
	vp := viewport.New(opts.Viewport)
	vp.MarkReady()

	ctrl := controller.New(opts.ControllerOptions(vp))
	ctrl.Load(data.Bands(), data.Atlas)
	if !opts.Filter.IsZero() {
		ctrl.SetFilter(opts.Filter)
	}
	return vp, ctrl
}

// Layout runs a single layout pass and returns its snapshot together with
// the viewport it was computed for. When opts.Province is set the pass is
// for that province in focus.
func (r *Runner) Layout(ctx context.Context, data *Data, opts Options) (*controller.Snapshot, *viewport.Viewport, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	opts.Controller.Context = ctx

	vp, ctrl := r.NewSession(data, opts)
	defer ctrl.Close()

	if opts.Province != "" {
		if err := ctrl.Select(opts.Province); err != nil {
			return nil, nil, err
		}
	} else {
		ctrl.Recompute()
	}

	snap := ctrl.Snapshot()
	if snap == nil {
		return nil, nil, errors.New(errors.ErrCodeInternal, "layout produced no snapshot")
	}
	return snap, vp, nil
}

// =============================================================================
// Render
// =============================================================================

// Render produces every requested format for a snapshot.
func (r *Runner) Render(ctx context.Context, snap *controller.Snapshot, proj svg.Projector, data *Data, opts Options) (map[render.Format][]byte, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	artifacts := make(map[render.Format][]byte, len(opts.Formats))
	var doc []byte
	for _, format := range opts.Formats {
		if format == render.FormatJSON {
			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return nil, err
			}
			artifacts[format] = out
			continue
		}

		if doc == nil {
			doc = svg.Render(snap, proj, svgOptions(data, opts)...)
		}
		switch format {
		case render.FormatSVG:
			artifacts[format] = doc
		case render.FormatPNG:
			out, err := render.ToPNG(ctx, doc, opts.Scale)
			if err != nil {
				return nil, err
			}
			artifacts[format] = out
		case render.FormatPDF:
			out, err := render.ToPDF(ctx, doc)
			if err != nil {
				return nil, err
			}
			artifacts[format] = out
		}
	}
	return artifacts, nil
}

func svgOptions(data *Data, opts Options) []svg.Option {
	var out []svg.Option
	if data != nil && data.Geometry != nil {
		out = append(out, svg.WithOutlines(data.Geometry.Collection))
	}
	if opts.Connectors {
		out = append(out, svg.WithConnectors())
	}
	if opts.Labels {
		out = append(out, svg.WithLabels())
	}
	if opts.Counts {
		out = append(out, svg.WithCounts())
	}
	if opts.Title != "" {
		out = append(out, svg.WithTitle(opts.Title))
	}
	return out
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
