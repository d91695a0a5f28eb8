// Package pkg provides the core libraries for the bandmap indie-band map.
//
// # Overview
//
// bandmap places markers for Chinese indie bands on a map of China's
// provinces. Bands of the same province share an anchor, so their markers
// are spread apart with a collision-aware force layout, or with radial and
// spiral placement where a province has no usable geometry. The pkg
// directory is organized into three areas:
//
//  1. Layout - projection, placement and the reactive controller
//  2. Data - the band dataset, province geometry and caching
//  3. Surfaces - the pipeline, rendering and the HTTP server
//
// # Architecture
//
// The typical data flow:
//
//	genres.json + <genre>/bands.json + china.json
//	         ↓
//	    [band] package (load, normalize, resolve coordinates)
//	         ↓
//	    [controller] package (selection, zoom, debounced passes)
//	         ↓
//	    [layout] package (force, radial, spiral placement)
//	         ↓
//	    SVG/PDF/PNG/JSON output
//
// # Quick Start
//
// Lay out a province and render it:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	result, _ := runner.Execute(ctx, pipeline.Options{
//	    DataDir:  "data",
//	    Province: "四川",
//	    Formats:  []render.Format{render.FormatSVG},
//	})
//	os.WriteFile("sichuan.svg", result.Artifacts[render.FormatSVG], 0o644)
//
// # Main Packages
//
// ## Layout
//
// [geo] - Pixel geometry and finiteness checks shared by every stage.
//
// [viewport] - The map surface: Web Mercator projection, zoom limits,
// panning and change notification.
//
// [converter] - Geo-pixel conversion against a live viewport, with
// graceful failure before the viewport is ready.
//
// [layout] - Placement strategies. The force layout resolves collisions
// in pixel space and keeps markers inside their province; radial and
// spiral placers are the fallbacks.
//
// [controller] - The viewport-reactive controller. It owns the selection
// state machine, debounces zoom bursts and publishes immutable snapshots.
//
// ## Data
//
// [band] - Band, genre and province types; dataset loading, name
// normalization, coordinate resolution and the province atlas.
//
// [cache] - Cache backends (file, Redis, null) and key scoping.
//
// [httputil] - Retrying HTTP client and a remote [io/fs.FS] for data
// served over HTTP.
//
// ## Surfaces
//
// [pipeline] - Load → layout → render, shared by the CLI and the server.
//
// [render] - Output formats and SVG to PNG/PDF conversion.
//
// [render/svg] - The SVG map renderer.
//
// [server] - HTTP sessions driving a controller per client.
//
// [session] - Session lifetimes and persisted session state.
//
// ## Infrastructure
//
// [config] - TOML configuration with environment overrides.
//
// [errors] - Coded errors and input validation.
//
// [observability] - Layout, cache and server hooks.
//
// [buildinfo] - Version information.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                 # All tests
//	go test ./pkg/layout/...          # Specific package
//	go test -run Example ./pkg/...    # Examples only
//
// [geo]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/geo
// [viewport]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/viewport
// [converter]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/converter
// [layout]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/layout
// [controller]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/controller
// [band]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/band
// [cache]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/httputil
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/render
// [render/svg]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/render/svg
// [server]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/server
// [session]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/session
// [config]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/bandmap/pkg/buildinfo
package pkg
