package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bandmap/pkg/pipeline"
	"github.com/matzehuels/bandmap/pkg/render"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	view       viewFlags
	output     string
	formats    string
	connectors bool
	labels     bool
	counts     bool
	scale      float64
	title      string
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := &renderOpts{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the band map as SVG, PNG, PDF or JSON",
		Long: `Render the band map as SVG, PNG, PDF or JSON.

The map is laid out once for the given viewport, either as the national
overview or with --province in focus, and written to one file per format.
PNG and PDF output require rsvg-convert (librsvg).`,
		Example: `  bandmap render -o china.svg
  bandmap render -p 四川 -f svg,png --labels -o sichuan
  bandmap render --genre post-punk --connectors`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), opts)
		},
	}

	opts.view.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file or base name (default: bandmap[-<province>])")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "svg", "output formats, comma separated: svg, png, pdf, json")
	cmd.Flags().BoolVar(&opts.connectors, "connectors", false, "draw lines from province anchors to moved markers")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "write band names under markers")
	cmd.Flags().BoolVar(&opts.counts, "counts", false, "write band counts at province anchors")
	cmd.Flags().Float64Var(&opts.scale, "scale", pipeline.DefaultScale, "PNG resolution multiplier")
	cmd.Flags().StringVar(&opts.title, "title", "", "document title")

	return cmd
}

// runRender lays out the map and writes every requested format.
func (c *CLI) runRender(ctx context.Context, ro *renderOpts) error {
	formats, err := parseFormats(ro.formats)
	if err != nil {
		return err
	}
	opts := c.pipelineOptions()
	if err := ro.view.apply(&opts); err != nil {
		return err
	}
	opts.Formats = formats
	opts.Connectors = ro.connectors
	opts.Labels = ro.labels
	opts.Counts = ro.counts
	opts.Scale = ro.scale
	opts.Title = ro.title

	runner, err := c.newRunner(ctx, ro.view.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering band map...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	base := basePath(ro.output, opts.Province)
	paths, err := writeArtifacts(base, formats, result.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Rendered %d bands", result.Stats.Positioned)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats, result.CacheInfo.AtlasHit)
	printDegraded(result)
	return nil
}

// basePath derives the output path without extension. A known format
// extension on output is stripped in any letter case, so "map.PNG" does not
// become "map.PNG.png".
func basePath(output, province string) string {
	if output == "" {
		if province == "" {
			return appName
		}
		return appName + "-" + province
	}
	ext := filepath.Ext(output)
	if _, err := render.ParseFormat(strings.TrimPrefix(ext, ".")); err == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeArtifacts writes one file per format and returns their paths.
func writeArtifacts(base string, formats []render.Format, artifacts map[render.Format][]byte) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	var paths []string
	for _, f := range formats {
		path := base + f.Ext()
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// printDegraded lists provinces that were placed with a fallback strategy.
func printDegraded(result *pipeline.Result) {
	for _, d := range result.Snapshot.Degraded {
		printWarning("%s placed with %s (%s)", d.Province, d.Strategy, d.Reason)
	}
}
