package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bandmap/pkg/render"
)

// layoutCommand creates the layout command for computing marker positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		view   viewFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute marker positions and write them as JSON",
		Long: `Compute marker positions and write them as JSON.

The layout command runs a single layout pass for the configured viewport
and writes the snapshot (markers, province anchors, styles, counts and
degradations) as JSON. Use --province to lay out a focused province.

Only the province index is cached; positions are recomputed on every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), view, output)
		},
	}

	view.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: bandmap[-<province>].layout.json)")

	return cmd
}

// runLayout lays out the map and writes the snapshot.
func (c *CLI) runLayout(ctx context.Context, view viewFlags, output string) error {
	opts := c.pipelineOptions()
	if err := view.apply(&opts); err != nil {
		return err
	}
	opts.Formats = []render.Format{render.FormatJSON}

	runner, err := c.newRunner(ctx, view.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", opts.Province) + ".layout.json"
	}
	if err := os.WriteFile(outputPath, result.Artifacts[render.FormatJSON], 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	prog.done(fmt.Sprintf("Laid out %d bands", result.Stats.Positioned))
	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(result.Stats, result.CacheInfo.AtlasHit)
	printDegraded(result)
	printNewline()
	printNextStep("Render", "bandmap render -f svg,png")

	return nil
}
