package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/pipeline"
)

// provincesCommand creates the provinces command that lists the atlas.
func (c *CLI) provincesCommand() *cobra.Command {
	var view viewFlags

	cmd := &cobra.Command{
		Use:   "provinces",
		Short: "List provinces with their band counts and anchors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProvinces(cmd.Context(), view)
		},
	}

	view.register(cmd)

	return cmd
}

func (c *CLI) runProvinces(ctx context.Context, view viewFlags) error {
	opts := c.pipelineOptions()
	if err := view.apply(&opts); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, view.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	data, _, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	fmt.Println(provinceTable(provinceRows(data, opts.Filter)))
	return nil
}

// provinceRows returns one row per province in the atlas: name, visible
// band count, crowding, centre and validity.
func provinceRows(data *pipeline.Data, filter band.Filter) [][]string {
	counts := band.CountByProvince(filter.Apply(data.Bands()))

	rows := make([][]string, 0, data.Atlas.Len())
	for _, p := range data.Atlas.Provinces {
		valid := "✓"
		if !p.Valid {
			valid = "✗"
		}
		rows = append(rows, []string{
			p.Name,
			fmt.Sprintf("%d", counts[p.Name]),
			string(p.Crowding),
			fmt.Sprintf("%.2f, %.2f", p.Center[0], p.Center[1]),
			valid,
		})
	}
	return rows
}

func provinceTable(rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Province", "Bands", "Crowding", "Center", "Valid").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < len(rows) && rows[row][1] == "0" {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			if col == 1 {
				return StyleNumber
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
