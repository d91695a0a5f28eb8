package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bandmap/pkg/controller"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// exploreCommand creates the interactive explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	var view viewFlags

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse provinces and their bands interactively",
		Long: `Browse provinces and their bands interactively.

Drives a live layout controller from the terminal: select a province to
focus it, zoom in and out, or reset the view. The status line shows the
state and zoom of the most recent layout pass.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), view)
		},
	}

	view.register(cmd)

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, view viewFlags) error {
	opts := c.pipelineOptions()
	if err := view.apply(&opts); err != nil {
		return err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	// Log output would tear the alternate screen.
	opts.Logger = log.New(io.Discard)

	runner, err := c.newRunner(ctx, view.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	data, _, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	opts.Controller.Context = ctx
	_, ctrl := runner.NewSession(data, opts)
	defer ctrl.Close()

	ctrl.Recompute()
	if opts.Province != "" {
		if err := ctrl.Select(opts.Province); err != nil {
			return err
		}
	}

	p := tea.NewProgram(newExploreModel(ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := ctrl.OnLayout(func(s *controller.Snapshot) { p.Send(layoutMsg{snap: s}) })
	defer unsubscribe()

	_, err = p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// =============================================================================
// exploreModel - Interactive province browser
// =============================================================================

// layoutMsg carries a snapshot published by the controller.
type layoutMsg struct {
	snap *controller.Snapshot
}

// exploreModel is the bubbletea model for the explore command.
type exploreModel struct {
	ctrl      *controller.Controller
	provinces []string
	snap      *controller.Snapshot
	cursor    int
	offset    int
	height    int
	err       error
}

// newExploreModel lists provinces with bands first, most populous first.
func newExploreModel(ctrl *controller.Controller) exploreModel {
	snap := ctrl.Snapshot()
	var counts map[string]int
	if snap != nil {
		counts = snap.Counts
	}

	var names []string
	if atlas := ctrl.Atlas(); atlas != nil {
		for _, p := range atlas.Provinces {
			names = append(names, p.Name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return counts[names[i]] > counts[names[j]]
	})

	return exploreModel{ctrl: ctrl, provinces: names, snap: snap, height: 15}
}

func (m exploreModel) Init() tea.Cmd {
	return nil
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case layoutMsg:
		if m.snap == nil || msg.snap.Generation >= m.snap.Generation {
			m.snap = msg.snap
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.height = msg.Height - 10
		if m.height < 5 {
			m.height = 5
		}
		return m, nil
	case tea.KeyMsg:
		m.err = nil
		controls := m.ctrl.Controls()
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.provinces)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter", " ":
			if len(m.provinces) > 0 {
				m.err = m.ctrl.Toggle(m.provinces[m.cursor])
			}
		case "esc":
			m.ctrl.Deselect()
		case "+", "=":
			controls.ZoomIn()
		case "-":
			controls.ZoomOut()
		case "r":
			controls.ResetView()
		default:
			return m, nil
		}
		m.snap = m.ctrl.Snapshot()
	}
	return m, nil
}

func (m exploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Band Map"))
	b.WriteString("  ")
	b.WriteString(m.status())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  esc deselect  +/- zoom  r reset  q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.table())
	b.WriteString("\n")

	if m.snap != nil && m.snap.Selected != "" {
		b.WriteString("\n")
		b.WriteString(listSelectedStyle.Render(m.snap.Selected))
		b.WriteString("  ")
		b.WriteString(listDimStyle.Render(strings.Join(m.bandNames(8), ", ")))
		b.WriteString("\n")
	}
	if m.snap != nil {
		for _, d := range m.snap.Degraded {
			b.WriteString(StyleWarning.Render(fmt.Sprintf("! %s placed with %s (%s)", d.Province, d.Strategy, d.Reason)))
			b.WriteString("\n")
		}
	}
	if m.err != nil {
		b.WriteString(styleIconError.Render("✗ " + m.err.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

func (m exploreModel) status() string {
	zoom := m.ctrl.Controls().ZoomPercent()
	if m.snap == nil {
		return listDimStyle.Render(fmt.Sprintf("waiting for layout · zoom %.0f%%", zoom))
	}
	return listDimStyle.Render(fmt.Sprintf("%s · %d markers · zoom %.0f%% · pass %d",
		m.snap.State, m.snap.Len(), zoom, m.snap.Generation))
}

func (m exploreModel) table() string {
	end := min(m.offset+m.height, len(m.provinces))

	var counts map[string]int
	selected := ""
	if m.snap != nil {
		counts, selected = m.snap.Counts, m.snap.Selected
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		mark := ""
		if m.provinces[i] == selected {
			mark = "●"
		}
		rows = append(rows, []string{cursor, m.provinces[i], fmt.Sprintf("%d", counts[m.provinces[i]]), mark})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Province", "Bands", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.offset + row
			if idx >= len(m.provinces) {
				return lipgloss.NewStyle()
			}
			name := m.provinces[idx]
			base := lipgloss.NewStyle()
			switch {
			case name == selected:
				base = base.Foreground(colorCyan)
			case counts[name] > 0:
				base = base.Foreground(colorGreen)
			default:
				base = base.Foreground(colorDim)
			}
			if idx == m.cursor {
				base = base.Bold(true)
			}
			return base
		})

	return t.Render() + "\n" + listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.provinces)))
}

// bandNames returns up to n names of the bands in the current snapshot.
func (m exploreModel) bandNames(n int) []string {
	ids := m.snap.BandIDs()
	var names []string
	for _, id := range ids {
		if len(names) == n {
			names = append(names, fmt.Sprintf("+%d more", len(ids)-n))
			break
		}
		if b, ok := m.ctrl.Band(id); ok {
			names = append(names, b.Name)
		}
	}
	return names
}
