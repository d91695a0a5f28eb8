package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/controller"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

func newTestExplorer(t *testing.T) (exploreModel, *controller.Controller) {
	t.Helper()
	v := viewport.New(viewport.Options{})
	v.MarkReady()
	ctrl := controller.New(controller.Options{Surface: v})
	t.Cleanup(ctrl.Close)

	ctrl.Load([]band.Band{
		{ID: "a", Name: "Chengdu A", Province: "四川省", City: "成都"},
		{ID: "b", Name: "Chengdu B", Province: "四川", City: "成都"},
		{ID: "c", Name: "Beijing C", Province: "北京市"},
	}, band.BuiltinAtlas())
	ctrl.Recompute()
	return newExploreModel(ctrl), ctrl
}

func press(m exploreModel, key string) (exploreModel, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(exploreModel), cmd
}

func TestExploreOrdersProvincesByCount(t *testing.T) {
	m, _ := newTestExplorer(t)
	if len(m.provinces) < 2 || m.provinces[0] != "四川" || m.provinces[1] != "北京" {
		t.Fatalf("provinces start with %v, want [四川 北京 ...]", m.provinces[:2])
	}
}

func TestExploreSelection(t *testing.T) {
	m, ctrl := newTestExplorer(t)

	m, _ = press(m, "enter")
	if m.snap.Selected != "四川" || ctrl.State() != controller.ProvinceFocused {
		t.Fatalf("after enter: selected %q, state %v", m.snap.Selected, ctrl.State())
	}
	if !strings.Contains(m.View(), "Chengdu A") {
		t.Error("view should list the focused province's bands")
	}

	m, _ = press(m, "enter")
	if m.snap.Selected != "" {
		t.Errorf("second enter should deselect, selected %q", m.snap.Selected)
	}

	m, _ = press(m, "down")
	m, _ = press(m, "enter")
	if m.snap.Selected != "北京" {
		t.Errorf("selected %q, want 北京", m.snap.Selected)
	}

	m, _ = press(m, "esc")
	if ctrl.State() != controller.Idle {
		t.Errorf("esc left state %v", ctrl.State())
	}
}

func TestExploreZoomAndReset(t *testing.T) {
	m, ctrl := newTestExplorer(t)
	before := ctrl.Controls().Zoom()

	m, _ = press(m, "+")
	if got := ctrl.Controls().Zoom(); got <= before {
		t.Errorf("zoom after + = %v, want > %v", got, before)
	}

	m, _ = press(m, "enter")
	m, _ = press(m, "r")
	if ctrl.State() != controller.Idle || ctrl.Controls().Zoom() != before {
		t.Errorf("reset left state %v zoom %v", ctrl.State(), ctrl.Controls().Zoom())
	}
	if !strings.Contains(m.status(), "idle") {
		t.Errorf("status = %q", m.status())
	}
}

func TestExploreIgnoresStaleSnapshots(t *testing.T) {
	m, _ := newTestExplorer(t)
	current := m.snap

	next, _ := m.Update(layoutMsg{snap: &controller.Snapshot{Generation: current.Generation - 1}})
	if next.(exploreModel).snap != current {
		t.Error("an older snapshot replaced the current one")
	}
}

func TestExploreQuit(t *testing.T) {
	m, _ := newTestExplorer(t)
	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
