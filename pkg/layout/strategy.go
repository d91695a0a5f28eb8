package layout

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/converter"
	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/geo"
)

// Strategy names a placement algorithm.
type Strategy string

const (
	// StrategyAuto chooses Force when possible and degrades otherwise.
	StrategyAuto   Strategy = "auto"
	StrategyForce  Strategy = "force"
	StrategyRadial Strategy = "radial"
	StrategySpiral Strategy = "spiral"
	StrategyRaw    Strategy = "raw"
)

// Strategies lists the configurable strategies.
var Strategies = []Strategy{StrategyAuto, StrategyForce, StrategyRadial, StrategySpiral, StrategyRaw}

// ParseStrategy parses a strategy name. The empty string means auto.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StrategyAuto, nil
	}
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidStrategy, "unknown layout strategy %q (want auto, force, radial, spiral or raw)", s)
}

// Result is the derived position of one band for one layout pass. Results
// are never mutated after they are returned.
type Result struct {
	BandID string `json:"bandId"`
	// Position is the display position (the band's layoutPosition).
	Position orb.Point `json:"position"`
	// Anchor is the province centre the band is arranged around.
	Anchor   orb.Point `json:"anchor"`
	Strategy Strategy  `json:"strategy"`
	// Radius is the marker radius in pixels. Zero for placers that work in
	// geographic space.
	Radius float64 `json:"radius,omitempty"`
}

// Placer computes positions for the bands sharing one anchor. Results are
// returned in input order.
type Placer interface {
	Place(anchor orb.Point, bands []band.Band) []Result
}

// Selection describes one group when choosing a placer.
type Selection struct {
	// Strategy is the configured strategy. Empty means auto.
	Strategy Strategy
	// Converter is nil when the rendering surface is not ready.
	Converter *converter.Converter
	// Province is the group's province; Known is false when the atlas has
	// no record for it.
	Province band.Province
	Known    bool

	Config       Config
	RadialRadius float64
	SpiralScale  float64
}

// Select picks the placer for a group:
//
//   - an unknown or invalid province falls back to Raw,
//   - an explicit radial, spiral or raw strategy is honoured,
//   - otherwise Force is used when the converter is available and Radial
//     when it is not.
//
// Dense provinces get a crowded Force configuration. A province bound with
// area is handed to Force to keep markers inside it.
func Select(sel Selection) Placer {
	if !sel.Known || !sel.Province.Valid || !geo.Finite(sel.Province.Center) {
		return Raw{}
	}
	switch sel.Strategy {
	case StrategyRaw:
		return Raw{}
	case StrategyRadial:
		return Radial{Radius: sel.RadialRadius}
	case StrategySpiral:
		return Spiral{Scale: sel.SpiralScale}
	}
	if sel.Converter == nil {
		return Radial{Radius: sel.RadialRadius}
	}
	cfg := sel.Config.WithDefaults()
	if sel.Province.Crowding == band.Dense {
		cfg = cfg.Crowded()
	}
	f := Force{Converter: sel.Converter, Config: cfg}
	if sel.Province.HasArea() {
		f.Bound = sel.Province.Bound
	}
	return f
}

// StrategyOf reports which strategy a placer implements.
func StrategyOf(p Placer) Strategy {
	switch p.(type) {
	case Force, *Force:
		return StrategyForce
	case Radial, *Radial:
		return StrategyRadial
	case Spiral, *Spiral:
		return StrategySpiral
	case Raw, *Raw:
		return StrategyRaw
	}
	return StrategyAuto
}
