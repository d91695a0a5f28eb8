package controller

import (
	"encoding/json"
	"iter"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/layout"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

// Degradation records a group that was placed with a simpler strategy than
// requested.
type Degradation struct {
	Province string          `json:"province"`
	Strategy layout.Strategy `json:"strategy"`
	Reason   errors.Code     `json:"reason"`
}

// Snapshot is the published result of one layout pass. It is immutable and
// replaced as a whole on every pass, so readers never see a partial layout.
type Snapshot struct {
	Generation uint64
	Trigger    Trigger
	State      State
	Selected   string
	Zoom       float64
	View       viewport.Transform

	// Anchors maps each laid-out province to its anchor.
	Anchors map[string]orb.Point
	// Styles maps every known province to its drawing style.
	Styles map[string]ProvinceStyle
	// Counts is the number of visible bands per province, ignoring the
	// selection.
	Counts   map[string]int
	Degraded []Degradation

	order   []string
	results map[string]layout.Result
	bands   map[string]band.Band
}

// Len returns the number of positioned bands.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Result returns the layout result for a band.
func (s *Snapshot) Result(bandID string) (layout.Result, bool) {
	if s == nil {
		return layout.Result{}, false
	}
	r, ok := s.results[bandID]
	return r, ok
}

// All yields band IDs and their results in layout order. The sequence can be
// iterated any number of times.
func (s *Snapshot) All() iter.Seq2[string, layout.Result] {
	return func(yield func(string, layout.Result) bool) {
		if s == nil {
			return
		}
		for _, id := range s.order {
			if !yield(id, s.results[id]) {
				return
			}
		}
	}
}

// Marker joins a band with its derived position for rendering.
type Marker struct {
	Band   band.Band
	Result layout.Result
}

// Markers yields every positioned band joined with its result.
func (s *Snapshot) Markers() iter.Seq[Marker] {
	return func(yield func(Marker) bool) {
		for id, r := range s.All() {
			if !yield(Marker{Band: s.bands[id], Result: r}) {
				return
			}
		}
	}
}

// BandIDs returns the positioned band IDs in layout order.
func (s *Snapshot) BandIDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

type markerJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Genre    string          `json:"genre"`
	Province string          `json:"province"`
	City     string          `json:"city"`
	Avatar   string          `json:"avatar,omitempty"`
	Position orb.Point       `json:"position"`
	Anchor   orb.Point       `json:"anchor"`
	Strategy layout.Strategy `json:"strategy"`
	Radius   float64         `json:"radius,omitempty"`
}

// MarshalJSON encodes the snapshot with its markers in layout order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	markers := make([]markerJSON, 0, s.Len())
	for m := range s.Markers() {
		markers = append(markers, markerJSON{
			ID:       m.Band.ID,
			Name:     m.Band.Name,
			Genre:    m.Band.Genre,
			Province: band.NormalizeProvince(m.Band.Province),
			City:     m.Band.City,
			Avatar:   m.Band.Avatar,
			Position: m.Result.Position,
			Anchor:   m.Result.Anchor,
			Strategy: m.Result.Strategy,
			Radius:   m.Result.Radius,
		})
	}
	return json.Marshal(struct {
		Generation uint64                   `json:"generation"`
		Trigger    Trigger                  `json:"trigger"`
		State      State                    `json:"state"`
		Selected   string                   `json:"selected,omitempty"`
		Zoom       float64                  `json:"zoom"`
		View       viewport.Transform       `json:"view"`
		Markers    []markerJSON             `json:"markers"`
		Anchors    map[string]orb.Point     `json:"anchors"`
		Styles     map[string]ProvinceStyle `json:"styles"`
		Counts     map[string]int           `json:"counts"`
		Degraded   []Degradation            `json:"degraded,omitempty"`
	}{
		Generation: s.Generation,
		Trigger:    s.Trigger,
		State:      s.State,
		Selected:   s.Selected,
		Zoom:       s.Zoom,
		View:       s.View,
		Markers:    markers,
		Anchors:    s.Anchors,
		Styles:     s.Styles,
		Counts:     s.Counts,
		Degraded:   s.Degraded,
	})
}
