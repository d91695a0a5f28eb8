// Package band defines the map's input records: bands, genres and provinces.
//
// Records in this package are immutable once loaded. Derived, per-pass data
// such as layout positions lives in package layout and is joined to a band
// only by ID.
//
// # Coordinates
//
// Every band must resolve to some geographic coordinate before layout.
// [Resolve] fills missing coordinates from the city table, then the province
// table, then the province geometry, and finally falls back to Beijing with a
// warning.
package band

import (
	"github.com/paulmach/orb"
)

// Band is a single marker on the map.
type Band struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar,omitempty"`
	Genre       string     `json:"genre"`
	Province    string     `json:"province"`
	City        string     `json:"city"`
	Coordinates *orb.Point `json:"coordinates,omitempty"`
	FoundedYear int        `json:"foundedYear,omitempty"`
	Description string     `json:"description,omitempty"`
	Albums      []string   `json:"albums,omitempty"`
	Links       *Links     `json:"links,omitempty"`
}

// Links are optional external profile URLs.
type Links struct {
	Netease  string `json:"netease,omitempty"`
	Douban   string `json:"douban,omitempty"`
	Spotify  string `json:"spotify,omitempty"`
	Bandcamp string `json:"bandcamp,omitempty"`
	Bilibili string `json:"bilibili,omitempty"`
}

// Coord returns the band's coordinate and whether it has one.
func (b Band) Coord() (orb.Point, bool) {
	if b.Coordinates == nil {
		return orb.Point{}, false
	}
	return *b.Coordinates, true
}

// Genre groups bands in the data directory.
type Genre struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NameEn      string `json:"nameEn"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// Crowding classifies how aggressively a province's markers must be packed.
type Crowding string

const (
	Sparse Crowding = "sparse"
	Dense  Crowding = "dense"
)

// Province is the per-province metadata used for anchoring and focus.
type Province struct {
	Name     string    `json:"name"`
	Center   orb.Point `json:"center"`
	Bound    orb.Bound `json:"bound"`
	Crowding Crowding  `json:"crowding"`
	// Valid is false when the source geometry produced a non-finite centre
	// or bound. Invalid provinces are excluded from force layout and focus.
	Valid bool `json:"valid"`
}

// HasArea reports whether the province bound spans a non-zero area.
func (p Province) HasArea() bool {
	return p.Bound.Max[0] > p.Bound.Min[0] && p.Bound.Max[1] > p.Bound.Min[1]
}
