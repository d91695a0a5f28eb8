package band

import (
	"sort"
	"strings"
)

// Filter narrows the visible band set.
type Filter struct {
	// Query matches name, city or genre, case-insensitively.
	Query string `json:"query,omitempty"`
	// Genre keeps only bands with this genre ID. Empty keeps all.
	Genre string `json:"genre,omitempty"`
}

// IsZero reports whether the filter keeps every band.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && f.Genre == ""
}

// Match reports whether b passes the filter.
func (f Filter) Match(b Band) bool {
	if f.Genre != "" && b.Genre != f.Genre {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Name), q) ||
		strings.Contains(strings.ToLower(b.City), q) ||
		strings.Contains(strings.ToLower(b.Genre), q)
}

// Apply returns the bands that pass the filter, preserving order.
func (f Filter) Apply(bands []Band) []Band {
	if f.IsZero() {
		return bands
	}
	out := make([]Band, 0, len(bands))
	for _, b := range bands {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

// CountByProvince counts bands per normalized province name.
func CountByProvince(bands []Band) map[string]int {
	counts := make(map[string]int)
	for _, b := range bands {
		counts[NormalizeProvince(b.Province)]++
	}
	return counts
}

// Group is the bands of one province, in input order.
type Group struct {
	Province string
	Bands    []Band
}

// GroupByProvince partitions bands by normalized province. Groups are
// ordered by province name so that iteration is deterministic.
func GroupByProvince(bands []Band) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, b := range bands {
		name := NormalizeProvince(b.Province)
		i, ok := idx[name]
		if !ok {
			i = len(groups)
			idx[name] = i
			groups = append(groups, Group{Province: name})
		}
		groups[i].Bands = append(groups[i].Bands, b)
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Province < groups[b].Province })
	return groups
}
