package band

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/geo"
)

// Atlas indexes provinces by normalized name.
type Atlas struct {
	Provinces []Province `json:"provinces"`

	index map[string]int
}

// NewAtlas builds an atlas from provinces, sorted by name. Later duplicates
// replace earlier ones.
func NewAtlas(provinces []Province) *Atlas {
	byName := make(map[string]Province, len(provinces))
	for _, p := range provinces {
		p.Name = NormalizeProvince(p.Name)
		byName[p.Name] = p
	}
	a := &Atlas{
		Provinces: make([]Province, 0, len(byName)),
		index:     make(map[string]int, len(byName)),
	}
	for _, p := range byName {
		a.Provinces = append(a.Provinces, p)
	}
	sort.Slice(a.Provinces, func(i, j int) bool { return a.Provinces[i].Name < a.Provinces[j].Name })
	for i, p := range a.Provinces {
		a.index[p.Name] = i
	}
	return a
}

// Lookup returns the province with the given (possibly unnormalized) name.
func (a *Atlas) Lookup(name string) (Province, bool) {
	if a == nil {
		return Province{}, false
	}
	name = NormalizeProvince(name)
	if a.index == nil {
		for _, p := range a.Provinces {
			if p.Name == name {
				return p, true
			}
		}
		return Province{}, false
	}
	i, ok := a.index[name]
	if !ok {
		return Province{}, false
	}
	return a.Provinces[i], true
}

// UnmarshalJSON decodes an atlas and rebuilds its index.
func (a *Atlas) UnmarshalJSON(data []byte) error {
	var raw struct {
		Provinces []Province `json:"provinces"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = *NewAtlas(raw.Provinces)
	return nil
}

// Len returns the number of provinces.
func (a *Atlas) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Provinces)
}

// BuiltinAtlas returns an atlas of the built-in province centres. Bounds are
// degenerate, so focus falls back to a fixed zoom. Used when no boundary
// geometry could be loaded.
func BuiltinAtlas() *Atlas {
	provinces := make([]Province, 0, len(provinceCenters))
	for name, c := range provinceCenters {
		provinces = append(provinces, Province{
			Name:     name,
			Center:   c,
			Bound:    orb.Bound{Min: c, Max: c},
			Crowding: Classify(name, orb.Bound{}),
			Valid:    true,
		})
	}
	return NewAtlas(provinces)
}

// Geometry is a parsed province boundary dataset.
type Geometry struct {
	Collection *geojson.FeatureCollection
	Atlas      *Atlas
}

// ParseGeometry decodes a GeoJSON FeatureCollection of province boundaries.
//
// Each feature's name comes from the "name" (or "fullname") property. The
// centre is the "cp" (or "center") property when present, otherwise the
// area-weighted centroid. Features whose centre or bound is not finite are
// kept but marked invalid and logged; they never abort parsing.
func ParseGeometry(data []byte, logger *log.Logger) (*Geometry, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "parse province geometry")
	}
	return &Geometry{Collection: fc, Atlas: AtlasFromFeatures(fc, logger)}, nil
}

// AtlasFromFeatures derives the province index from boundary features.
func AtlasFromFeatures(fc *geojson.FeatureCollection, logger *log.Logger) *Atlas {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	var provinces []Province
	for _, f := range fc.Features {
		name := FeatureName(f)
		if name == "" {
			continue
		}
		p := provinceFromFeature(name, f)
		if !p.Valid {
			logger.Warn("invalid province geometry", "province", name, "code", errors.ErrCodeInvalidGeometry)
		}
		provinces = append(provinces, p)
	}
	return NewAtlas(provinces)
}

// FeatureName returns the normalized province name of a boundary feature.
func FeatureName(f *geojson.Feature) string {
	if name := f.Properties.MustString("name", ""); name != "" {
		return NormalizeProvince(name)
	}
	return NormalizeProvince(f.Properties.MustString("fullname", ""))
}

func provinceFromFeature(name string, f *geojson.Feature) Province {
	p := Province{Name: name, Crowding: Sparse}
	if f.Geometry == nil {
		return p
	}
	p.Bound = f.Geometry.Bound()

	center, ok := propertyPoint(f.Properties, "cp")
	if !ok {
		center, ok = propertyPoint(f.Properties, "center")
	}
	if !ok {
		center, _ = planar.CentroidArea(f.Geometry)
	}
	p.Center = center
	p.Valid = geo.Finite(center) && geo.FiniteBound(p.Bound)
	if !p.Valid {
		// Non-finite values cannot be encoded for the cache.
		return Province{Name: name, Crowding: Sparse}
	}
	p.Crowding = Classify(name, p.Bound)
	return p
}

// propertyPoint reads a [lng, lat] array property.
func propertyPoint(props geojson.Properties, key string) (orb.Point, bool) {
	raw, ok := props[key].([]interface{})
	if !ok || len(raw) != 2 {
		return orb.Point{}, false
	}
	lng, ok1 := raw[0].(float64)
	lat, ok2 := raw[1].(float64)
	if !ok1 || !ok2 {
		return orb.Point{}, false
	}
	return orb.Point{lng, lat}, true
}
