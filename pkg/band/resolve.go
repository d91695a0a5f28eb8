package band

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/geo"
)

// Resolve returns copies of bands in which every band carries a finite
// coordinate. Missing coordinates are filled from the city table, the
// province table, the atlas centre, and finally DefaultCoordinate. Each
// fallback to the default is logged as a warning; none is fatal.
//
// The input slice and its bands are not modified.
func Resolve(bands []Band, atlas *Atlas, logger *log.Logger) []Band {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	out := make([]Band, len(bands))
	for i, b := range bands {
		p, err := ResolveOne(b, atlas)
		if err != nil {
			logger.Warn("using default coordinate", "band", b.Name, "city", b.City, "province", b.Province, "err", errors.UserMessage(err))
		}
		b.Coordinates = &p
		out[i] = b
	}
	return out
}

// ResolveOne returns the coordinate for a single band. When nothing resolves
// it returns DefaultCoordinate together with an ErrCodeMissingCoordinate
// error.
func ResolveOne(b Band, atlas *Atlas) (orb.Point, error) {
	if p, ok := b.Coord(); ok && geo.Finite(p) {
		return p, nil
	}
	if p, ok := CityCenter(b.City); ok {
		return p, nil
	}
	if p, ok := ProvinceCenter(b.Province); ok {
		return p, nil
	}
	if atlas != nil {
		if prov, ok := atlas.Lookup(b.Province); ok && prov.Valid {
			return prov.Center, nil
		}
	}
	return DefaultCoordinate, errors.New(errors.ErrCodeMissingCoordinate,
		"no coordinate for city %q or province %q", b.City, b.Province)
}
