package band

import (
	"regexp"
	"strings"

	"github.com/paulmach/orb"
)

// provinceSuffix matches the administrative designations that differ between
// the band catalogue ("广西") and boundary datasets ("广西壮族自治区").
// Designations stack ("维吾尔" + "自治区"), so they are stripped repeatedly,
// but only from the end of the name.
var provinceSuffix = regexp.MustCompile(`(省|市|自治区|特别行政区|壮族|回族|维吾尔)$`)

// NormalizeProvince returns the canonical short name of a province.
func NormalizeProvince(name string) string {
	name = strings.TrimSpace(name)
	for {
		short := provinceSuffix.ReplaceAllString(name, "")
		if short == name || short == "" {
			return name
		}
		name = short
	}
}

// NormalizeCity strips a trailing 市 from a city name.
func NormalizeCity(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), "市")
}

// municipalities are the provincial-level cities and SARs. Their markers
// share a tiny area and are always packed as dense.
var municipalities = map[string]bool{
	"北京": true,
	"天津": true,
	"上海": true,
	"重庆": true,
	"香港": true,
	"澳门": true,
}

// denseArea is the bound area, in square degrees, at or below which a
// province is classified as dense. Hainan (about 5.3) is dense; Ningxia
// (about 11) is not.
const denseArea = 6.0

// Classify derives the crowding class of a province from its name and
// bound.
func Classify(name string, b orb.Bound) Crowding {
	if municipalities[NormalizeProvince(name)] {
		return Dense
	}
	area := (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
	if area > 0 && area <= denseArea {
		return Dense
	}
	return Sparse
}
