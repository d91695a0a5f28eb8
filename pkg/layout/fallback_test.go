package layout

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/geo"
)

// screenVector returns the offset of p from c in ground-corrected degrees
// with y pointing down.
func screenVector(c, p orb.Point) (dx, dy float64) {
	dx = (p.Lon() - c.Lon()) * math.Cos(geo.Radians(c.Lat()))
	dy = -(p.Lat() - c.Lat())
	return dx, dy
}

func TestRadialEdgeCases(t *testing.T) {
	center := orb.Point{113.28, 23.13}

	if got := (Radial{}).Place(center, nil); len(got) != 0 {
		t.Errorf("N=0 gave %d results", len(got))
	}

	got := Radial{}.Place(center, makeBands(1))
	if len(got) != 1 || got[0].Position != center {
		t.Errorf("N=1 = %+v, want exactly the centre", got)
	}
}

func TestRadialSymmetry(t *testing.T) {
	center := orb.Point{104.06, 30.66}
	results := Radial{}.Place(center, makeBands(5))
	if len(results) != 5 {
		t.Fatalf("got %d results", len(results))
	}

	var angles []float64
	for i, r := range results {
		dx, dy := screenVector(center, r.Position)
		if d := math.Hypot(dx, dy); math.Abs(d-DefaultRadialRadius) > 1e-9 {
			t.Errorf("point %d at distance %v, want %v", i, d, DefaultRadialRadius)
		}
		angles = append(angles, geo.Degrees(math.Atan2(dy, dx)))
	}

	if math.Abs(angles[0]-(-90)) > 1e-9 {
		t.Errorf("first bearing = %v, want -90", angles[0])
	}
	for i := 1; i < len(angles); i++ {
		step := math.Mod(angles[i]-angles[i-1]+360, 360)
		if math.Abs(step-72) > 1e-9 {
			t.Errorf("step %d = %v°, want 72°", i, step)
		}
	}

	// -90° is north: the first point is above the centre.
	if results[0].Position.Lat() <= center.Lat() {
		t.Errorf("first point %v is not north of %v", results[0].Position, center)
	}
}

func TestRadialLongitudeCorrection(t *testing.T) {
	center := orb.Point{87.6, 60}
	results := Radial{Radius: 2}.Place(center, makeBands(4))
	// Second point is due east; at 60° latitude the longitude offset doubles.
	east := results[1].Position
	if got := east.Lon() - center.Lon(); math.Abs(got-4) > 1e-9 {
		t.Errorf("longitude offset = %v, want 4", got)
	}
}

func TestSpiral(t *testing.T) {
	center := orb.Point{121.47, 31.23}

	got := Spiral{}.Place(center, makeBands(1))
	if got[0].Position != center {
		t.Errorf("N=1 = %v, want centre", got[0].Position)
	}

	results := Spiral{}.Place(center, makeBands(8))
	prev := -1.0
	for i, r := range results {
		dx, dy := screenVector(center, r.Position)
		d := math.Hypot(dx, dy)
		want := DefaultSpiralScale * math.Sqrt(float64(i)+0.5)
		if math.Abs(d-want) > 1e-9 {
			t.Errorf("point %d radius = %v, want %v", i, d, want)
		}
		if d <= prev {
			t.Errorf("spiral radius not increasing at %d", i)
		}
		prev = d
		if r.Strategy != StrategySpiral {
			t.Errorf("Strategy = %v", r.Strategy)
		}
	}
}

func TestRaw(t *testing.T) {
	own := orb.Point{120, 30}
	bands := []band.Band{
		{ID: "a", Coordinates: &own},
		{ID: "b"},
	}
	nan := orb.Point{math.NaN(), math.NaN()}

	tests := []struct {
		name   string
		anchor orb.Point
		wantB  orb.Point
	}{
		{"anchor fallback", orb.Point{110, 35}, orb.Point{110, 35}},
		{"default fallback", nan, band.DefaultCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Raw{}.Place(tt.anchor, bands)
			if got[0].Position != own {
				t.Errorf("a = %v, want own coordinate", got[0].Position)
			}
			if got[1].Position != tt.wantB {
				t.Errorf("b = %v, want %v", got[1].Position, tt.wantB)
			}
			for _, r := range got {
				if !geo.Finite(r.Anchor) {
					t.Errorf("anchor for %s is not finite", r.BandID)
				}
			}
		})
	}
}
