package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/radio-control/rangebot/internal/radiolink"
)

var (
	sanFrancisco = radiolink.Position{Latitude: 37.7749, Longitude: -122.4194}
	losAngeles   = radiolink.Position{Latitude: 34.0522, Longitude: -118.2437}
)

func TestDistanceSanFranciscoLosAngeles(t *testing.T) {
	d := Distance(sanFrancisco, losAngeles)
	if d < 558500 || d > 559700 {
		t.Errorf("Distance(SF, LA) = %.1f m, want about 559,120 m", d)
	}
}

func TestDistanceSymmetricAndZero(t *testing.T) {
	points := []radiolink.Position{
		sanFrancisco,
		losAngeles,
		{Latitude: 0, Longitude: 0},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 89.9, Longitude: 179.9},
	}

	for _, a := range points {
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			if Distance(a, b) != Distance(b, a) {
				t.Errorf("Distance not symmetric for %v and %v", a, b)
			}
		}
	}
}

func TestDistanceAntipodal(t *testing.T) {
	d := Distance(radiolink.Position{Latitude: 0, Longitude: 0}, radiolink.Position{Latitude: 0, Longitude: 180})
	want := math.Pi * EarthMeanRadius
	if math.Abs(d-want) > 1e-3 {
		t.Errorf("antipodal distance = %v, want %v", d, want)
	}
}

// orb uses the WGS84 equatorial radius, so results differ only by the radius ratio.
func TestDistanceMatchesOrbScaled(t *testing.T) {
	pairs := [][2]radiolink.Position{
		{sanFrancisco, losAngeles},
		{{Latitude: 51.5074, Longitude: -0.1278}, {Latitude: 48.8566, Longitude: 2.3522}},
		{{Latitude: -33.8688, Longitude: 151.2093}, {Latitude: 35.6762, Longitude: 139.6503}},
	}

	for _, p := range pairs {
		ref := orbgeo.DistanceHaversine(
			orb.Point{p[0].Longitude, p[0].Latitude},
			orb.Point{p[1].Longitude, p[1].Latitude},
		) * EarthMeanRadius / orb.EarthRadius

		got := Distance(p[0], p[1])
		if math.Abs(got-ref) > 0.01 {
			t.Errorf("Distance(%v, %v) = %.3f, orb reference %.3f", p[0], p[1], got, ref)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid(sanFrancisco) {
		t.Error("SF reported invalid")
	}
	for _, p := range []radiolink.Position{
		{Latitude: 91, Longitude: 0},
		{Latitude: 0, Longitude: -181},
		{Latitude: radiolink.Unset, Longitude: radiolink.Unset},
	} {
		if Valid(p) {
			t.Errorf("Valid(%v) = true", p)
		}
	}
}
