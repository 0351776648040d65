package rocket

import (
	"testing"

	"github.com/gonum/floats"
)

func TestAtmosphere(t *testing.T) {
	conf := DefaultConfig()
	atm := NewAtmosphere(conf.Atmosphere)
	sl := atm.At(0)
	if sl.Pressure != 101325 || sl.Density != 1.225 {
		t.Fatalf("sea level %+v", sl)
	}
	if !floats.EqualWithinAbs(sl.Temperature, 288.153, 1e-3) || !floats.EqualWithinAbs(sl.SpeedOfSound, 340.294, 1e-3) {
		t.Fatalf("sea level %+v", sl)
	}
	if below := atm.At(-500); below != sl {
		t.Fatalf("negative altitudes must return sea level, got %+v", below)
	}
	air := atm.At(7500)
	if !floats.EqualWithinAbs(air.Pressure, 37275.384, 1e-3) || !floats.EqualWithinAbs(air.Density, 0.4195856, 1e-6) {
		t.Fatalf("7.5 km %+v", air)
	}
	if !floats.EqualWithinAbs(air.SpeedOfSound, 352.667, 1e-3) {
		t.Fatalf("7.5 km speed of sound %f", air.SpeedOfSound)
	}
	if h := atm.At(200e3); h.Density > 1e-12 || h.Density <= 0 {
		t.Fatalf("200 km density %g", h.Density)
	}
}

func TestDragCoefficient(t *testing.T) {
	for _, tc := range []struct{ mach, cd float64 }{
		{0, 0.2}, {0.5, 0.2}, {0.8, 0.2}, {1, 0.4}, {1.2, 0.6}, {2.7, 0.55}, {4.2, 0.5}, {10, 0.5}, {-1, 0.4},
	} {
		if cd := DragCoefficient(tc.mach); !floats.EqualWithinAbs(cd, tc.cd, 1e-12) {
			t.Fatalf("M=%f: Cd=%f expected %f", tc.mach, cd, tc.cd)
		}
	}
}

func TestGravityAndRequirements(t *testing.T) {
	conf := DefaultConfig()
	if conf.Physics.Gravity(0) != 9.81 {
		t.Fatalf("g(0)=%f", conf.Physics.Gravity(0))
	}
	if g := conf.Physics.Gravity(6371000); !floats.EqualWithinAbs(g, 9.81/4, 1e-12) {
		t.Fatalf("g(R)=%f", g)
	}
	if v := conf.Physics.CircularVelocity(400e3); !floats.EqualWithinAbs(v, 7668.593, 1e-3) {
		t.Fatalf("v=%f", v)
	}
	if dv := conf.RequiredDeltaV(400e3); !floats.EqualWithinAbs(dv, 9668.593, 1e-3) {
		t.Fatalf("required Δv=%f", dv)
	}
}
