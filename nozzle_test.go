package rocket

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestExitMach(t *testing.T) {
	// Isentropic tables: A/A* = 25 at M = 5 for γ = 1.4.
	if M := ExitMach(1.4, 25); !floats.EqualWithinAbs(M, 5, 1e-6) {
		t.Fatalf("M=%f", M)
	}
	if M := ExitMach(1.4, 1); M != 1 {
		t.Fatalf("throat Mach should be one, got %f", M)
	}
	if pr := ExitPressureRatio(1.4, 25); !floats.EqualWithinAbs(pr, 1.890038e-3, 1e-8) {
		t.Fatalf("pe/pc=%g", pr)
	}
}

func TestThrustCoefficient(t *testing.T) {
	if cf := ThrustCoefficient(1.22, 10); !floats.EqualWithinAbs(cf, 1.696034, 1e-5) {
		t.Fatalf("Cf=%f", cf)
	}
	prev := 0.
	for _, ε := range []float64{4, 10, 25, 40, 80} {
		cf := ThrustCoefficient(1.26, ε)
		if cf <= prev {
			t.Fatalf("Cf not increasing with the expansion ratio at %f", ε)
		}
		prev = cf
	}
}

func TestSizeNozzle(t *testing.T) {
	props := DefaultCatalog().MustLookup(LOXRP1)
	n := SizeNozzle(RoleBooster, props, 8.2e6)
	if n.ExpansionRatio != 10 {
		t.Fatalf("booster ε=%f", n.ExpansionRatio)
	}
	if !floats.EqualWithinAbs(n.ThroatArea, 0.636159, 1e-5) {
		t.Fatalf("At=%f", n.ThroatArea)
	}
	if !floats.EqualWithinAbs(n.ThroatDiameter, 0.89999, 1e-4) || !floats.EqualWithinAbs(n.ExitDiameter, 2.846020, 1e-4) {
		t.Fatalf("Dt=%f De=%f", n.ThroatDiameter, n.ExitDiameter)
	}
	if !floats.EqualWithinRel(n.ExitArea, 10*n.ThroatArea, 1e-12) {
		t.Fatal("exit area is not ε·At")
	}
	expL := 0.8 * (n.ExitDiameter - n.ThroatDiameter) / (2 * math.Tan(15*math.Pi/180))
	if !floats.EqualWithinAbs(n.Length, expL, 1e-9) {
		t.Fatalf("L=%f exp=%f", n.Length, expL)
	}
	if z := SizeNozzle(RoleSecond, props, 0); z.ThroatArea != 0 || z.ExitDiameter != 0 || z.ExpansionRatio != 40 {
		t.Fatalf("zero thrust nozzle: %+v", z)
	}
	for role, ε := range map[StageRole]float64{RoleGeneric: 25, RoleSecond: 40, RoleUpper: 80} {
		if role.ExpansionRatio() != ε {
			t.Fatalf("%s: ε=%f", role, role.ExpansionRatio())
		}
	}
}
