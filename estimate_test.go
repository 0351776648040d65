package rocket

import (
	"strings"
	"testing"

	"github.com/gonum/floats"
)

func soundingRocket(t *testing.T, payload float64) *Rocket {
	r, err := RocketFromSpecs("Sounding", payload, []StageSpec{
		{Name: "Motor", Role: RoleBooster, Propellant: HTPB, DryMass: 150, PropellantMass: 400, ThrustSL: 20000, ThrustVac: 22400, BurnTime: 55, Diameter: 0.4, Length: 4},
	}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestEstimateBallistic(t *testing.T) {
	r := soundingRocket(t, 50)
	est := EstimateAltitude(r, 50e3)
	if est.Model != Ballistic || est.Infeasible {
		t.Fatalf("unexpected estimate %+v", est)
	}
	if !floats.EqualWithinAbs(est.DeltaV, 3017.668, 1e-2) || !floats.EqualWithinAbs(est.TWR, 3.397893, 1e-5) {
		t.Fatalf("Δv=%f TWR=%f", est.DeltaV, est.TWR)
	}
	if !floats.EqualWithinAbs(est.GravityLoss, 662.175, 1e-2) || !floats.EqualWithinAbs(est.DragLoss, 10.909, 1e-2) {
		t.Fatalf("losses %f %f", est.GravityLoss, est.DragLoss)
	}
	if !floats.EqualWithinAbs(est.Altitude, 238150.5, 1) {
		t.Fatalf("altitude=%f", est.Altitude)
	}
}

func TestEstimateEnergy(t *testing.T) {
	r := ReferenceTwoStage(DefaultConfig())
	est := EstimateAltitude(r, 400e3)
	if est.Model != Energy || est.Infeasible {
		t.Fatalf("unexpected estimate %+v", est)
	}
	// Losses below the floor are raised to the nominal budget.
	if !floats.EqualWithinAbs(est.EffectiveDeltaV, est.DeltaV-2000, 1e-9) {
		t.Fatalf("effective Δv=%f", est.EffectiveDeltaV)
	}
	if !floats.EqualWithinAbs(est.Altitude, 817272, 5) {
		t.Fatalf("altitude=%f", est.Altitude)
	}

	// A sounding rocket stays far below orbit.
	if alt := EstimateAltitude(soundingRocket(t, 50), 400e3).Altitude; alt > 60e3 {
		t.Fatalf("sounding rocket reached %f m", alt)
	}

	// Enough Δv to escape.
	r.Stage(0).ApplyAdjustment(Adjustment{ThrustScale: 2})
	r.Stage(1).ApplyAdjustment(Adjustment{DryMass: 100, PropellantMass: 5e5})
	if est := EstimateAltitude(r, 400e3); est.Altitude != DefaultConfig().Estimate.EscapeAltitude {
		t.Fatalf("expected the escape altitude, got %+v", est)
	}
}

func TestEstimateOrbitalDeltaVSuborbitalTarget(t *testing.T) {
	// The orbital reference flown to a suborbital target overshoots instead of collapsing to the ground.
	conf := DefaultConfig()
	r := ReferenceTwoStage(conf)
	est := EstimateAltitude(r, 50e3)
	if est.Model != Ballistic || est.Infeasible || est.EffectiveDeltaV < conf.Estimate.OrbitalVelocity {
		t.Fatalf("unexpected estimate %+v", est)
	}
	want := est.EffectiveDeltaV * est.EffectiveDeltaV / (2 * conf.Physics.G0) * conf.Estimate.AtmosphericFactor
	if !floats.EqualWithinRel(est.Altitude, want, 1e-12) || est.Altitude <= 50e3 {
		t.Fatalf("altitude=%f, expected the apex %f", est.Altitude, want)
	}
	if !strings.Contains(est.Warning, "orbital") {
		t.Fatalf("warning %q", est.Warning)
	}
	// Below orbital velocity the same apex applies without the warning.
	r.Stage(1).ApplyAdjustment(Adjustment{PropellantMass: 10000})
	low := EstimateAltitude(r, 50e3)
	if low.EffectiveDeltaV >= conf.Estimate.OrbitalVelocity || low.Warning != "" || low.Altitude >= est.Altitude {
		t.Fatalf("unexpected estimate %+v", low)
	}
}

func TestEstimateLowTWR(t *testing.T) {
	r := soundingRocket(t, 50)
	s := r.Stage(0)
	s.ApplyAdjustment(Adjustment{ThrustScale: 0.9 * r.TotalMass() * 9.81 / s.ThrustSL()})
	est := EstimateAltitude(r, 50e3)
	if !floats.EqualWithinAbs(est.TWR, 0.9, 1e-9) {
		t.Fatalf("TWR=%f", est.TWR)
	}
	if est.Altitude != 0 || !est.Infeasible || !strings.Contains(est.Warning, "TWR") {
		t.Fatalf("expected an infeasible estimate, got %+v", est)
	}
	// The heavy-lift reference is just under the minimum TWR.
	if est := EstimateAltitude(ReferenceThreeStage(DefaultConfig()), 400e3); !est.Infeasible {
		t.Fatalf("expected an infeasible estimate, got %+v", est)
	}
}

func TestEstimateNoStages(t *testing.T) {
	r, _ := NewRocket("empty", 10, DefaultConfig())
	if est := EstimateAltitude(r, 1e3); !est.Infeasible || est.Altitude != 0 {
		t.Fatalf("unexpected estimate %+v", est)
	}
}
