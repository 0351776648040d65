package rocket

import (
	"errors"
	"testing"

	"github.com/gonum/floats"
)

func TestNewRocket(t *testing.T) {
	conf := DefaultConfig()
	for _, m := range []float64{0, -10} {
		if _, err := NewRocket("bad", m, conf); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("payload %f: expected an invalid payload error, got %v", m, err)
		}
	}
	r, err := NewRocket("empty", 100, conf)
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalDeltaV() != 0 || r.NaiveDeltaV() != 0 || r.LiftoffTWR() != 0 || r.FinenessRatio() != 0 {
		t.Fatal("a vehicle without stages must have no performance")
	}
	if _, err := RocketFromSpecs("none", 100, nil, conf); !errors.Is(err, ErrNoStages) {
		t.Fatalf("expected a no stages error, got %v", err)
	}
	if err := r.SetPayload(0); !errors.Is(err, ErrInvalidPayload) {
		t.Fatal("zero payload accepted")
	}
}

func TestReferenceVehicles(t *testing.T) {
	conf := DefaultConfig()
	r := ReferenceTwoStage(conf)
	if r.NumStages() != 2 || r.TotalMass() != 519000 || r.DryMass() != 44000 {
		t.Fatalf("incorrect two-stage vehicle: %s", r)
	}
	if !floats.EqualWithinAbs(r.TotalDeltaV(), 10342.985, 1e-2) {
		t.Fatalf("staged Δv=%f", r.TotalDeltaV())
	}
	if !floats.EqualWithinAbs(r.NaiveDeltaV(), 8230.814, 1e-2) {
		t.Fatalf("naive Δv=%f", r.NaiveDeltaV())
	}
	if !floats.EqualWithinAbs(r.LiftoffTWR(), 1.49272, 1e-4) {
		t.Fatalf("TWR=%f", r.LiftoffTWR())
	}
	r3 := ReferenceThreeStage(conf)
	if !floats.EqualWithinAbs(r3.TotalDeltaV(), 14148.354, 1e-2) {
		t.Fatalf("staged Δv=%f", r3.TotalDeltaV())
	}
	for _, v := range []*Rocket{r, r3} {
		if v.TotalDeltaV() <= v.NaiveDeltaV() {
			t.Fatalf("%s: staging brings no gain", v.Name())
		}
		if !floats.EqualWithinAbs(v.MassFractions().Sum(), 1, 1e-12) {
			t.Fatalf("%s: mass fractions sum to %f", v.Name(), v.MassFractions().Sum())
		}
	}
	if !floats.EqualWithinAbs(r.Height(), 1.1*(41.2+12.6), 1e-9) || r.MaxDiameter() != 3.7 {
		t.Fatalf("geometry: h=%f d=%f", r.Height(), r.MaxDiameter())
	}
}

func TestMassBookkeeping(t *testing.T) {
	r := ReferenceThreeStage(DefaultConfig())
	if r.MassAbove(0) != r.Payload() {
		t.Fatal("nothing but the payload is above index zero")
	}
	if r.MassAbove(2) != 45000+2290000+496200 {
		t.Fatalf("mass above #2 %f", r.MassAbove(2))
	}
	if r.CarriedMass(0) != r.TotalMass() || r.CarriedMass(2) != 45000+120200 {
		t.Fatalf("carried mass %f %f", r.CarriedMass(0), r.CarriedMass(2))
	}
	c := r.Clone()
	c.Stage(0).ApplyAdjustment(Adjustment{PropellantMass: 1e6})
	if r.Stage(0).PropellantMass() == c.Stage(0).PropellantMass() {
		t.Fatal("clone shares its stages")
	}
	stages := r.Stages()
	stages[0] = nil
	if r.Stage(0) == nil {
		t.Fatal("Stages returned the internal slice")
	}
}

func TestDoublingPropellantIncreasesDeltaV(t *testing.T) {
	r := ReferenceTwoStage(DefaultConfig())
	s := r.Stage(1)
	dv, total := s.DeltaV(), r.TotalDeltaV()
	s.ApplyAdjustment(Adjustment{PropellantMass: 2 * s.PropellantMass()})
	if s.DeltaV() <= dv || r.TotalDeltaV() <= total {
		t.Fatalf("Δv did not increase: stage %f -> %f, vehicle %f -> %f", dv, s.DeltaV(), total, r.TotalDeltaV())
	}
}

func TestRocketSummary(t *testing.T) {
	r := ReferenceTwoStage(DefaultConfig())
	sum := r.Summary()
	if sum.Name != r.Name() || len(sum.Stages) != 2 || sum.DeltaV != r.TotalDeltaV() || sum.Stages[1].Position != 1 {
		t.Fatalf("incorrect summary %+v", sum)
	}
	if m := r.DeltaVMargin(400e3); !floats.EqualWithinAbs(m, r.TotalDeltaV()-DefaultConfig().RequiredDeltaV(400e3), 1e-9) {
		t.Fatalf("margin %f", m)
	}
}
