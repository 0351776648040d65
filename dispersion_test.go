package rocket

import (
	"testing"

	"github.com/gonum/floats"
)

func TestDisperse(t *testing.T) {
	sim := NewSimulator(DefaultConfig(), nil)
	d := DefaultDispersion(42)
	d.Runs = 20
	res, err := sim.Disperse(soundingProfile(), d)
	if err != nil {
		t.Fatal(err)
	}
	if res.Runs != 20 || len(res.Apogees) != 20 {
		t.Fatalf("%d runs, %d apogees", res.Runs, len(res.Apogees))
	}
	if !(res.Min <= res.Mean && res.Mean <= res.Max) || res.StdDev <= 0 {
		t.Fatalf("inconsistent statistics %+v", res)
	}
	if !floats.EqualWithinRel(res.Mean, res.Nominal, 0.1) {
		t.Fatalf("mean %f far from nominal %f", res.Mean, res.Nominal)
	}

	again, _ := sim.Disperse(soundingProfile(), d)
	if !floats.Equal(again.Apogees, res.Apogees) {
		t.Fatal("the same seed must give the same campaign")
	}
	d.Seed = 7
	other, _ := sim.Disperse(soundingProfile(), d)
	if floats.Equal(other.Apogees, res.Apogees) {
		t.Fatal("different seeds gave the same campaign")
	}
}

func TestDisperseNoUncertainty(t *testing.T) {
	sim := NewSimulator(DefaultConfig(), nil)
	res, err := sim.Disperse(soundingProfile(), Dispersion{Runs: 3, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range res.Apogees {
		if !floats.EqualWithinRel(a, res.Nominal, 1e-4) {
			t.Fatalf("apogee %f without uncertainty, nominal %f", a, res.Nominal)
		}
	}
	if _, err := sim.Disperse(soundingProfile(), Dispersion{}); err == nil {
		t.Fatal("zero runs accepted")
	}
}
