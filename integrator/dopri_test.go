package integrator

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

// decay is y' = -k y.
type decay struct {
	k     float64
	state []float64
	times []float64
}

func (d *decay) GetState() []float64 { return d.state }

func (d *decay) SetState(t float64, s []float64) {
	d.state = s
	d.times = append(d.times, t)
}

func (d *decay) Stop(t float64) bool { return false }

func (d *decay) Func(t float64, s []float64) []float64 {
	return []float64{-d.k * s[0]}
}

// oscillator is x'' = -x, state is [x, v].
type oscillator struct {
	state  []float64
	stopAt float64
}

func (o *oscillator) GetState() []float64 { return o.state }

func (o *oscillator) SetState(t float64, s []float64) { o.state = s }

func (o *oscillator) Stop(t float64) bool { return o.stopAt > 0 && t >= o.stopAt }

func (o *oscillator) Func(t float64, s []float64) []float64 {
	return []float64{s[1], -s[0]}
}

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("code did not panic")
		}
	}()
	f()
}

func TestDormandPrinceDecay(t *testing.T) {
	d := &decay{k: 0.5, state: []float64{2}}
	dp := NewDormandPrince(0, 10, 1, d)
	steps, tf, err := dp.Solve()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if tf != 10 {
		t.Fatalf("integration ended at %f instead of 10", tf)
	}
	if steps < 10 {
		t.Fatalf("max step of 1 s requires at least 10 steps, got %d", steps)
	}
	exp := 2 * math.Exp(-5)
	if !floats.EqualWithinAbs(d.state[0], exp, 1e-6) {
		t.Fatalf("y(10) = %.10f instead of %.10f", d.state[0], exp)
	}
	for i := 1; i < len(d.times); i++ {
		if d.times[i]-d.times[i-1] > 1+1e-12 {
			t.Fatalf("step %d of %f s exceeds the max step", i, d.times[i]-d.times[i-1])
		}
	}
}

func TestDormandPrinceEventDirection(t *testing.T) {
	o := &oscillator{state: []float64{1, 0}}
	// x = cos(t): falling zeros at π/2 and 5π/2, rising zero at 3π/2.
	falling := Event{Name: "falling", Func: func(t float64, s []float64) float64 { return s[0] }, Direction: -1}
	rising := Event{Name: "rising", Func: func(t float64, s []float64) float64 { return s[0] }, Direction: 1}
	dp := NewDormandPrince(0, 3*math.Pi, 0.5, o, falling, rising)
	if _, _, err := dp.Solve(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(dp.Crossings) != 3 {
		t.Fatalf("expected 3 crossings, got %d: %+v", len(dp.Crossings), dp.Crossings)
	}
	exp := []struct {
		name string
		t    float64
	}{{"falling", math.Pi / 2}, {"rising", 3 * math.Pi / 2}, {"falling", 5 * math.Pi / 2}}
	for i, c := range dp.Crossings {
		if c.Event != exp[i].name {
			t.Fatalf("crossing %d is %s instead of %s", i, c.Event, exp[i].name)
		}
		if !floats.EqualWithinAbs(c.T, exp[i].t, 1e-4) {
			t.Fatalf("crossing %d at %f instead of %f", i, c.T, exp[i].t)
		}
		if !floats.EqualWithinAbs(c.State[0], 0, 1e-4) {
			t.Fatalf("crossing %d state %f is not a zero", i, c.State[0])
		}
	}
}

func TestDormandPrinceTerminalEvent(t *testing.T) {
	o := &oscillator{state: []float64{1, 0}}
	ev := Event{Name: "zero", Func: func(t float64, s []float64) float64 { return s[0] }, Terminal: true}
	dp := NewDormandPrince(0, 10, 0.5, o, ev)
	_, tf, err := dp.Solve()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !floats.EqualWithinAbs(tf, math.Pi/2, 1e-4) {
		t.Fatalf("terminal event stopped at %f instead of %f", tf, math.Pi/2)
	}
	if !floats.EqualWithinAbs(o.state[1], -1, 1e-4) {
		t.Fatalf("velocity at the zero is %f instead of -1", o.state[1])
	}
}

func TestDormandPrinceStop(t *testing.T) {
	o := &oscillator{state: []float64{1, 0}, stopAt: 2}
	dp := NewDormandPrince(0, 10, 0.25, o)
	_, tf, err := dp.Solve()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if tf < 2 || tf > 2.25+1e-9 {
		t.Fatalf("integration should stop right after t=2, stopped at %f", tf)
	}
}

func TestDormandPrinceMaxSteps(t *testing.T) {
	d := &decay{k: 1, state: []float64{1}}
	dp := NewDormandPrince(0, 100, 1, d)
	dp.MaxSteps = 5
	steps, _, err := dp.Solve()
	if err != ErrTooManySteps {
		t.Fatalf("expected ErrTooManySteps, got %v", err)
	}
	if steps != 5 {
		t.Fatalf("expected 5 accepted steps, got %d", steps)
	}
}

func TestDormandPrinceConfig(t *testing.T) {
	assertPanic(t, func() {
		NewDormandPrince(0, 1, 1, nil)
	})
	assertPanic(t, func() {
		NewDormandPrince(1, 0, 1, &decay{state: []float64{1}})
	})
	assertPanic(t, func() {
		NewDormandPrince(0, 1, 0, &decay{state: []float64{1}})
	})
}
