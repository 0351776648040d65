package integrator

import (
	"errors"
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

var (
	// ErrStepTooSmall is returned when the adaptive step underflows MinStep.
	ErrStepTooSmall = errors.New("integrator: step size underflow")
	// ErrTooManySteps is returned when MaxSteps accepted steps did not reach XEnd.
	ErrTooManySteps = errors.New("integrator: maximum number of steps reached")
)

// Dormand–Prince 5(4) Butcher tableau. The seventh row holds the fifth order weights (FSAL).
var (
	dpC = [7]float64{0, 1. / 5, 3. / 10, 4. / 5, 8. / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1. / 5},
		{3. / 40, 9. / 40},
		{44. / 45, -56. / 15, 32. / 9},
		{19372. / 6561, -25360. / 2187, 64448. / 6561, -212. / 729},
		{9017. / 3168, -355. / 33, 46732. / 5247, 49. / 176, -5103. / 18656},
		{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84},
	}
	// dpE holds the difference between the fifth and fourth order weights.
	dpE = [7]float64{71. / 57600, 0, -71. / 16695, 71. / 1920, -17253. / 339200, 22. / 525, -1. / 40}
)

// DormandPrince defines an adaptive explicit Runge-Kutta 5(4) integrator with event location.
type DormandPrince struct {
	X0, XEnd       float64    // Integration interval.
	MaxStep        float64    // Upper bound of the step size.
	MinStep        float64    // Steps below this size abort the integration.
	InitialStep    float64    // First trial step, computed from the interval if zero.
	RelTol, AbsTol float64    // Local error tolerances.
	MaxSteps       uint64     // Maximum number of accepted steps.
	Integrable     Integrable // What is to be integrated.
	Events         []Event
	Crossings      []Crossing // Located event crossings, in time order.
	Rejected       uint64     // Number of rejected trial steps.
}

// NewDormandPrince returns a new DormandPrince integrator over [x0, xEnd] with default tolerances.
func NewDormandPrince(x0, xEnd, maxStep float64, inte Integrable, events ...Event) *DormandPrince {
	if xEnd <= x0 {
		panic("config XEnd must be after X0")
	}
	if maxStep <= 0 {
		panic("config MaxStep must be positive")
	}
	if inte == nil {
		panic("config Integrable may not be nil")
	}
	return &DormandPrince{
		X0:         x0,
		XEnd:       xEnd,
		MaxStep:    maxStep,
		MinStep:    1e-10,
		RelTol:     1e-6,
		AbsTol:     1e-6,
		MaxSteps:   1000000,
		Integrable: inte,
		Events:     events,
	}
}

// Solve solves the configured problem.
// Returns the number of accepted steps and the last time reached, or an error.
func (d *DormandPrince) Solve() (uint64, float64, error) {
	const (
		safety    = 0.9
		minFactor = 0.2
		maxFactor = 5.0
	)
	d.Crossings = nil
	d.Rejected = 0

	s0 := d.Integrable.GetState()
	n := len(s0)
	y := mat64.NewVector(n, append([]float64(nil), s0...))
	t := d.X0
	h := d.InitialStep
	if h <= 0 {
		h = math.Min(d.MaxStep, (d.XEnd-d.X0)/100)
	}

	k := make([]*mat64.Vector, 7)
	k[0] = mat64.NewVector(n, d.Integrable.Func(t, y.RawVector().Data))
	stage := mat64.NewVector(n, nil)
	gPrev := d.evalEvents(t, y.RawVector().Data)

	var steps uint64
	for t < d.XEnd && !d.Integrable.Stop(t) {
		if steps >= d.MaxSteps {
			return steps, t, ErrTooManySteps
		}
		last := false
		if t+h >= d.XEnd {
			h = d.XEnd - t
			last = true
		}
		if h < d.MinStep {
			if last {
				// Remaining span is below resolution.
				break
			}
			return steps, t, ErrStepTooSmall
		}

		for i := 1; i < 7; i++ {
			stage.CopyVec(y)
			for j := 0; j < i; j++ {
				if a := dpA[i][j]; a != 0 {
					stage.AddScaledVec(stage, h*a, k[j])
				}
			}
			k[i] = mat64.NewVector(n, d.Integrable.Func(t+dpC[i]*h, stage.RawVector().Data))
		}
		// The last stage was evaluated on the fifth order solution.
		yNew := mat64.NewVector(n, nil)
		yNew.CopyVec(stage)

		errVec := mat64.NewVector(n, nil)
		for j := 0; j < 7; j++ {
			if e := dpE[j]; e != 0 {
				errVec.AddScaledVec(errVec, h*e, k[j])
			}
		}
		errNorm := d.errorNorm(y.RawVector().Data, yNew.RawVector().Data, errVec.RawVector().Data)

		if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) || floats.HasNaN(yNew.RawVector().Data) {
			d.Rejected++
			h *= minFactor
			continue
		}

		if errNorm > 1 {
			d.Rejected++
			h *= math.Max(minFactor, safety*math.Pow(errNorm, -0.2))
			continue
		}

		tNew := t + h
		if last {
			tNew = d.XEnd
		}
		stop := false
		gNew := d.evalEvents(tNew, yNew.RawVector().Data)
		for i, ev := range d.Events {
			if !ev.triggered(gPrev[i], gNew[i]) {
				continue
			}
			tc, yc := d.locate(ev, t, h, y, k[0], yNew, k[6])
			d.Crossings = append(d.Crossings, Crossing{Event: ev.Name, T: tc, State: yc})
			if ev.Terminal {
				stop = true
				tNew = tc
				yNew = mat64.NewVector(n, append([]float64(nil), yc...))
			}
		}

		t = tNew
		y = yNew
		k[0] = k[6]
		gPrev = gNew
		d.Integrable.SetState(t, append([]float64(nil), y.RawVector().Data...))
		steps++
		if stop {
			break
		}

		factor := maxFactor
		if errNorm > 0 {
			factor = math.Min(maxFactor, math.Max(minFactor, safety*math.Pow(errNorm, -0.2)))
		}
		h = math.Min(d.MaxStep, h*factor)
	}
	return steps, t, nil
}

// errorNorm returns the RMS of the local error scaled by the mixed tolerance.
func (d *DormandPrince) errorNorm(y0, y1, e []float64) float64 {
	sum := 0.
	for i := range e {
		sc := d.AbsTol + d.RelTol*math.Max(math.Abs(y0[i]), math.Abs(y1[i]))
		sum += (e[i] / sc) * (e[i] / sc)
	}
	return math.Sqrt(sum / float64(len(e)))
}

func (d *DormandPrince) evalEvents(t float64, s []float64) []float64 {
	g := make([]float64, len(d.Events))
	for i, ev := range d.Events {
		g[i] = ev.Func(t, s)
	}
	return g
}

// locate bisects the cubic Hermite interpolant of the step [t, t+h] for the event zero.
func (d *DormandPrince) locate(ev Event, t, h float64, y0, f0, y1, f1 *mat64.Vector) (float64, []float64) {
	lo, hi := 0., 1.
	gLo := ev.Func(t, y0.RawVector().Data)
	for i := 0; i < 60 && (hi-lo)*h > 1e-12; i++ {
		mid := (lo + hi) / 2
		gMid := ev.Func(t+mid*h, hermite(y0, f0, y1, f1, h, mid))
		if (gLo > 0) == (gMid > 0) && gMid != 0 {
			lo, gLo = mid, gMid
		} else {
			hi = mid
		}
	}
	return t + hi*h, hermite(y0, f0, y1, f1, h, hi)
}

// hermite evaluates the cubic Hermite interpolant at the fraction θ of the step.
func hermite(y0, f0, y1, f1 *mat64.Vector, h, θ float64) []float64 {
	θ2 := θ * θ
	θ3 := θ2 * θ
	out := mat64.NewVector(y0.Len(), nil)
	out.ScaleVec(2*θ3-3*θ2+1, y0)
	out.AddScaledVec(out, h*(θ3-2*θ2+θ), f0)
	out.AddScaledVec(out, -2*θ3+3*θ2, y1)
	out.AddScaledVec(out, h*(θ3-θ2), f1)
	return append([]float64(nil), out.RawVector().Data...)
}
