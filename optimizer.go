package rocket

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
)

// Status is the outcome of a design run.
type Status uint8

const (
	// Converged means the altitude estimate reached the target within tolerance.
	Converged Status = iota + 1
	// BudgetExhausted means the iteration budget ran out first; the closest design is returned.
	BudgetExhausted
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case BudgetExhausted:
		return "budget_exhausted"
	}
	panic("cannot stringify unknown status")
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Phase is a state of the optimizer.
type Phase uint8

const (
	// Initializing is the heuristic first guess.
	Initializing Phase = iota + 1
	// Converging is the propellant, thrust and geometry adjustment loop.
	Converging
	// MassMinimizing trims propellant from a converged design.
	MassMinimizing
	// Done is the terminal phase.
	Done
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Converging:
		return "converging"
	case MassMinimizing:
		return "minimizing"
	case Done:
		return "done"
	}
	panic("cannot stringify unknown phase")
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DesignRequest is the input of a design run.
type DesignRequest struct {
	Name            string  `json:"name"`
	TargetAltitude  float64 `json:"target_altitude"`  // m
	Payload         float64 `json:"payload"`          // kg
	Propellant      string  `json:"propellant"`       // upper stage propellant, the configured default if empty
	Stages          int     `json:"stages"`           // 1 to 3
	InitialDiameter float64 `json:"initial_diameter"` // m, the altitude tier diameter if zero
	SafetyFactor    float64 `json:"safety_factor"`    // the configured default if zero
}

// OptimizationRecord is the snapshot of one optimizer iteration.
type OptimizationRecord struct {
	Iteration        int       `json:"iteration"`
	Phase            Phase     `json:"phase"`
	Altitude         float64   `json:"altitude"`
	TotalMass        float64   `json:"total_mass"`
	DeltaV           float64   `json:"delta_v"`
	ErrorRatio       float64   `json:"error_ratio"`
	DryMasses        []float64 `json:"dry_masses"`
	PropellantMasses []float64 `json:"propellant_masses"`
}

// Monitor observes a design run.
type Monitor interface {
	ObserveIteration(rec OptimizationRecord)
	ObserveDesign(rpt *DesignReport)
}

// DesignReport is the result of a design run.
type DesignReport struct {
	Request        DesignRequest        `json:"request"`
	Rocket         *Rocket              `json:"-"`
	Summary        RocketSummary        `json:"rocket"`
	History        []OptimizationRecord `json:"history"`
	Status         Status               `json:"status"`
	Iterations     int                  `json:"iterations"`
	Altitude       float64              `json:"altitude"`
	ErrorRatio     float64              `json:"error_ratio"`
	Estimate       AltitudeEstimate     `json:"estimate"`
	RequiredDeltaV float64              `json:"required_delta_v"`
	Flight         *FlightSummary       `json:"flight,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// Optimizer converges a vehicle toward a target altitude and then minimizes its mass.
// An optimizer owns its vehicle: it is not safe for concurrent use, but independent optimizers may run in parallel.
type Optimizer struct {
	// VerifyFlight runs a full flight simulation of the final design and reports it next to the estimate.
	VerifyFlight bool
	conf         Config
	req          DesignRequest
	upper        Propellant
	booster      Propellant
	sizer        *StructuralSizer
	logger       kitlog.Logger
	monitor      Monitor
	history      []OptimizationRecord
	warnings     []string
}

// NewOptimizer validates the request and returns a new optimizer.
// Both the logger and the monitor may be nil.
func NewOptimizer(conf Config, req DesignRequest, logger kitlog.Logger, monitor Monitor) (*Optimizer, error) {
	if !(req.TargetAltitude > 0) || math.IsInf(req.TargetAltitude, 0) {
		return nil, fmt.Errorf("%w: %f m", ErrInvalidTarget, req.TargetAltitude)
	}
	if !(req.Payload > 0) || math.IsInf(req.Payload, 0) {
		return nil, fmt.Errorf("%w: %f kg", ErrInvalidPayload, req.Payload)
	}
	if req.Stages < 1 || req.Stages > len(conf.Sizing.Splits) {
		return nil, fmt.Errorf("%w: got %d", ErrStageCount, req.Stages)
	}
	if req.InitialDiameter < 0 {
		return nil, fmt.Errorf("%w: initial diameter %f m", ErrInvalidStage, req.InitialDiameter)
	}
	if req.SafetyFactor == 0 {
		req.SafetyFactor = conf.Optimizer.DefaultSafety
	}
	if req.Propellant == "" {
		req.Propellant = conf.Optimizer.UpperPropellant
	}
	if req.Name == "" {
		req.Name = fmt.Sprintf("%d-stage %.0f km", req.Stages, req.TargetAltitude/1e3)
	}
	upper, err := PropellantFromString(req.Propellant)
	if err != nil {
		return nil, err
	}
	booster, err := PropellantFromString(conf.Optimizer.BoosterPropellant)
	if err != nil {
		return nil, err
	}
	for _, p := range []Propellant{upper, booster} {
		if _, err := conf.Catalog.Lookup(p); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	logger = kitlog.With(logger, "design", req.Name)
	sizer, err := NewStructuralSizer(conf, req.SafetyFactor, logger)
	if err != nil {
		return nil, err
	}
	return &Optimizer{conf: conf, req: req, upper: upper, booster: booster, sizer: sizer, logger: logger, monitor: monitor}, nil
}

// Request returns the validated request, with defaults filled in.
func (o *Optimizer) Request() DesignRequest { return o.req }

// Sizer returns the structural sizer of this run.
func (o *Optimizer) Sizer() *StructuralSizer { return o.sizer }

// tier returns the index of the altitude tier of the target.
func (o *Optimizer) tier() int {
	switch h := o.req.TargetAltitude; {
	case h < o.conf.Sizing.SuborbitalLimit:
		return 0
	case h <= o.conf.Sizing.LEOLimit:
		return 1
	}
	return 2
}

var stageNames = []string{"First Stage", "Second Stage", "Third Stage"}

// InitialDesign returns the heuristic first guess, before any structural sizing.
func (o *Optimizer) InitialDesign() (*Rocket, error) {
	sz := o.conf.Sizing
	g0 := o.conf.Physics.G0
	n := o.req.Stages
	tier := o.tier()
	total := o.req.Payload * sz.MassMultipliers[tier]
	base := sz.BaseDiameters[tier]
	if o.req.InitialDiameter > 0 {
		base = o.req.InitialDiameter
	}
	split := sz.Splits[n-1]
	r, err := NewRocket(o.req.Name, o.req.Payload, o.conf)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		stageMass := total * split[i]
		prop := stageMass * sz.PropellantFractions[i]
		d := base * sz.DiameterFactors[i]
		spec := StageSpec{
			Name:           stageNames[i],
			Role:           RoleForPosition(i),
			Propellant:     o.upper,
			DryMass:        stageMass - prop,
			PropellantMass: prop,
			Diameter:       d,
			Length:         d * sz.LengthToDiameter[i],
		}
		carried := o.req.Payload
		for j := i; j < n; j++ {
			carried += total * split[j]
		}
		if i == 0 {
			spec.Propellant = o.booster
			props := o.conf.Catalog.MustLookup(o.booster)
			spec.ThrustSL = sz.LiftoffTWR * carried * g0
			spec.ThrustVac = spec.ThrustSL
			if props.IspSL > 0 {
				spec.ThrustVac = spec.ThrustSL * props.IspVac / props.IspSL
			}
		} else {
			spec.ThrustVac = sz.UpperTWR * carried * g0
		}
		props := o.conf.Catalog.MustLookup(spec.Propellant)
		spec.BurnTime = math.Max(o.conf.Optimizer.MinBurnTime, prop*props.IspVac*g0/spec.ThrustVac)
		if _, err := r.AddStage(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (o *Optimizer) errorRatio(alt float64) float64 {
	return (o.req.TargetAltitude - alt) / o.req.TargetAltitude
}

func (o *Optimizer) record(r *Rocket, it int, phase Phase, est AltitudeEstimate) {
	rec := OptimizationRecord{
		Iteration:        it,
		Phase:            phase,
		Altitude:         est.Altitude,
		TotalMass:        r.TotalMass(),
		DeltaV:           est.DeltaV,
		ErrorRatio:       o.errorRatio(est.Altitude),
		DryMasses:        make([]float64, r.NumStages()),
		PropellantMasses: make([]float64, r.NumStages()),
	}
	for i, s := range r.Stages() {
		rec.DryMasses[i] = s.DryMass()
		rec.PropellantMasses[i] = s.PropellantMass()
	}
	o.history = append(o.history, rec)
	o.logger.Log("level", "info", "subsys", "optim", "phase", phase, "iteration", it, "alt(km)", est.Altitude/1e3, "err", rec.ErrorRatio, "mass(kg)", rec.TotalMass, "Δv(m/s)", rec.DeltaV, "twr", est.TWR)
	if o.monitor != nil {
		o.monitor.ObserveIteration(rec)
	}
}

func (o *Optimizer) warn(msg string) {
	for _, w := range o.warnings {
		if w == msg {
			return
		}
	}
	o.warnings = append(o.warnings, msg)
	o.logger.Log("level", "warning", "subsys", "optim", "message", msg)
}

// Run performs the design run.
func (o *Optimizer) Run() (*DesignReport, error) {
	o.history = nil
	o.warnings = nil
	oc := o.conf.Optimizer
	target := o.req.TargetAltitude

	r, err := o.InitialDesign()
	if err != nil {
		return nil, err
	}
	o.sizer.Size(r)
	est := EstimateAltitude(r, target)
	if est.Infeasible {
		o.warn(est.Warning)
	}
	o.record(r, 0, Initializing, est)

	ld := make([]float64, r.NumStages())
	for i, s := range r.Stages() {
		ld[i] = s.LengthToDiameter()
	}
	best := o.rank(r, est)
	best.rocket = r.Clone()

	status := BudgetExhausted
	adj := oc.AdjustmentFactor
	prevErr := 0.
	iterations := 0
	for it := 1; it <= oc.MaxIterations; it++ {
		errRatio := o.errorRatio(est.Altitude)
		if math.Abs(errRatio) < oc.Tolerance {
			status = Converged
			break
		}
		if it > 1 && (errRatio > 0) != (prevErr > 0) {
			adj *= 0.5
		}
		prevErr = errRatio
		iterations = it
		e := clamp(errRatio, -1, 1)
		for j, s := range r.Stages() {
			s.ApplyAdjustment(Adjustment{PropellantMass: s.PropellantMass() * (1 + e*adj*o.conf.Sizing.Damping[j])})
			if errRatio > oc.LargeUndershoot {
				s.ApplyAdjustment(Adjustment{ThrustScale: oc.ThrustBoost})
			}
		}
		o.sizer.Size(r)
		if it%oc.GeometryEvery == 0 {
			o.reshape(r, ld, errRatio)
		}
		est = EstimateAltitude(r, target)
		if est.Infeasible {
			o.warn(est.Warning)
		}
		o.record(r, it, Converging, est)
		if cur := o.rank(r, est); cur.beats(best) {
			best = cur
			best.rocket = r.Clone()
		}
	}
	if status != Converged && math.Abs(o.errorRatio(est.Altitude)) < oc.Tolerance {
		status = Converged
	}

	if status == Converged {
		steps := o.MinimizeMass(r)
		est = EstimateAltitude(r, target)
		o.record(r, iterations+1, MassMinimizing, est)
		o.logger.Log("level", "info", "subsys", "optim", "phase", MassMinimizing, "steps", steps, "mass(kg)", r.TotalMass())
	} else {
		r = best.rocket
		est = EstimateAltitude(r, target)
		o.warn(fmt.Sprintf("no convergence within %d iterations: best altitude %.0f m for a %.0f m target", oc.MaxIterations, est.Altitude, target))
	}

	rpt := &DesignReport{
		Request:        o.req,
		Rocket:         r,
		Summary:        r.Summary(),
		History:        o.history,
		Status:         status,
		Iterations:     iterations,
		Altitude:       est.Altitude,
		ErrorRatio:     o.errorRatio(est.Altitude),
		Estimate:       est,
		RequiredDeltaV: o.conf.RequiredDeltaV(target),
	}
	if o.VerifyFlight {
		o.verify(rpt)
	}
	rpt.Warnings = o.warnings
	o.logger.Log("level", "notice", "subsys", "optim", "phase", Done, "status", status, "iterations", iterations, "alt(km)", est.Altitude/1e3, "mass(kg)", r.TotalMass(), "Δv(m/s)", est.DeltaV)
	if o.monitor != nil {
		o.monitor.ObserveDesign(rpt)
	}
	return rpt, nil
}

// candidate is a design visited by Run.
type candidate struct {
	rocket   *Rocket
	feasible bool
	absErr   float64
	margin   float64 // m/s over the required delta-v
}

func (o *Optimizer) rank(r *Rocket, est AltitudeEstimate) candidate {
	return candidate{feasible: !est.Infeasible, absErr: math.Abs(o.errorRatio(est.Altitude)), margin: r.DeltaVMargin(o.req.TargetAltitude)}
}

// beats orders the candidates by liftoff feasibility, then altitude error, then delta-v margin.
func (c candidate) beats(b candidate) bool {
	if c.feasible != b.feasible {
		return c.feasible
	}
	if c.absErr != b.absErr {
		return c.absErr < b.absErr
	}
	return c.margin > b.margin
}

// reshape moves the L/D ratio of every stage by the geometry step at constant tank volume:
// shorter on undershoot, longer on overshoot.
func (o *Optimizer) reshape(r *Rocket, ld []float64, errRatio float64) {
	oc := o.conf.Optimizer
	for j, s := range r.Stages() {
		f := ld[j] * (1 + oc.GeometryStep)
		if errRatio > 0 {
			f = ld[j] * (1 - oc.GeometryStep)
		}
		f = clamp(f, oc.MinLengthToDiam, oc.MaxLengthToDiam)
		l := math.Cbrt(4 * s.Volume() * f * f / math.Pi)
		s.ApplyAdjustment(Adjustment{Length: l, Diameter: l / f})
		ld[j] = f
	}
}

// MinimizeMass trims each stage's propellant in small steps while the estimate stays above the minimum fraction
// of the target and the mass ratio within its limit. The step that breaks either is reverted.
// The structure is resized at the end. Returns the number of kept steps.
func (o *Optimizer) MinimizeMass(r *Rocket) int {
	oc := o.conf.Optimizer
	target := o.req.TargetAltitude
	kept := 0
	for _, s := range r.Stages() {
		for k := 0; k < oc.MinimizeSteps; k++ {
			prev := s.Clone()
			s.ApplyAdjustment(Adjustment{PropellantMass: s.PropellantMass() * (1 - oc.MinimizeStep)})
			est := EstimateAltitude(r, target)
			if est.Altitude < oc.MinimizeAltitude*target || s.MassRatio() > oc.MaxMassRatio {
				s.restore(prev)
				break
			}
			kept++
		}
	}
	o.sizer.Size(r)
	return kept
}

// verify simulates the final design and records the disagreement with the estimate.
func (o *Optimizer) verify(rpt *DesignReport) {
	sim := NewSimulator(o.conf, o.logger)
	tr, err := sim.SimulateRocket(rpt.Rocket)
	if err != nil {
		o.warn(fmt.Sprintf("flight verification failed: %s", err))
		return
	}
	rpt.Flight = &tr.Summary
	ratio := 0.
	if rpt.Altitude > 0 {
		ratio = tr.Summary.Apogee / rpt.Altitude
	}
	o.logger.Log("level", "notice", "subsys", "optim", "estimate(m)", rpt.Altitude, "flight(m)", tr.Summary.Apogee, "ratio", ratio)
}

// Segments returns the segment list of the designed vehicle, walls sized with the design safety factor.
func (rpt *DesignReport) Segments() ([]Segment, error) {
	if rpt.Rocket == nil {
		return nil, ErrNoStages
	}
	sizer, err := NewStructuralSizer(rpt.Rocket.Config(), rpt.Request.SafetyFactor, nil)
	if err != nil {
		return nil, err
	}
	return Segments(rpt.Rocket, sizer), nil
}

// Design runs the optimizer with the default configuration.
func Design(target, payload float64, propellant string, stages int, initialDiameter, safetyFactor float64) (*Rocket, []OptimizationRecord, error) {
	o, err := NewOptimizer(DefaultConfig(), DesignRequest{
		TargetAltitude:  target,
		Payload:         payload,
		Propellant:      propellant,
		Stages:          stages,
		InitialDiameter: initialDiameter,
		SafetyFactor:    safetyFactor,
	}, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	rpt, err := o.Run()
	if err != nil {
		return nil, nil, err
	}
	return rpt.Rocket, rpt.History, nil
}
