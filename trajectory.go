package rocket

import (
	"fmt"
	"math"

	"github.com/ChristopherRabotin/ode"
	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"

	"github.com/IsaiahDupree/two-stage-steam-rocket/integrator"
)

// apogeeEvent is the name of the velocity zero crossing from ascent to descent.
const apogeeEvent = "apogee"

// FlightProfile is the single-burn approximation of a vehicle used by the simulator.
type FlightProfile struct {
	Thrust   float64 `json:"thrust"`    // N, while t <= BurnTime
	BurnTime float64 `json:"burn_time"` // s
	WetMass  float64 `json:"wet_mass"`  // kg
	DryMass  float64 `json:"dry_mass"`  // kg
	Diameter float64 `json:"diameter"`  // m, reference diameter for drag
	// DragScale multiplies the drag coefficient, one if zero.
	DragScale float64 `json:"drag_scale,omitempty"`
}

// ProfileFromRocket combines all stages into a single burn: first stage thrust (vacuum thrust if it has no sea-level rating),
// burn time from the total impulse, wet and dry vehicle masses and the largest diameter.
func ProfileFromRocket(r *Rocket) (FlightProfile, error) {
	if r.NumStages() == 0 {
		return FlightProfile{}, ErrNoStages
	}
	g0 := r.Config().Physics.G0
	s0 := r.Stage(0)
	p := FlightProfile{Thrust: s0.ThrustSL(), WetMass: r.TotalMass(), DryMass: r.DryMass(), Diameter: r.MaxDiameter()}
	if p.Thrust <= 0 {
		p.Thrust = s0.ThrustVac()
	}
	if p.Thrust <= 0 {
		return p, fmt.Errorf("%w: first stage has no thrust", ErrInvalidStage)
	}
	impulse := 0.
	for _, s := range r.Stages() {
		impulse += s.PropellantMass() * s.Properties().IspVac * g0
	}
	p.BurnTime = math.Max(r.Config().Optimizer.MinBurnTime, impulse/p.Thrust)
	return p, nil
}

// ThrustAt returns the thrust at time t.
func (p FlightProfile) ThrustAt(t float64) float64 {
	if t <= p.BurnTime {
		return p.Thrust
	}
	return 0
}

// MassAt returns the linearly depleted mass at time t.
func (p FlightProfile) MassAt(t float64) float64 {
	if t <= p.BurnTime {
		return p.WetMass - (p.WetMass-p.DryMass)*math.Max(0, t)/p.BurnTime
	}
	return p.DryMass
}

// ReferenceArea returns the drag reference area.
func (p FlightProfile) ReferenceArea() float64 {
	return circleArea(p.Diameter)
}

func (p FlightProfile) dragScale() float64 {
	if p.DragScale <= 0 {
		return 1
	}
	return p.DragScale
}

// TrajectorySample is one point of a flight.
type TrajectorySample struct {
	T               float64 `json:"t"`
	Altitude        float64 `json:"altitude"`
	Velocity        float64 `json:"velocity"`
	Acceleration    float64 `json:"acceleration"`
	Mach            float64 `json:"mach"`
	DynamicPressure float64 `json:"dynamic_pressure"`
	Thrust          float64 `json:"thrust"`
	Mass            float64 `json:"mass"`
	Drag            float64 `json:"drag"`
}

// FlightSummary stores the peak values of a flight until the ground impact and when they occurred.
// MaxVelocity and MaxAcceleration are magnitudes.
type FlightSummary struct {
	Apogee              float64 `json:"apogee"`
	ApogeeTime          float64 `json:"apogee_time"`
	MaxVelocity         float64 `json:"max_velocity"`
	MaxVelocityTime     float64 `json:"max_velocity_time"`
	MaxAcceleration     float64 `json:"max_acceleration"`
	MaxAccelerationTime float64 `json:"max_acceleration_time"`
	MaxQ                float64 `json:"max_q"`
	MaxQTime            float64 `json:"max_q_time"`
}

func (s FlightSummary) String() string {
	return fmt.Sprintf("apogee=%.0f m @ %.1f s, vmax=%.0f m/s @ %.1f s, amax=%.1f m/s^2 @ %.1f s, maxQ=%.0f Pa @ %.1f s", s.Apogee, s.ApogeeTime, s.MaxVelocity, s.MaxVelocityTime, s.MaxAcceleration, s.MaxAccelerationTime, s.MaxQ, s.MaxQTime)
}

// Trajectory is the result of a flight simulation.
type Trajectory struct {
	Profile  FlightProfile         `json:"profile"`
	Samples  []TrajectorySample    `json:"samples"`
	Summary  FlightSummary         `json:"summary"`
	Events   []integrator.Crossing `json:"events"`
	Steps    uint64                `json:"steps"`
	Rejected uint64                `json:"rejected"`
}

// Simulator integrates vertical ascents through the exponential atmosphere.
type Simulator struct {
	MaxTime float64 // s, end of the integration
	conf    Config
	atm     Atmosphere
	logger  kitlog.Logger
}

// NewSimulator returns a new simulator. A nil logger discards the logs.
func NewSimulator(conf Config, logger kitlog.Logger) *Simulator {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Simulator{MaxTime: conf.Flight.MaxTime, conf: conf, atm: NewAtmosphere(conf.Atmosphere), logger: logger}
}

// ascent is the integrable state [altitude, vertical velocity] of a flight.
type ascent struct {
	profile   FlightProfile
	sim       *Simulator
	state     []float64
	t         float64
	fixedStep float64 // non zero in fixed-step mode, where the ascent keeps its own clock
	times     []float64
	states    [][]float64
}

func newAscent(sim *Simulator, p FlightProfile, fixedStep float64) *ascent {
	a := &ascent{profile: p, sim: sim, state: []float64{0, 0}, fixedStep: fixedStep}
	a.times = append(a.times, 0)
	a.states = append(a.states, []float64{0, 0})
	return a
}

// GetState gets the state.
func (a *ascent) GetState() []float64 {
	return a.state
}

// SetState sets the next state at time t.
func (a *ascent) SetState(t float64, s []float64) {
	if a.fixedStep > 0 {
		a.t += a.fixedStep
	} else {
		a.t = t
	}
	a.state = s
	a.times = append(a.times, a.t)
	a.states = append(a.states, []float64{s[0], s[1]})
}

// Stop returns whether the flight has reached its maximum time.
func (a *ascent) Stop(t float64) bool {
	return a.t >= a.sim.MaxTime-1e-9
}

// forces returns the thrust, drag (signed along the velocity) and mass at t.
func (a *ascent) forces(t float64, s []float64) (thrust, drag, mass float64, air AirState) {
	air = a.sim.atm.At(s[0])
	v := s[1]
	mach := math.Abs(v) / air.SpeedOfSound
	drag = 0.5 * air.Density * v * v * DragCoefficient(mach) * a.profile.dragScale() * a.profile.ReferenceArea() * sign(v)
	return a.profile.ThrustAt(t), drag, a.profile.MassAt(t), air
}

// Func is the vertical equation of motion.
// In fixed-step mode the integrator times are ignored: thrust and mass are taken at the middle of the current step.
func (a *ascent) Func(t float64, s []float64) []float64 {
	if a.fixedStep > 0 {
		t = a.t + a.fixedStep/2
	}
	return a.derivative(t, s)
}

func (a *ascent) derivative(t float64, s []float64) []float64 {
	thrust, drag, mass, _ := a.forces(t, s)
	return []float64{s[1], (thrust-drag)/mass - a.sim.conf.Physics.Gravity(s[0])}
}

// trajectory post-processes the recorded states up to the ground impact: the states integrated below the ground
// after liftoff are dropped.
func (a *ascent) trajectory() *Trajectory {
	tr := &Trajectory{Profile: a.profile, Samples: make([]TrajectorySample, 0, len(a.times))}
	for i, t := range a.times {
		s := a.states[i]
		if i > 0 && s[0] < 0 {
			break
		}
		thrust, drag, mass, air := a.forces(t, s)
		tr.Samples = append(tr.Samples, TrajectorySample{
			T:               t,
			Altitude:        s[0],
			Velocity:        s[1],
			Acceleration:    a.derivative(t, s)[1],
			Mach:            math.Abs(s[1]) / air.SpeedOfSound,
			DynamicPressure: 0.5 * air.Density * s[1] * s[1],
			Thrust:          thrust,
			Mass:            mass,
			Drag:            math.Abs(drag),
		})
	}
	tr.Summary = summarize(tr.Samples)
	return tr
}

// summarize extracts the apogee and peak values of the samples. The velocity and acceleration peaks are magnitudes.
func summarize(samples []TrajectorySample) FlightSummary {
	n := len(samples)
	alt := make([]float64, n)
	vel := make([]float64, n)
	acc := make([]float64, n)
	q := make([]float64, n)
	for i, s := range samples {
		alt[i] = s.Altitude
		vel[i] = math.Abs(s.Velocity)
		acc[i] = math.Abs(s.Acceleration)
		q[i] = s.DynamicPressure
	}
	var sum FlightSummary
	if n == 0 {
		return sum
	}
	i := floats.MaxIdx(alt)
	sum.Apogee, sum.ApogeeTime = alt[i], samples[i].T
	i = floats.MaxIdx(vel)
	sum.MaxVelocity, sum.MaxVelocityTime = vel[i], samples[i].T
	i = floats.MaxIdx(acc)
	sum.MaxAcceleration, sum.MaxAccelerationTime = acc[i], samples[i].T
	i = floats.MaxIdx(q)
	sum.MaxQ, sum.MaxQTime = q[i], samples[i].T
	return sum
}

// Simulate integrates the flight with the adaptive Dormand-Prince integrator.
// The apogee is located as the downward velocity zero crossing; the integration continues past it.
func (sim *Simulator) Simulate(p FlightProfile) (*Trajectory, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	a := newAscent(sim, p, 0)
	apogee := integrator.Event{
		Name:      apogeeEvent,
		Func:      func(t float64, s []float64) float64 { return s[1] },
		Direction: -1,
	}
	dp := integrator.NewDormandPrince(0, sim.MaxTime, sim.conf.Flight.MaxStep, a, apogee)
	dp.RelTol = sim.conf.Flight.RelTol
	dp.AbsTol = sim.conf.Flight.AbsTol
	steps, tf, err := dp.Solve()
	if err != nil {
		sim.logger.Log("level", "critical", "subsys", "flight", "t", tf, "err", err)
		return nil, fmt.Errorf("rocket: flight integration stopped at %.1f s: %w", tf, err)
	}
	tr := a.trajectory()
	tr.Events = dp.Crossings
	tr.Steps = steps
	tr.Rejected = dp.Rejected
	for _, c := range dp.Crossings {
		if c.Event == apogeeEvent && c.State[0] > tr.Summary.Apogee {
			tr.Summary.Apogee, tr.Summary.ApogeeTime = c.State[0], c.T
			break
		}
	}
	sim.logger.Log("level", "info", "subsys", "flight", "mode", "adaptive", "steps", steps, "rejected", dp.Rejected, "apogee(m)", tr.Summary.Apogee, "t(s)", tr.Summary.ApogeeTime, "maxQ(Pa)", tr.Summary.MaxQ)
	return tr, nil
}

// SimulateFixed integrates the flight with a fixed-step RK4 integrator, for cross-checks.
// The apogee is linearly interpolated between the samples around the velocity sign change.
func (sim *Simulator) SimulateFixed(p FlightProfile, step float64) (*Trajectory, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if step <= 0 {
		step = sim.conf.Flight.FixedStep
	}
	a := newAscent(sim, p, step)
	steps, _, err := ode.NewRK4(0, step, a).Solve() // Blocking.
	if err != nil {
		return nil, fmt.Errorf("rocket: fixed-step flight: %w", err)
	}
	tr := a.trajectory()
	tr.Steps = steps
	for i := 1; i < len(tr.Samples); i++ {
		prev, cur := tr.Samples[i-1], tr.Samples[i]
		if prev.Velocity > 0 && cur.Velocity <= 0 {
			f := prev.Velocity / (prev.Velocity - cur.Velocity)
			tc := prev.T + f*(cur.T-prev.T)
			hc := prev.Altitude + f*(cur.Altitude-prev.Altitude)
			tr.Events = append(tr.Events, integrator.Crossing{Event: apogeeEvent, T: tc, State: []float64{hc, 0}})
		}
	}
	sim.logger.Log("level", "info", "subsys", "flight", "mode", "rk4", "steps", steps, "apogee(m)", tr.Summary.Apogee, "t(s)", tr.Summary.ApogeeTime)
	return tr, nil
}

// SimulateRocket builds the flight profile of r and simulates it.
func (sim *Simulator) SimulateRocket(r *Rocket) (*Trajectory, error) {
	p, err := ProfileFromRocket(r)
	if err != nil {
		return nil, err
	}
	return sim.Simulate(p)
}

// Simulate simulates r with its own configuration.
func Simulate(r *Rocket) (*Trajectory, error) {
	return NewSimulator(r.Config(), nil).SimulateRocket(r)
}

func (p FlightProfile) validate() error {
	switch {
	case p.Thrust < 0 || p.BurnTime <= 0:
		return fmt.Errorf("%w: flight profile needs a positive burn time and non negative thrust", ErrInvalidStage)
	case p.DryMass <= 0 || p.WetMass < p.DryMass:
		return fmt.Errorf("%w: flight profile needs 0 < dry mass <= wet mass", ErrInvalidStage)
	case p.Diameter <= 0:
		return fmt.Errorf("%w: flight profile needs a positive diameter", ErrInvalidStage)
	}
	return nil
}
