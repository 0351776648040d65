package rocket

import (
	"fmt"
	"math"

	"github.com/gonum/floats"
)

// Rocket is a multistage vehicle: an ordered list of stages from liftoff (index 0) to the final stage, plus a payload.
// Stages are appended and never reordered.
type Rocket struct {
	name    string
	payload float64
	stages  []*Stage
	conf    Config
}

// NewRocket returns a new vehicle without stages.
func NewRocket(name string, payload float64, conf Config) (*Rocket, error) {
	if payload <= 0 || math.IsNaN(payload) {
		return nil, fmt.Errorf("%w: %f kg", ErrInvalidPayload, payload)
	}
	return &Rocket{name: name, payload: payload, conf: conf}, nil
}

// AddStage appends a stage on top of the current ones.
func (r *Rocket) AddStage(spec StageSpec) (*Stage, error) {
	s, err := NewStage(spec, len(r.stages), r.conf)
	if err != nil {
		return nil, err
	}
	r.stages = append(r.stages, s)
	return s, nil
}

// Name returns the name of the vehicle.
func (r *Rocket) Name() string { return r.name }

// Payload returns the payload mass in kg.
func (r *Rocket) Payload() float64 { return r.payload }

// SetPayload changes the payload mass.
func (r *Rocket) SetPayload(payload float64) error {
	if payload <= 0 || math.IsNaN(payload) {
		return fmt.Errorf("%w: %f kg", ErrInvalidPayload, payload)
	}
	r.payload = payload
	return nil
}

// Config returns the configuration the vehicle was built with.
func (r *Rocket) Config() Config { return r.conf }

// Stages returns the stages from liftoff to the final stage.
func (r *Rocket) Stages() []*Stage {
	out := make([]*Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

// Stage returns the i-th stage.
func (r *Rocket) Stage(i int) *Stage { return r.stages[i] }

// NumStages returns the number of stages.
func (r *Rocket) NumStages() int { return len(r.stages) }

// TotalMass returns the liftoff mass: payload and every stage.
func (r *Rocket) TotalMass() float64 {
	m := r.payload
	for _, s := range r.stages {
		m += s.TotalMass()
	}
	return m
}

// DryMass returns the burnout mass: payload and every stage's dry mass.
func (r *Rocket) DryMass() float64 {
	m := r.payload
	for _, s := range r.stages {
		m += s.DryMass()
	}
	return m
}

// MassAbove returns the payload and the wet mass of every stage with an index lower than i.
func (r *Rocket) MassAbove(i int) float64 {
	m := r.payload
	for _, s := range r.stages[:i] {
		m += s.TotalMass()
	}
	return m
}

// CarriedMass returns the payload and the wet mass of stage i and every stage after it.
func (r *Rocket) CarriedMass(i int) float64 {
	m := r.payload
	for _, s := range r.stages[i:] {
		m += s.TotalMass()
	}
	return m
}

// TotalDeltaV walks the stages in burn order, applying the rocket equation to the running vehicle mass
// before and after each burn and dropping each stage's dry mass at separation.
func (r *Rocket) TotalDeltaV() float64 {
	g0 := r.conf.Physics.G0
	m := r.TotalMass()
	dv := 0.
	for _, s := range r.stages {
		m1 := m - s.PropellantMass()
		if m1 <= 0 {
			break
		}
		dv += g0 * s.Properties().IspVac * math.Log(m/m1)
		m = m1 - s.DryMass()
	}
	return finite(dv)
}

// NaiveDeltaV treats the whole vehicle as a single stage with a propellant-weighted Isp.
func (r *Rocket) NaiveDeltaV() float64 {
	props := make([]float64, len(r.stages))
	isps := make([]float64, len(r.stages))
	for i, s := range r.stages {
		props[i] = s.PropellantMass()
		isps[i] = s.Properties().IspVac
	}
	prop := floats.Sum(props)
	if prop <= 0 {
		return 0
	}
	isp := floats.Dot(props, isps) / prop
	m := r.TotalMass()
	return finite(r.conf.Physics.G0 * isp * math.Log(m/(m-prop)))
}

// Height returns the stacked stage length plus the fairing margin.
func (r *Rocket) Height() float64 {
	l := 0.
	for _, s := range r.stages {
		l += s.Length()
	}
	return l * (1 + r.conf.Estimate.FairingMargin)
}

// MaxDiameter returns the largest stage diameter.
func (r *Rocket) MaxDiameter() float64 {
	d := 0.
	for _, s := range r.stages {
		d = math.Max(d, s.Diameter())
	}
	return d
}

// FinenessRatio returns the vehicle height over the first stage diameter.
func (r *Rocket) FinenessRatio() float64 {
	if len(r.stages) == 0 {
		return 0
	}
	return r.Height() / r.stages[0].Diameter()
}

// LiftoffTWR returns the first stage sea-level thrust over the liftoff weight.
func (r *Rocket) LiftoffTWR() float64 {
	if len(r.stages) == 0 {
		return 0
	}
	return r.stages[0].ThrustSL() / (r.TotalMass() * r.conf.Physics.G0)
}

// MassFractions stores the share of the liftoff mass of the payload and of each stage's dry and propellant masses.
type MassFractions struct {
	Payload    float64   `json:"payload"`
	Dry        []float64 `json:"dry"`
	Propellant []float64 `json:"propellant"`
}

// Sum returns the sum of all fractions, which is one up to rounding.
func (f MassFractions) Sum() float64 {
	return f.Payload + floats.Sum(f.Dry) + floats.Sum(f.Propellant)
}

// MassFractions returns the mass fractions of the vehicle.
func (r *Rocket) MassFractions() MassFractions {
	m := r.TotalMass()
	f := MassFractions{Payload: r.payload / m, Dry: make([]float64, len(r.stages)), Propellant: make([]float64, len(r.stages))}
	for i, s := range r.stages {
		f.Dry[i] = s.DryMass() / m
		f.Propellant[i] = s.PropellantMass() / m
	}
	return f
}

// Clone returns a deep copy of the vehicle.
func (r *Rocket) Clone() *Rocket {
	c := &Rocket{name: r.name, payload: r.payload, conf: r.conf, stages: make([]*Stage, len(r.stages))}
	for i, s := range r.stages {
		c.stages[i] = s.Clone()
	}
	return c
}

func (r *Rocket) String() string {
	return fmt.Sprintf("%s: %d stage(s), payload=%.0f kg, mass=%.0f kg, Δv=%.0f m/s, height=%.1f m", r.name, len(r.stages), r.payload, r.TotalMass(), r.TotalDeltaV(), r.Height())
}

// RocketSummary is the exported view of a vehicle.
type RocketSummary struct {
	Name          string         `json:"name" yaml:"name"`
	Payload       float64        `json:"payload" yaml:"payload"`
	TotalMass     float64        `json:"total_mass" yaml:"total_mass"`
	DryMass       float64        `json:"dry_mass" yaml:"dry_mass"`
	Height        float64        `json:"height" yaml:"height"`
	DeltaV        float64        `json:"delta_v" yaml:"delta_v"`
	NaiveDeltaV   float64        `json:"naive_delta_v" yaml:"naive_delta_v"`
	LiftoffTWR    float64        `json:"liftoff_twr" yaml:"liftoff_twr"`
	MassFractions MassFractions  `json:"mass_fractions" yaml:"mass_fractions"`
	Stages        []StageSummary `json:"stages" yaml:"stages"`
}

// Summary returns the exported view of the vehicle.
func (r *Rocket) Summary() RocketSummary {
	sum := RocketSummary{
		Name:          r.name,
		Payload:       r.payload,
		TotalMass:     r.TotalMass(),
		DryMass:       r.DryMass(),
		Height:        r.Height(),
		DeltaV:        r.TotalDeltaV(),
		NaiveDeltaV:   r.NaiveDeltaV(),
		LiftoffTWR:    r.LiftoffTWR(),
		MassFractions: r.MassFractions(),
		Stages:        make([]StageSummary, len(r.stages)),
	}
	for i, s := range r.stages {
		sum.Stages[i] = s.Summary()
	}
	return sum
}

// RocketFromSpecs builds a vehicle from stage specs listed from liftoff.
func RocketFromSpecs(name string, payload float64, specs []StageSpec, conf Config) (*Rocket, error) {
	if len(specs) == 0 {
		return nil, ErrNoStages
	}
	r, err := NewRocket(name, payload, conf)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if _, err := r.AddStage(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}
