package rocket

import (
	"fmt"
	"math"
)

// StageSpec is the construction-time description of a stage.
type StageSpec struct {
	Name           string     `json:"name" yaml:"name"`
	Role           StageRole  `json:"role" yaml:"role"`
	Propellant     Propellant `json:"propellant" yaml:"propellant"`
	DryMass        float64    `json:"dry_mass" yaml:"dry_mass"`               // kg
	PropellantMass float64    `json:"propellant_mass" yaml:"propellant_mass"` // kg
	ThrustSL       float64    `json:"thrust_sl" yaml:"thrust_sl"`             // N, zero if never lit at sea level
	ThrustVac      float64    `json:"thrust_vac" yaml:"thrust_vac"`           // N
	BurnTime       float64    `json:"burn_time" yaml:"burn_time"`             // s
	Diameter       float64    `json:"diameter" yaml:"diameter"`               // m
	Length         float64    `json:"length" yaml:"length"`                   // m
}

// stageLimits are the clamps applied on every adjustment.
type stageLimits struct {
	g0, massFloor, minDiameter, minLength, minBurnTime float64
}

func limitsFromConfig(c Config) stageLimits {
	return stageLimits{
		g0:          c.Physics.G0,
		massFloor:   c.Structure.MassFloor,
		minDiameter: c.Optimizer.MinDiameter,
		minLength:   c.Optimizer.MinLength,
		minBurnTime: c.Optimizer.MinBurnTime,
	}
}

// Stage is a single propulsive stage. Its state changes only through ApplyAdjustment,
// which keeps the derived nozzle geometry in sync with the masses and thrust.
type Stage struct {
	spec     StageSpec
	position int
	props    PropellantProperties
	nozzle   Nozzle
	limits   stageLimits
}

// NewStage returns a new stage at the given position from liftoff.
func NewStage(spec StageSpec, position int, conf Config) (*Stage, error) {
	props, err := conf.Catalog.Lookup(spec.Propellant)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", spec.Name, err)
	}
	switch {
	case spec.DryMass <= 0:
		return nil, fmt.Errorf("%w: %q dry mass must be positive", ErrInvalidStage, spec.Name)
	case spec.PropellantMass < 0:
		return nil, fmt.Errorf("%w: %q propellant mass may not be negative", ErrInvalidStage, spec.Name)
	case spec.ThrustSL < 0 || spec.ThrustVac < 0:
		return nil, fmt.Errorf("%w: %q thrust may not be negative", ErrInvalidStage, spec.Name)
	case spec.BurnTime <= 0:
		return nil, fmt.Errorf("%w: %q burn time must be positive", ErrInvalidStage, spec.Name)
	case spec.Diameter <= 0 || spec.Length <= 0:
		return nil, fmt.Errorf("%w: %q dimensions must be positive", ErrInvalidStage, spec.Name)
	}
	s := &Stage{spec: spec, position: position, props: props, limits: limitsFromConfig(conf)}
	s.resize()
	return s, nil
}

func (s *Stage) resize() {
	s.nozzle = SizeNozzle(s.spec.Role, s.props, s.spec.ThrustVac)
}

// Spec returns a copy of the current stage values.
func (s *Stage) Spec() StageSpec { return s.spec }

// Name returns the stage name.
func (s *Stage) Name() string { return s.spec.Name }

// Position returns the ordinal position of the stage from liftoff.
func (s *Stage) Position() int { return s.position }

// Role returns the stage role.
func (s *Stage) Role() StageRole { return s.spec.Role }

// Propellant returns the propellant of this stage.
func (s *Stage) Propellant() Propellant { return s.spec.Propellant }

// Properties returns the propellant properties of this stage.
func (s *Stage) Properties() PropellantProperties { return s.props }

// DryMass returns the dry mass in kg.
func (s *Stage) DryMass() float64 { return s.spec.DryMass }

// PropellantMass returns the propellant mass in kg.
func (s *Stage) PropellantMass() float64 { return s.spec.PropellantMass }

// ThrustSL returns the sea-level thrust in N.
func (s *Stage) ThrustSL() float64 { return s.spec.ThrustSL }

// ThrustVac returns the vacuum thrust in N.
func (s *Stage) ThrustVac() float64 { return s.spec.ThrustVac }

// BurnTime returns the burn time in seconds.
func (s *Stage) BurnTime() float64 { return s.spec.BurnTime }

// Diameter returns the diameter in meters.
func (s *Stage) Diameter() float64 { return s.spec.Diameter }

// Length returns the length in meters.
func (s *Stage) Length() float64 { return s.spec.Length }

// Nozzle returns the derived nozzle geometry.
func (s *Stage) Nozzle() Nozzle { return s.nozzle }

// TotalMass returns the wet mass of the stage.
func (s *Stage) TotalMass() float64 {
	return s.spec.DryMass + s.spec.PropellantMass
}

// MassRatio returns the wet to dry mass ratio.
func (s *Stage) MassRatio() float64 {
	return s.TotalMass() / s.spec.DryMass
}

// FlowRate returns the propellant mass flow rate in kg/s.
func (s *Stage) FlowRate() float64 {
	return s.spec.PropellantMass / s.spec.BurnTime
}

// DeltaV returns the ideal velocity change of this stage alone, using the vacuum Isp.
func (s *Stage) DeltaV() float64 {
	mr := s.MassRatio()
	if mr <= 1 {
		return 0
	}
	return finite(s.limits.g0 * s.props.IspVac * math.Log(mr))
}

// Volume returns the volume of the stage cylinder.
func (s *Stage) Volume() float64 {
	return circleArea(s.spec.Diameter) * s.spec.Length
}

// LengthToDiameter returns the L/D ratio of the stage.
func (s *Stage) LengthToDiameter() float64 {
	return s.spec.Length / s.spec.Diameter
}

// Adjustment is a change to apply to a stage. Zero values leave the matching quantity unchanged.
type Adjustment struct {
	// PropellantMass is the new propellant mass. The burn time is kept so the thrust follows the flow rate.
	PropellantMass float64
	// DryMass is the new dry mass.
	DryMass float64
	// ThrustScale multiplies both thrust levels and divides the burn time, so the total impulse is unchanged.
	ThrustScale float64
	// Diameter and Length are the new dimensions.
	Diameter, Length float64
	// BurnTime is the new burn time at constant thrust.
	BurnTime float64
}

// ApplyAdjustment applies the adjustment in field order and re-derives the nozzle.
// Masses are floored to the mass floor, the diameter and length to their minimum and the burn time to its minimum.
func (s *Stage) ApplyAdjustment(adj Adjustment) {
	if adj.PropellantMass != 0 {
		prop := math.Max(s.limits.massFloor, adj.PropellantMass)
		if s.spec.PropellantMass > 0 {
			ratio := prop / s.spec.PropellantMass
			s.spec.ThrustVac *= ratio
			s.spec.ThrustSL *= ratio
		}
		s.spec.PropellantMass = prop
	}
	if adj.ThrustScale > 0 && adj.ThrustScale != 1 {
		s.spec.ThrustVac *= adj.ThrustScale
		s.spec.ThrustSL *= adj.ThrustScale
		s.spec.BurnTime = math.Max(s.limits.minBurnTime, s.spec.BurnTime/adj.ThrustScale)
	}
	if adj.DryMass != 0 {
		s.spec.DryMass = math.Max(s.limits.massFloor, adj.DryMass)
	}
	if adj.Diameter != 0 {
		s.spec.Diameter = math.Max(s.limits.minDiameter, adj.Diameter)
	}
	if adj.Length != 0 {
		s.spec.Length = math.Max(s.limits.minLength, adj.Length)
	}
	if adj.BurnTime != 0 {
		s.spec.BurnTime = math.Max(s.limits.minBurnTime, adj.BurnTime)
	}
	s.resize()
}

// Clone returns a deep copy of the stage.
func (s *Stage) Clone() *Stage {
	c := *s
	return &c
}

// restore resets s to a previous clone of itself.
func (s *Stage) restore(prev *Stage) {
	*s = *prev
}

func (s *Stage) String() string {
	return fmt.Sprintf("%s (%s, %s): dry=%.0f kg prop=%.0f kg Fvac=%.0f N tb=%.1f s d=%.2f m L=%.2f m", s.spec.Name, s.spec.Role, s.spec.Propellant, s.spec.DryMass, s.spec.PropellantMass, s.spec.ThrustVac, s.spec.BurnTime, s.spec.Diameter, s.spec.Length)
}

// StageSummary is the exported view of a stage with its derived quantities.
type StageSummary struct {
	StageSpec `yaml:",inline"`
	Position  int     `json:"position" yaml:"position"`
	TotalMass float64 `json:"total_mass" yaml:"total_mass"`
	MassRatio float64 `json:"mass_ratio" yaml:"mass_ratio"`
	FlowRate  float64 `json:"flow_rate" yaml:"flow_rate"`
	DeltaV    float64 `json:"delta_v" yaml:"delta_v"`
	Nozzle    Nozzle  `json:"nozzle" yaml:"nozzle"`
}

// Summary returns the exported view of the stage.
func (s *Stage) Summary() StageSummary {
	return StageSummary{s.spec, s.position, s.TotalMass(), s.MassRatio(), s.FlowRate(), s.DeltaV(), s.nozzle}
}
