package rocket

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
)

// WallThickness stores the candidate thicknesses of a stage wall, in meters.
type WallThickness struct {
	Hoop, Axial, Minimum float64
	Thickness            float64 // largest of the three
}

// DryMassBreakdown stores the components of a stage dry mass, in kg.
type DryMassBreakdown struct {
	Shell, Engine, Avionics, Structure float64
	Total                              float64 // with margin and floor
}

// StructuralSizer derives wall thicknesses and dry masses from the pressure and acceleration loads.
type StructuralSizer struct {
	conf         StructureConfig
	g0           float64
	atmPressure  float64
	safetyFactor float64
	logger       kitlog.Logger
}

// NewStructuralSizer returns a new sizer. The safety factor must be greater than one.
func NewStructuralSizer(conf Config, safetyFactor float64, logger kitlog.Logger) (*StructuralSizer, error) {
	if !(safetyFactor > 1) {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidSafetyFactor, safetyFactor)
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &StructuralSizer{conf.Structure, conf.Physics.G0, conf.Atmosphere.SeaLevelPressure, safetyFactor, logger}, nil
}

// SafetyFactor returns the safety factor applied to the yield strength.
func (z *StructuralSizer) SafetyFactor() float64 { return z.safetyFactor }

// allowable returns the allowable stress.
func (z *StructuralSizer) allowable() float64 {
	return z.conf.YieldStrength / z.safetyFactor
}

// TankPressure returns the internal pressure of the stage tanks.
func (z *StructuralSizer) TankPressure(s *Stage) float64 {
	if s.Properties().Cryogenic {
		return z.conf.CryogenicPressure
	}
	return z.conf.StoragePressure
}

// ExternalPressure returns the ambient pressure seen by the stage at position i: sea level for the first stage, vacuum otherwise.
func (z *StructuralSizer) ExternalPressure(i int) float64 {
	if i == 0 {
		return z.atmPressure
	}
	return 0
}

// Wall returns the thickness candidates of the i-th stage of r.
// The axial load is the payload and every stage with a lower index, at the axial load factor.
func (z *StructuralSizer) Wall(r *Rocket, i int) WallThickness {
	s := r.Stage(i)
	d := s.Diameter()
	allow := z.allowable()
	Δp := math.Max(0, z.TankPressure(s)-z.ExternalPressure(i))
	w := WallThickness{Hoop: Δp * (d / 2) / allow}
	force := r.MassAbove(i) * z.conf.AxialLoadFactor * z.g0
	w.Axial = (force / circleArea(d)) * (d / 2) / allow
	w.Minimum = math.Max(z.conf.MinThickness, z.conf.MinThicknessRatio*d)
	w.Thickness = math.Max(w.Hoop, math.Max(w.Axial, w.Minimum))
	return w
}

// Thickness returns the sized wall thickness of the i-th stage of r.
func (z *StructuralSizer) Thickness(r *Rocket, i int) float64 {
	return z.Wall(r, i).Thickness
}

// DryMass returns the dry mass build-up of the i-th stage of r, from its current masses.
func (z *StructuralSizer) DryMass(r *Rocket, i int) DryMassBreakdown {
	s := r.Stage(i)
	t := z.Thickness(r, i)
	b := DryMassBreakdown{
		Shell:    2 * math.Pi * (s.Diameter() / 2) * (z.conf.TankLengthFraction * s.Length()) * t * z.conf.MaterialDensity,
		Avionics: z.conf.Avionics * s.TotalMass(),
	}
	if i == 0 {
		b.Engine = z.conf.BoosterEngine * s.PropellantMass()
		b.Structure = z.conf.BoosterStructure * s.DryMass()
	} else {
		b.Engine = z.conf.UpperEngine * s.PropellantMass()
		b.Structure = z.conf.UpperStructure * s.DryMass()
	}
	b.Total = math.Max(z.conf.MassFloor, z.conf.Margin*(b.Shell+b.Engine+b.Avionics+b.Structure))
	return b
}

// Size recomputes the dry mass of every stage of r, from liftoff upward.
func (z *StructuralSizer) Size(r *Rocket) {
	for i, s := range r.Stages() {
		b := z.DryMass(r, i)
		z.logger.Log("level", "debug", "subsys", "struct", "stage", s.Name(), "thickness(mm)", z.Thickness(r, i)*1e3, "dry(kg)", b.Total)
		s.ApplyAdjustment(Adjustment{DryMass: b.Total})
	}
}
