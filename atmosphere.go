package rocket

import "math"

// Atmosphere is an exponential atmosphere with separate pressure and density scale heights.
type Atmosphere struct {
	conf AtmosphereConfig
}

// NewAtmosphere returns the atmosphere described by conf.
func NewAtmosphere(conf AtmosphereConfig) Atmosphere {
	return Atmosphere{conf}
}

// AirState stores the atmospheric conditions at an altitude.
type AirState struct {
	Pressure     float64 // Pa
	Density      float64 // kg/m^3
	Temperature  float64 // K
	SpeedOfSound float64 // m/s
}

// At returns the conditions at altitude h in meters. Negative altitudes return the sea-level values.
func (a Atmosphere) At(h float64) AirState {
	if h < 0 || math.IsNaN(h) {
		h = 0
	}
	p := a.conf.SeaLevelPressure * math.Exp(-h/a.conf.PressureScaleHeight)
	ρ := a.conf.SeaLevelDensity * math.Exp(-h/a.conf.DensityScaleHeight)
	T := p / (ρ * a.conf.GasConstant)
	return AirState{p, ρ, T, math.Sqrt(a.conf.Gamma * a.conf.GasConstant * T)}
}

// DragCoefficient returns the vehicle Cd at the given Mach number: constant subsonic,
// linear rise through the transonic region and a slow supersonic decay.
func DragCoefficient(mach float64) float64 {
	mach = math.Abs(mach)
	switch {
	case mach < 0.8:
		return 0.2
	case mach < 1.2:
		return 0.2 + 0.4*(mach-0.8)/0.4
	}
	return 0.6 - 0.1*math.Min(mach-1.2, 3)/3
}

// Gravity returns the gravitational acceleration at altitude h.
func (p PhysicsConfig) Gravity(h float64) float64 {
	r := p.EarthRadius / (p.EarthRadius + h)
	return p.G0 * r * r
}
