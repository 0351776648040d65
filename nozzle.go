package rocket

import "math"

const (
	nozzleHalfAngle  = 15 * deg2rad
	divergenceFactor = 0.98 // 15° conical divergence loss
	bellFraction     = 0.8
)

// Nozzle stores the nozzle geometry derived from the vacuum thrust and chamber conditions.
type Nozzle struct {
	ExpansionRatio    float64 `json:"expansion_ratio"`
	ThrustCoefficient float64 `json:"thrust_coefficient"`
	ThroatArea        float64 `json:"throat_area"`     // m^2
	ThroatDiameter    float64 `json:"throat_diameter"` // m
	ExitArea          float64 `json:"exit_area"`       // m^2
	ExitDiameter      float64 `json:"exit_diameter"`   // m
	Length            float64 `json:"length"`          // m
}

// SizeNozzle returns the nozzle of a stage with the given role, propellant and vacuum thrust.
// A zero vacuum thrust yields a zero throat area: callers must guard divisions by it.
func SizeNozzle(role StageRole, props PropellantProperties, thrustVac float64) Nozzle {
	ε := role.ExpansionRatio()
	n := Nozzle{ExpansionRatio: ε, ThrustCoefficient: ThrustCoefficient(props.Gamma, ε)}
	if thrustVac <= 0 || n.ThrustCoefficient <= 0 {
		return n
	}
	n.ThroatArea = thrustVac / (n.ThrustCoefficient * props.ChamberPressure)
	n.ThroatDiameter = diameterFromArea(n.ThroatArea)
	n.ExitArea = n.ThroatArea * ε
	n.ExitDiameter = diameterFromArea(n.ExitArea)
	n.Length = bellFraction * (n.ExitDiameter - n.ThroatDiameter) / (2 * math.Tan(nozzleHalfAngle))
	return n
}

// ThrustCoefficient returns the vacuum thrust coefficient of an ideal nozzle of area ratio ε,
// corrected for the divergence loss.
func ThrustCoefficient(γ, ε float64) float64 {
	pr := ExitPressureRatio(γ, ε)
	g1 := γ - 1
	momentum := math.Sqrt(2 * γ * γ / g1 * math.Pow(2/(γ+1), (γ+1)/g1) * (1 - math.Pow(pr, g1/γ)))
	return divergenceFactor * (momentum + pr*ε)
}

// ExitPressureRatio returns pe/pc for the supersonic solution of the isentropic area ratio ε.
func ExitPressureRatio(γ, ε float64) float64 {
	M := ExitMach(γ, ε)
	return math.Pow(1+(γ-1)/2*M*M, -γ/(γ-1))
}

// ExitMach solves the area-Mach relation for the supersonic branch by bisection.
func ExitMach(γ, ε float64) float64 {
	if ε <= 1 {
		return 1
	}
	area := func(M float64) float64 {
		return 1 / M * math.Pow(2/(γ+1)*(1+(γ-1)/2*M*M), (γ+1)/(2*(γ-1)))
	}
	lo, hi := 1., 2.
	for area(hi) < ε {
		hi *= 2
	}
	for i := 0; i < 100 && hi-lo > 1e-12; i++ {
		mid := (lo + hi) / 2
		if area(mid) < ε {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
