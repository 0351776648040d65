package rocket

import (
	"fmt"
	"math"
)

// EstimateModel defines which closed-form model produced an altitude estimate.
type EstimateModel uint8

const (
	// Ballistic is the vertical apex model used for suborbital targets.
	Ballistic EstimateModel = iota + 1
	// Energy is the orbital-energy model used for orbital targets.
	Energy
)

func (m EstimateModel) String() string {
	switch m {
	case Ballistic:
		return "ballistic"
	case Energy:
		return "energy"
	}
	panic("cannot stringify unknown estimate model")
}

// MarshalText implements encoding.TextMarshaler.
func (m EstimateModel) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// AltitudeEstimate is the result of the fast altitude estimate.
type AltitudeEstimate struct {
	Altitude        float64       `json:"altitude"` // m
	TWR             float64       `json:"twr"`
	DeltaV          float64       `json:"delta_v"`
	EffectiveDeltaV float64       `json:"effective_delta_v"`
	GravityLoss     float64       `json:"gravity_loss"`
	DragLoss        float64       `json:"drag_loss"`
	Model           EstimateModel `json:"model"`
	Infeasible      bool          `json:"infeasible"`
	Warning         string        `json:"warning,omitempty"`
}

// EstimateAltitude returns the fast closed-form altitude estimate of r for the given target altitude.
// Targets below the orbital threshold use the ballistic apex model, others the orbital-energy model.
// A liftoff TWR below the minimum yields a zero altitude and a warning.
// Suborbital targets estimated with an orbital effective Δv carry a warning but stay feasible.
func EstimateAltitude(r *Rocket, target float64) AltitudeEstimate {
	conf := r.Config()
	e := conf.Estimate
	est := AltitudeEstimate{DeltaV: r.TotalDeltaV(), TWR: r.LiftoffTWR(), Model: Ballistic}
	if target >= e.OrbitalThreshold {
		est.Model = Energy
	}
	if r.NumStages() == 0 {
		est.Infeasible = true
		est.Warning = ErrNoStages.Error()
		return est
	}
	if est.TWR < e.MinTWR {
		est.Infeasible = true
		est.Warning = fmt.Sprintf("liftoff TWR %.2f is below %.2f: vehicle cannot lift off", est.TWR, e.MinTWR)
		return est
	}
	d := r.Stage(0).Diameter()
	est.GravityLoss = e.GravityLoss * (1.5 / est.TWR)
	est.DragLoss = e.DragLoss * (3 / r.FinenessRatio()) * (d / 3)

	if est.Model == Ballistic {
		est.EffectiveDeltaV = est.DeltaV - est.GravityLoss - est.DragLoss
		if est.EffectiveDeltaV <= 0 {
			return est
		}
		// The apex keeps growing past orbital velocity so that an oversized vehicle reads as an overshoot.
		est.Altitude = est.EffectiveDeltaV * est.EffectiveDeltaV / (2 * conf.Physics.G0) * e.AtmosphericFactor
		if est.EffectiveDeltaV >= e.OrbitalVelocity {
			est.Warning = fmt.Sprintf("effective Δv %.0f m/s is orbital for a %.0f m suborbital target", est.EffectiveDeltaV, target)
		}
		return est
	}

	μ := conf.Physics.Mu()
	R := conf.Physics.EarthRadius
	losses := math.Max(est.GravityLoss+est.DragLoss, e.GravityLoss+e.DragLoss)
	v := est.DeltaV - losses - e.InsertionMargin
	est.EffectiveDeltaV = v
	if v <= 0 {
		return est
	}
	den := 2/R - v*v/μ
	if den <= 0 {
		est.Altitude = e.EscapeAltitude
		return est
	}
	est.Altitude = math.Max(0, 1/den-R)
	return est
}
