package rocket

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
)

// PayloadQuery is the input of a payload capacity search.
type PayloadQuery struct {
	// Target is the altitude to reach in meters. Zero maximizes the payload above the floor altitude.
	Target float64 `json:"target"`
	// Band is the accepted distance to the target in meters, the configured fraction of the target if zero.
	Band float64 `json:"band"`
}

// PayloadResult is the outcome of a payload capacity search.
type PayloadResult struct {
	MaxPayload         float64 `json:"max_payload"` // kg
	Altitude           float64 `json:"altitude"`    // m, apogee with the max payload
	Target             float64 `json:"target"`      // m, the target or the floor altitude
	AltitudeDifference float64 `json:"altitude_difference"`
	Evaluations        int     `json:"evaluations"`
	Exhausted          bool    `json:"exhausted"` // the evaluation budget ran out before the step converged
}

// RocketSimulator flies a vehicle.
type RocketSimulator interface {
	SimulateRocket(r *Rocket) (*Trajectory, error)
}

// PayloadSolver searches the maximum payload of a vehicle with the flight simulator.
type PayloadSolver struct {
	conf   PayloadConfig
	sim    RocketSimulator
	logger kitlog.Logger
}

// NewPayloadSolver returns a new solver. A nil logger discards the logs.
func NewPayloadSolver(conf Config, logger kitlog.Logger) *PayloadSolver {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &PayloadSolver{conf: conf.Payload, sim: NewSimulator(conf, kitlog.NewNopLogger()), logger: logger}
}

func (ps *PayloadSolver) apogee(r *Rocket, payload float64) (float64, error) {
	if err := r.SetPayload(payload); err != nil {
		return 0, err
	}
	tr, err := ps.sim.SimulateRocket(r)
	if err != nil {
		return 0, err
	}
	return tr.Summary.Apogee, nil
}

// MaxPayload searches the largest payload of r with a decaying step: the payload grows by the step while the trial
// is acceptable and the step halves otherwise, until it falls below the minimum step.
// With a target, a trial within the band is accepted and ends the search, and a trial above the target is accepted.
// Without a target, a trial is accepted while its apogee stays above the floor altitude.
// The vehicle payload is restored on return.
func (ps *PayloadSolver) MaxPayload(r *Rocket, q PayloadQuery) (res PayloadResult, err error) {
	if q.Target < 0 || math.IsNaN(q.Target) {
		return res, fmt.Errorf("%w: payload target %f m", ErrInvalidTarget, q.Target)
	}
	if r.NumStages() == 0 {
		return res, ErrNoStages
	}
	original := r.Payload()
	defer func() {
		r.SetPayload(original)
	}()

	maximize := q.Target == 0
	res.Target = q.Target
	if maximize {
		res.Target = ps.conf.FloorAltitude
	}
	band := q.Band
	if band <= 0 {
		band = ps.conf.Band * res.Target
	}

	cur := ps.conf.Start
	alt, err := ps.apogee(r, cur)
	if err != nil {
		return res, err
	}
	res.Evaluations = 1
	step := ps.conf.Step
	for step >= ps.conf.MinStep && res.Evaluations < ps.conf.MaxEvaluations {
		trial := cur + step
		ta, err := ps.apogee(r, trial)
		if err != nil {
			return res, err
		}
		res.Evaluations++
		ps.logger.Log("level", "debug", "subsys", "payload", "trial(kg)", trial, "apogee(m)", ta, "step(kg)", step)
		switch {
		case maximize && ta >= res.Target:
			cur, alt = trial, ta
		case maximize:
			step /= 2
		case math.Abs(ta-res.Target) <= band:
			cur, alt = trial, ta
			step = 0 // Within the band.
		case ta > res.Target:
			cur, alt = trial, ta
		default:
			step /= 2
		}
	}
	res.Exhausted = step >= ps.conf.MinStep && res.Evaluations >= ps.conf.MaxEvaluations
	res.MaxPayload = cur
	res.Altitude = alt
	res.AltitudeDifference = alt - res.Target
	ps.logger.Log("level", "info", "subsys", "payload", "vehicle", r.Name(), "max(kg)", cur, "apogee(m)", alt, "target(m)", res.Target, "evaluations", res.Evaluations, "exhausted", res.Exhausted)
	return res, nil
}

// MaxPayload searches the maximum payload of r with its own configuration.
func MaxPayload(r *Rocket, q PayloadQuery) (PayloadResult, error) {
	return NewPayloadSolver(r.Config(), nil).MaxPayload(r, q)
}
