package rocket

import "math"

// CircularVelocity returns the circular orbit velocity at altitude h.
func (p PhysicsConfig) CircularVelocity(h float64) float64 {
	return math.Sqrt(p.Mu() / (p.EarthRadius + h))
}

// RequiredDeltaV returns the ascent delta-v budget to a circular orbit at altitude h:
// orbital velocity, nominal gravity and drag losses and the insertion margin.
func (c Config) RequiredDeltaV(h float64) float64 {
	e := c.Estimate
	return c.Physics.CircularVelocity(h) + e.GravityLoss + e.DragLoss + e.InsertionMargin
}

// DeltaVMargin returns how much the vehicle delta-v exceeds the requirement to reach h.
func (r *Rocket) DeltaVMargin(h float64) float64 {
	return r.TotalDeltaV() - r.conf.RequiredDeltaV(h)
}
