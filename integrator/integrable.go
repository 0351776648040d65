package integrator

// Integrable defines something which can be integrated, i.e. has a state vector.
// WARNING: Implementation must manage its own state based on the time provided to SetState.
type Integrable interface {
	GetState() []float64                   // Get the latest state of this integrable.
	SetState(t float64, s []float64)       // Set the state s reached at time t.
	Stop(t float64) bool                   // Return whether to stop the integration at time t.
	Func(t float64, s []float64) []float64 // ODE function from time t and state s, must return a new state.
}

// Event is a scalar function of the state whose zero crossings are located during integration.
type Event struct {
	Name string
	Func func(t float64, s []float64) float64
	// Direction filters crossings: -1 only from positive to negative, +1 only from negative to positive, 0 both.
	Direction int
	// Terminal stops the integration at the first crossing.
	Terminal bool
}

// triggered returns whether g0 -> g1 is a crossing matching the event direction.
func (e Event) triggered(g0, g1 float64) bool {
	switch {
	case g0 > 0 && g1 <= 0:
		return e.Direction <= 0
	case g0 < 0 && g1 >= 0:
		return e.Direction >= 0
	}
	return false
}

// Crossing is a located zero of an Event.
type Crossing struct {
	Event string
	T     float64
	State []float64
}
