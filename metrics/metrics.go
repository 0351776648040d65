// Package metrics exposes the design and flight activity as Prometheus metrics.
package metrics

import (
	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector observes optimizer runs and flights. It implements rocket.Monitor.
type Collector struct {
	iterations prometheus.Counter
	errorRatio prometheus.Gauge
	totalMass  prometheus.Gauge
	designs    *prometheus.CounterVec
	apogee     prometheus.Gauge
	maxQ       prometheus.Gauge
	flights    prometheus.Counter
}

// NewCollector returns a collector registered on reg. A nil reg uses the default registerer.
// Registering twice on the same registerer panics, like prometheus.MustRegister.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rocket_optimizer_iterations_total",
			Help: "Optimizer iterations observed, initial design included",
		}),
		errorRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rocket_optimizer_altitude_error_ratio",
			Help: "Relative altitude error of the latest optimizer iteration",
		}),
		totalMass: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rocket_design_total_mass_kg",
			Help: "Liftoff mass of the latest design (in kg)",
		}),
		designs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rocket_designs_total",
				Help: "Finished design runs by status",
			},
			[]string{"status"},
		),
		apogee: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rocket_flight_apogee_meters",
			Help: "Apogee of the latest simulated flight (in m)",
		}),
		maxQ: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rocket_flight_max_q_pascals",
			Help: "Maximum dynamic pressure of the latest simulated flight (in Pa)",
		}),
		flights: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rocket_flights_total",
			Help: "Simulated flights",
		}),
	}
	reg.MustRegister(c.iterations, c.errorRatio, c.totalMass, c.designs, c.apogee, c.maxQ, c.flights)
	return c
}

// ObserveIteration implements the rocket.Monitor interface.
func (c *Collector) ObserveIteration(rec rocket.OptimizationRecord) {
	c.iterations.Inc()
	c.errorRatio.Set(rec.ErrorRatio)
	c.totalMass.Set(rec.TotalMass)
}

// ObserveDesign implements the rocket.Monitor interface.
func (c *Collector) ObserveDesign(rpt *rocket.DesignReport) {
	c.designs.WithLabelValues(rpt.Status.String()).Inc()
	c.totalMass.Set(rpt.Summary.TotalMass)
	if rpt.Flight != nil {
		c.ObserveFlight(*rpt.Flight)
	}
}

// ObserveFlight records the summary of a simulated flight.
func (c *Collector) ObserveFlight(s rocket.FlightSummary) {
	c.flights.Inc()
	c.apogee.Set(s.Apogee)
	c.maxQ.Set(s.MaxQ)
}
