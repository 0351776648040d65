package metrics

import (
	"testing"

	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
	"github.com/gonum/floats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorObservesDesign(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	o, err := rocket.NewOptimizer(rocket.DefaultConfig(), rocket.DesignRequest{Name: "hop", TargetAltitude: 100e3, Payload: 200, Stages: 1}, nil, c)
	if err != nil {
		t.Fatal(err)
	}
	o.VerifyFlight = true
	rpt, err := o.Run()
	if err != nil {
		t.Fatal(err)
	}
	if got, exp := testutil.ToFloat64(c.iterations), float64(len(rpt.History)); got != exp {
		t.Fatalf("iterations counter %f != %f records", got, exp)
	}
	if got := testutil.ToFloat64(c.designs.WithLabelValues(rpt.Status.String())); got != 1 {
		t.Fatalf("designs{status=%s} = %f", rpt.Status, got)
	}
	if got := testutil.ToFloat64(c.totalMass); !floats.EqualWithinRel(got, rpt.Summary.TotalMass, 1e-12) {
		t.Fatalf("total mass gauge %f != %f", got, rpt.Summary.TotalMass)
	}
	last := rpt.History[len(rpt.History)-1]
	if got := testutil.ToFloat64(c.errorRatio); got != last.ErrorRatio {
		t.Fatalf("error ratio gauge %f != %f", got, last.ErrorRatio)
	}
	if rpt.Flight == nil {
		t.Fatal("flight verification missing")
	}
	if got := testutil.ToFloat64(c.apogee); got != rpt.Flight.Apogee {
		t.Fatalf("apogee gauge %f != %f", got, rpt.Flight.Apogee)
	}
	if got := testutil.ToFloat64(c.flights); got != 1 {
		t.Fatalf("flights counter %f", got)
	}
}

func TestCollectorObservesFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveFlight(rocket.FlightSummary{Apogee: 1200, MaxQ: 35e3})
	c.ObserveFlight(rocket.FlightSummary{Apogee: 900, MaxQ: 30e3})
	if got := testutil.ToFloat64(c.apogee); got != 900 {
		t.Fatalf("apogee gauge %f", got)
	}
	if got := testutil.ToFloat64(c.maxQ); got != 30e3 {
		t.Fatalf("max Q gauge %f", got)
	}
	if got := testutil.ToFloat64(c.flights); got != 2 {
		t.Fatalf("flights counter %f", got)
	}
	n, err := testutil.GatherAndCount(reg, "rocket_flight_apogee_meters", "rocket_flight_max_q_pascals")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("gathered %d series", n)
	}
}

func TestCollectorDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("registering twice did not panic")
		}
	}()
	NewCollector(reg)
}
