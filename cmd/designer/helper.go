package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/soniakeys/meeus/v3/julian"

	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
)

// Result stores the outcome of one design of the sweep.
type Result struct {
	no         int
	request    rocket.DesignRequest
	status     rocket.Status
	iterations int
	altitude   float64
	mass       float64
	deltaV     float64
	apogee     float64 // flight verification, -1 if not run
	stages     []rocket.StageSummary
}

// NewResult initializes a result from a design report.
func NewResult(no int, rpt *rocket.DesignReport) Result {
	r := Result{no, rpt.Request, rpt.Status, rpt.Iterations, rpt.Altitude, rpt.Summary.TotalMass, rpt.Summary.DeltaV, -1, rpt.Summary.Stages}
	if rpt.Flight != nil {
		r.apogee = rpt.Flight.Apogee
	}
	return r
}

// CSV returns the CSV of this result
func (r Result) CSV() string {
	rtn := fmt.Sprintf("%d,%q,%d,%f,%f,%s,%d,%f,%f,%f,%f,", r.no, r.request.Name, r.request.Stages, r.request.TargetAltitude, r.request.Payload, r.status, r.iterations, r.altitude, r.mass, r.deltaV, r.apogee)
	for _, s := range r.stages {
		rtn += fmt.Sprintf("%f,%f,%f,%f,", s.DryMass, s.PropellantMass, s.ThrustVac, s.Diameter)
	}
	return strings.TrimSuffix(rtn, ",")
}

// StreamResults is used to stream the results to the output file, sorted by run number once all are received.
func StreamResults(conf rocket.ExportConfig, rsltChan <-chan (Result)) error {
	f, err := os.Create(fmt.Sprintf("%s/%s-results.csv", conf.OutputDir, conf.Filename))
	if err != nil {
		for range rsltChan {
		}
		return err
	}
	defer f.Close()
	var rslts []Result
	maxStages := 0
	for rslt := range rsltChan {
		rslts = append(rslts, rslt)
		if len(rslt.stages) > maxStages {
			maxStages = len(rslt.stages)
		}
	}
	sort.Slice(rslts, func(i, j int) bool { return rslts[i].no < rslts[j].no })
	hdrs := fmt.Sprintf("# Run epoch: %s (JD %f)\n", conf.Epoch.Format(dateFormat), julian.TimeToJD(conf.Epoch))
	hdrs += "no,name,stages,target,payload,status,iterations,altitude,mass,deltaV,apogee"
	for i := 1; i <= maxStages; i++ {
		hdrs += fmt.Sprintf(",dry%d,prop%d,thrust%d,diameter%d", i, i, i, i)
	}
	if _, err := f.WriteString(hdrs + "\n"); err != nil {
		return err
	}
	for _, rslt := range rslts {
		if _, err := f.WriteString(rslt.CSV() + "\n"); err != nil {
			return err
		}
	}
	return nil
}
