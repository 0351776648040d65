package main

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"

	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
)

// Scenario is a design campaign: a base request swept over targets, payloads, stage counts and diameters.
type Scenario struct {
	base      rocket.DesignRequest
	targets   []float64 // m
	payloads  []float64 // kg
	diameters []float64 // m, zero for the tier diameter
	stages    []int
	verify    bool
	verbose   bool
	storeDSN  string // run history database, none if empty
	export    rocket.ExportConfig
	conf      rocket.Config
}

func (s Scenario) String() string {
	return fmt.Sprintf("%s: targets=%v m payloads=%v kg stages=%v diameters=%v m (epoch %s, output %s)", s.base.Name, s.targets, s.payloads, s.stages, s.diameters, s.export.Epoch.Format(dateFormat), s.export.OutputDir)
}

func readScenario() (sc Scenario, err error) {
	confDir := viper.GetString("general.config")
	if confDir == "" {
		sc.conf, err = rocket.ConfigFromEnv()
	} else {
		sc.conf, err = rocket.LoadConfig(confDir)
	}
	if err != nil {
		return
	}
	sc.verbose = viper.GetBool("general.verbose")
	sc.storeDSN = viper.GetString("general.store")
	sc.export = rocket.ExportConfig{
		Filename:  viper.GetString("general.fileprefix"),
		OutputDir: viper.GetString("general.outputdir"),
		AsCSV:     viper.GetBool("general.history"),
		Segments:  viper.GetBool("general.segments"),
		Timestamp: viper.GetBool("general.timestamp"),
		Epoch:     time.Now().UTC(),
	}
	if viper.IsSet("general.epoch") {
		sc.export.Epoch = confReadJDEorTime("general.epoch")
	}
	if len(sc.export.OutputDir) == 0 {
		sc.export.OutputDir = "./"
	}
	if sc.export.Filename == "" {
		sc.export.Filename = "design"
	}

	sc.base = rocket.DesignRequest{
		Name:            viper.GetString("design.name"),
		TargetAltitude:  viper.GetFloat64("design.target"),
		Payload:         viper.GetFloat64("design.payload"),
		Propellant:      viper.GetString("design.propellant"),
		Stages:          viper.GetInt("design.stages"),
		InitialDiameter: viper.GetFloat64("design.diameter"),
		SafetyFactor:    viper.GetFloat64("design.safety_factor"),
	}
	sc.verify = viper.GetBool("design.verify")

	sc.targets = floatsOr("sweep.targets", sc.base.TargetAltitude)
	sc.payloads = floatsOr("sweep.payloads", sc.base.Payload)
	sc.diameters = floatsOr("sweep.diameters", sc.base.InitialDiameter)
	sc.stages = viper.GetIntSlice("sweep.stages")
	if len(sc.stages) == 0 {
		sc.stages = []int{sc.base.Stages}
	}
	return
}

// floatsOr reads a list of floats at key, or returns the single default value.
func floatsOr(key string, def float64) []float64 {
	raw, ok := viper.Get(key).([]interface{})
	if !ok || len(raw) == 0 {
		return []float64{def}
	}
	vals := make([]float64, 0, len(raw))
	for _, v := range raw {
		switch f := v.(type) {
		case float64:
			vals = append(vals, f)
		case int64:
			vals = append(vals, float64(f))
		default:
			log.Fatalf("could not understand `%s`: %v", key, v)
		}
	}
	return vals
}

// requests returns every combination of the sweep, stage count first.
func (s Scenario) requests() []rocket.DesignRequest {
	var reqs []rocket.DesignRequest
	sweep := len(s.stages)*len(s.targets)*len(s.payloads)*len(s.diameters) > 1
	for _, n := range s.stages {
		for _, h := range s.targets {
			for _, m := range s.payloads {
				for _, d := range s.diameters {
					req := s.base
					req.Stages, req.TargetAltitude, req.Payload, req.InitialDiameter = n, h, m, d
					if req.Name == "" || sweep {
						req.Name = fmt.Sprintf("%s %d-stage %.0f km %.0f kg", s.base.Name, n, h/1e3, m)
						if d > 0 {
							req.Name += fmt.Sprintf(" %.1f m", d)
						}
					}
					reqs = append(reqs, req)
				}
			}
		}
	}
	return reqs
}

// runID names the per-design export files, unique across sweeps written to the same directory.
func runID(no int, req rocket.DesignRequest) string {
	return fmt.Sprintf("%03d-%dst-%.0fkm-%.0fkg-%s", no, req.Stages, req.TargetAltitude/1e3, req.Payload, uuid.NewString()[:8])
}

func confReadJDEorTime(key string) (dt time.Time) {
	jde := viper.GetFloat64(key)
	if jde == 0 {
		var perr error
		dt, perr = time.Parse(dateFormat, viper.GetString(key))
		if perr != nil {
			log.Fatalf("could not understand `%s`: %s", key, perr)
		}
	} else {
		dt = julian.JDToTime(jde)
	}
	return
}
