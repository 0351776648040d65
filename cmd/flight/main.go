package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"

	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
)

// This code reads a vehicle from the scenario file and flies it.

const (
	defaultScenario = "~~unset~~"
	dateFormat      = "2006-01-02 15:04:05"
)

var (
	scenario string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "flight scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "really verbose (esp. for configuration)")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("./%s.toml: Error %s", scenario, err)
	}

	conf, err := rocket.ConfigFromEnv()
	if err != nil {
		log.Fatalf("engine configuration: %s", err)
	}
	var logger kitlog.Logger
	if verbose {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	}

	r := readVehicle(conf)
	log.Printf("[info] %s", r)
	exp := rocket.ExportConfig{
		Filename:  viper.GetString("general.fileprefix"),
		OutputDir: viper.GetString("general.outputdir"),
		AsCSV:     viper.GetBool("general.trajectory"),
		Epoch:     time.Now().UTC(),
	}
	if exp.Filename == "" {
		exp.Filename = "flight"
	}
	if viper.IsSet("general.epoch") {
		exp.Epoch = confReadJDEorTime("general.epoch")
	}

	// Flight
	sim := rocket.NewSimulator(conf, logger)
	if viper.IsSet("flight.max_time") {
		sim.MaxTime = viper.GetFloat64("flight.max_time")
	}
	profile, err := rocket.ProfileFromRocket(r)
	if err != nil {
		log.Fatalf("[error] %s", err)
	}
	var tr *rocket.Trajectory
	if viper.GetString("flight.mode") == "rk4" {
		tr, err = sim.SimulateFixed(profile, viper.GetFloat64("flight.step"))
	} else {
		tr, err = sim.Simulate(profile)
	}
	if err != nil {
		log.Fatalf("[error] %s", err)
	}
	log.Printf("[ ok ] %s", tr.Summary)
	if name, err := rocket.ExportTrajectory(exp, tr); err != nil {
		log.Fatalf("[error] %s", err)
	} else if name != "" {
		log.Printf("[info] trajectory written to %s", name)
	}

	// Dispersion
	if viper.IsSet("dispersion.runs") {
		d := rocket.DefaultDispersion(viper.GetInt64("dispersion.seed"))
		d.Runs = viper.GetInt("dispersion.runs")
		for key, σ := range map[string]*float64{"thrust": &d.ThrustSigma, "burn_time": &d.BurnTimeSigma, "drag": &d.DragSigma, "dry_mass": &d.DryMassSigma} {
			if k := fmt.Sprintf("dispersion.%s", key); viper.IsSet(k) {
				*σ = viper.GetFloat64(k)
			}
		}
		res, err := sim.Disperse(profile, d)
		if err != nil {
			log.Fatalf("[error] dispersion: %s", err)
		}
		log.Printf("[ ok ] %d runs: nominal=%.0f m mean=%.0f m σ=%.0f m min=%.0f m max=%.0f m", res.Runs, res.Nominal, res.Mean, res.StdDev, res.Min, res.Max)
	}

	// Payload capacity
	if viper.GetBool("payload.search") {
		q := rocket.PayloadQuery{Target: viper.GetFloat64("payload.target"), Band: viper.GetFloat64("payload.band")}
		res, err := rocket.NewPayloadSolver(conf, logger).MaxPayload(r, q)
		if err != nil {
			log.Fatalf("[error] payload: %s", err)
		}
		log.Printf("[ ok ] max payload %.1f kg to %.0f m (target %.0f m, %d evaluations)", res.MaxPayload, res.Altitude, res.Target, res.Evaluations)
		if res.Exhausted {
			log.Printf("[WARNING] payload search stopped on its evaluation budget")
		}
	}
}

// readVehicle builds the vehicle from either a reference name or the numbered stage tables.
func readVehicle(conf rocket.Config) *rocket.Rocket {
	payload := viper.GetFloat64("vehicle.payload")
	switch ref := viper.GetString("vehicle.reference"); ref {
	case "two":
		r := rocket.ReferenceTwoStage(conf)
		if payload > 0 {
			r.SetPayload(payload)
		}
		return r
	case "three":
		r := rocket.ReferenceThreeStage(conf)
		if payload > 0 {
			r.SetPayload(payload)
		}
		return r
	case "":
	default:
		log.Fatalf("unknown reference vehicle `%s`", ref)
	}
	var specs []rocket.StageSpec
	for stageNo := 0; viper.IsSet(fmt.Sprintf("stage.%d", stageNo)); stageNo++ {
		key := fmt.Sprintf("stage.%d", stageNo)
		prop, err := rocket.PropellantFromString(viper.GetString(key + ".propellant"))
		if err != nil {
			log.Fatalf("%s: %s", key, err)
		}
		spec := rocket.StageSpec{
			Name:           viper.GetString(key + ".name"),
			Role:           rocket.RoleForPosition(stageNo),
			Propellant:     prop,
			DryMass:        viper.GetFloat64(key + ".dry"),
			PropellantMass: viper.GetFloat64(key + ".propellant_mass"),
			ThrustSL:       viper.GetFloat64(key + ".thrust_sl"),
			ThrustVac:      viper.GetFloat64(key + ".thrust_vac"),
			BurnTime:       viper.GetFloat64(key + ".burn_time"),
			Diameter:       viper.GetFloat64(key + ".diameter"),
			Length:         viper.GetFloat64(key + ".length"),
		}
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("Stage %d", stageNo+1)
		}
		specs = append(specs, spec)
		if verbose {
			log.Printf("[conf] %s: %+v", key, spec)
		}
	}
	r, err := rocket.RocketFromSpecs(viper.GetString("vehicle.name"), payload, specs, conf)
	if err != nil {
		log.Fatalf("vehicle: %s", err)
	}
	return r
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
