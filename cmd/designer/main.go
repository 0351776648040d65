package main

import (
	"context"
	"flag"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"

	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/viper"

	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
	"github.com/IsaiahDupree/two-stage-steam-rocket/store"
)

const (
	defaultScenario = "~~unset~~"
	dateFormat      = "2006-01-02 15:04:05"
)

var (
	wg         sync.WaitGroup
	scenario   string
	numCPUs    int
	ultraDebug bool
	cpuChan    chan (bool)
	rsltChan   chan (Result)
	runs       *store.Store
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "designer scenario TOML file")
	flag.IntVar(&numCPUs, "cpus", -1, "number of CPUs to use for the sweep (set to 0 for max CPUs)")
	flag.BoolVar(&ultraDebug, "debug", false, "debug everything (really verbose)")
}

func main() {
	flag.Parse()
	if ultraDebug {
		log.Println("[info] DEBUG is ON")
	} else {
		log.Println("[info] DEBUG is OFF")
	}
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	availableCPUs := runtime.NumCPU()
	if numCPUs <= 0 || numCPUs > availableCPUs {
		numCPUs = availableCPUs
	}
	runtime.GOMAXPROCS(numCPUs)
	log.Printf("[info] running on %d CPUs\n", numCPUs)
	cpuChan = make(chan (bool), numCPUs)

	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("./%s.toml: Error %s", scenario, err)
	}
	sc, err := readScenario()
	if err != nil {
		log.Fatalf("./%s.toml: %s", scenario, err)
	}
	if sc.verbose {
		log.Printf("[conf] %s", sc)
	}

	var logger kitlog.Logger
	if ultraDebug {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	}

	if sc.storeDSN != "" {
		if runs, err = store.Open(sc.storeDSN, logger); err != nil {
			log.Fatalf("[error] run history: %s", err)
		}
		defer runs.Close()
	}

	// Starting the streamer
	rsltChan = make(chan (Result), 10) // Buffered to not loose any data.
	streamed := make(chan error)
	go func() {
		streamed <- StreamResults(sc.export, rsltChan)
	}()

	reqs := sc.requests()
	log.Printf("[info] %d design(s) to run", len(reqs))
	for i, req := range reqs {
		cpuChan <- true
		wg.Add(1)
		go design(sc, i, req, logger)
	}
	wg.Wait()
	close(rsltChan)
	if err := <-streamed; err != nil {
		log.Fatalf("[error] results: %s", err)
	}
	log.Println("[info] Done")
}

// design runs one design request and frees its CPU when done.
func design(sc Scenario, no int, req rocket.DesignRequest, logger kitlog.Logger) {
	defer wg.Done()
	defer func() { <-cpuChan }()

	exp := sc.export
	exp.RunID = runID(no, req)
	var monitors rocket.Monitors
	var history *rocket.HistoryExporter
	if exp.AsCSV {
		history = rocket.NewHistoryExporter(exp)
		monitors = append(monitors, history)
	}
	o, err := rocket.NewOptimizer(sc.conf, req, logger, monitors)
	if err != nil {
		log.Printf("[NOK ] %s: %s", req.Name, err)
		if history != nil {
			history.Wait()
		}
		return
	}
	o.VerifyFlight = sc.verify
	rpt, err := o.Run()
	if history != nil {
		if herr := history.Wait(); herr != nil {
			log.Printf("[error] %s history: %s", req.Name, herr)
		}
	}
	if err != nil {
		log.Printf("[NOK ] %s: %s", req.Name, err)
		return
	}
	if paths, err := rocket.ExportSegments(exp, rocket.Segments(rpt.Rocket, o.Sizer())); err != nil {
		log.Printf("[error] %s segments: %s", req.Name, err)
	} else if sc.verbose && len(paths) > 0 {
		log.Printf("[info] %s segments: %s", req.Name, strings.Join(paths, ", "))
	}
	if runs != nil {
		if id, err := runs.SaveDesign(context.Background(), rpt); err != nil {
			log.Printf("[error] %s run history: %s", req.Name, err)
		} else if sc.verbose {
			log.Printf("[info] %s stored as %s", req.Name, id)
		}
	}
	if rpt.Status == rocket.Converged {
		log.Printf("[ ok ] %s", rpt.Rocket)
	} else {
		log.Printf("[NOK ] %s: %s", req.Name, strings.Join(rpt.Warnings, "; "))
	}
	rsltChan <- NewResult(no, rpt)
}
