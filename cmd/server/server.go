package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
	"github.com/IsaiahDupree/two-stage-steam-rocket/metrics"
	"github.com/IsaiahDupree/two-stage-steam-rocket/store"
)

const maxBody = 1 << 20

type server struct {
	conf    rocket.Config
	runs    *store.Store
	metrics *metrics.Collector
	logger  kitlog.Logger
}

// newRouter returns the API routes. The metrics of gatherer are exposed on /metrics.
func newRouter(s *server, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()
	router.Use(s.logRequests, cors)
	router.HandleFunc("/design", s.handleDesign).Methods("POST", "OPTIONS")
	router.HandleFunc("/simulate", s.handleSimulate).Methods("POST", "OPTIONS")
	router.HandleFunc("/payload", s.handlePayload).Methods("POST", "OPTIONS")
	router.HandleFunc("/designs", s.handleList).Methods("GET", "OPTIONS")
	router.HandleFunc("/designs/{id}", s.handleGet).Methods("GET", "OPTIONS")
	router.HandleFunc("/designs/{id}/segments", s.handleSegments).Methods("GET", "OPTIONS")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	return router
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Log("level", "info", "subsys", "http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "took", time.Since(start))
	})
}

// statusOf maps the engine and store errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rocket.ErrInvalidTarget), errors.Is(err, rocket.ErrInvalidPayload),
		errors.Is(err, rocket.ErrUnknownPropellant), errors.Is(err, rocket.ErrInvalidStage),
		errors.Is(err, rocket.ErrStageCount), errors.Is(err, rocket.ErrInvalidSafetyFactor),
		errors.Is(err, rocket.ErrNoStages), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Log("level", "critical", "subsys", "http", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return nil
}

// vehicleRequest selects a vehicle: a reference one by name or explicit stages.
type vehicleRequest struct {
	Reference string             `json:"reference"` // two or three
	Name      string             `json:"name"`
	Payload   float64            `json:"payload"` // kg, overrides the reference payload if set
	Stages    []rocket.StageSpec `json:"stages"`
}

func (v vehicleRequest) vehicle(conf rocket.Config) (*rocket.Rocket, error) {
	var r *rocket.Rocket
	switch strings.ToLower(v.Reference) {
	case "":
		if v.Name == "" {
			v.Name = "Custom"
		}
		return rocket.RocketFromSpecs(v.Name, v.Payload, v.Stages, conf)
	case "two":
		r = rocket.ReferenceTwoStage(conf)
	case "three":
		r = rocket.ReferenceThreeStage(conf)
	default:
		return nil, fmt.Errorf("%w: unknown reference vehicle %q", errBadRequest, v.Reference)
	}
	if v.Payload != 0 {
		if err := r.SetPayload(v.Payload); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type designResponse struct {
	ID     string               `json:"id"`
	Report *rocket.DesignReport `json:"report"`
}

func (s *server) handleDesign(w http.ResponseWriter, r *http.Request) {
	var req rocket.DesignRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	o, err := rocket.NewOptimizer(s.conf, req, s.logger, s.metrics)
	if err != nil {
		s.writeError(w, err)
		return
	}
	o.VerifyFlight = true
	rpt, err := o.Run()
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.runs.SaveDesign(r.Context(), rpt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, designResponse{ID: id, Report: rpt})
}

type simulateRequest struct {
	vehicleRequest
	// Profile is flown as is when set, instead of the vehicle.
	Profile    *rocket.FlightProfile `json:"profile"`
	DesignID   string                `json:"design_id"` // attaches the flight to a stored design run
	Mode       string                `json:"mode"`      // adaptive (default) or rk4
	Step       float64               `json:"step"`      // s, for rk4
	Samples    bool                  `json:"samples"`
	Dispersion *rocket.Dispersion    `json:"dispersion"` // Monte-Carlo campaign around the nominal flight
}

type simulateResponse struct {
	ID         string                    `json:"id"`
	Profile    rocket.FlightProfile      `json:"profile"`
	Summary    rocket.FlightSummary      `json:"summary"`
	Steps      uint64                    `json:"steps"`
	Samples    []rocket.TrajectorySample `json:"samples,omitempty"`
	Dispersion *rocket.DispersionResult  `json:"dispersion,omitempty"`
}

func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var p rocket.FlightProfile
	if req.Profile != nil {
		p = *req.Profile
	} else {
		v, err := req.vehicle(s.conf)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if p, err = rocket.ProfileFromRocket(v); err != nil {
			s.writeError(w, err)
			return
		}
	}
	sim := rocket.NewSimulator(s.conf, s.logger)
	var tr *rocket.Trajectory
	var err error
	switch strings.ToLower(req.Mode) {
	case "", "adaptive":
		tr, err = sim.Simulate(p)
	case "rk4":
		if req.Step <= 0 {
			s.writeError(w, fmt.Errorf("%w: rk4 needs a positive step", errBadRequest))
			return
		}
		tr, err = sim.SimulateFixed(p, req.Step)
	default:
		err = fmt.Errorf("%w: unknown mode %q", errBadRequest, req.Mode)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveFlight(tr.Summary)
	resp := simulateResponse{Profile: tr.Profile, Summary: tr.Summary, Steps: tr.Steps}
	if req.Samples {
		resp.Samples = tr.Samples
	}
	if req.Dispersion != nil {
		res, err := sim.Disperse(p, *req.Dispersion)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %s", errBadRequest, err))
			return
		}
		resp.Dispersion = &res
	}
	if resp.ID, err = s.runs.SaveFlight(r.Context(), req.DesignID, tr); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type payloadRequest struct {
	vehicleRequest
	rocket.PayloadQuery
}

func (s *server) handlePayload(w http.ResponseWriter, r *http.Request) {
	var req payloadRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Payload == 0 {
		// The search sets the payload itself.
		req.Payload = s.conf.Payload.Start
	}
	v, err := req.vehicle(s.conf)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := rocket.NewPayloadSolver(s.conf, s.logger).MaxPayload(v, req.PayloadQuery)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		if limit, err = strconv.Atoi(l); err != nil || limit < 0 {
			s.writeError(w, fmt.Errorf("%w: invalid limit %q", errBadRequest, l))
			return
		}
	}
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *server) handleSegments(w http.ResponseWriter, r *http.Request) {
	segs, err := s.runs.Segments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	var write func(io.Writer, []rocket.Segment) error
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		write = rocket.WriteSegmentsJSON
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		write = rocket.WriteSegmentsCSV
	case "yaml":
		w.Header().Set("Content-Type", "application/yaml")
		write = rocket.WriteSegmentsYAML
	default:
		s.writeError(w, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
		return
	}
	if err := write(w, segs); err != nil {
		s.logger.Log("level", "warning", "subsys", "http", "err", err)
	}
}
