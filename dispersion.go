package rocket

import (
	"errors"
	"math"
	"math/rand"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat"
	"github.com/gonum/stat/distmv"
)

// Dispersion defines a Monte-Carlo flight campaign. Sigmas are relative 1σ errors.
type Dispersion struct {
	Runs          int     `json:"runs"`
	Seed          int64   `json:"seed"`
	ThrustSigma   float64 `json:"thrust_sigma"`
	BurnTimeSigma float64 `json:"burn_time_sigma"` // Isp-equivalent: the propellant burns for longer at the same thrust
	DragSigma     float64 `json:"drag_sigma"`
	DryMassSigma  float64 `json:"dry_mass_sigma"`
}

// DefaultDispersion returns a campaign of 100 runs with typical preliminary-design uncertainties.
func DefaultDispersion(seed int64) Dispersion {
	return Dispersion{Runs: 100, Seed: seed, ThrustSigma: 0.02, BurnTimeSigma: 0.01, DragSigma: 0.1, DryMassSigma: 0.03}
}

// DispersionResult stores the apogee statistics of a campaign.
type DispersionResult struct {
	Runs    int       `json:"runs"`
	Nominal float64   `json:"nominal"`
	Mean    float64   `json:"mean"`
	StdDev  float64   `json:"std_dev"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Apogees []float64 `json:"apogees"`
}

// minFactor keeps the perturbed quantities physical.
const minFactor = 0.05

// Disperse simulates the nominal profile and then the dispersed ones drawn from a seeded multivariate normal.
func (sim *Simulator) Disperse(p FlightProfile, d Dispersion) (DispersionResult, error) {
	res := DispersionResult{Runs: d.Runs}
	if d.Runs < 1 {
		return res, errors.New("rocket: a dispersion needs at least one run")
	}
	nominal, err := sim.Simulate(p)
	if err != nil {
		return res, err
	}
	res.Nominal = nominal.Summary.Apogee

	σ := []float64{d.ThrustSigma, d.BurnTimeSigma, d.DragSigma, d.DryMassSigma}
	cov := make([]float64, 16)
	for i, s := range σ {
		// A zero sigma would make the covariance singular.
		cov[i*4+i] = math.Max(s*s, 1e-18)
	}
	src := rand.New(rand.NewSource(d.Seed))
	noise, ok := distmv.NewNormal(make([]float64, 4), mat64.NewSymDense(4, cov), src)
	if !ok {
		return res, errors.New("rocket: dispersion covariance is not positive definite")
	}

	res.Apogees = make([]float64, d.Runs)
	for i := 0; i < d.Runs; i++ {
		x := noise.Rand(nil)
		dp := p
		dp.Thrust = p.Thrust * math.Max(minFactor, 1+x[0])
		dp.BurnTime = p.BurnTime * math.Max(minFactor, 1+x[1])
		dp.DragScale = p.dragScale() * math.Max(minFactor, 1+x[2])
		dp.DryMass = p.DryMass * math.Max(minFactor, 1+x[3])
		dp.WetMass = p.WetMass + dp.DryMass - p.DryMass
		tr, err := sim.Simulate(dp)
		if err != nil {
			return res, err
		}
		res.Apogees[i] = tr.Summary.Apogee
	}
	res.Mean, res.StdDev = stat.MeanStdDev(res.Apogees, nil)
	res.Min = floats.Min(res.Apogees)
	res.Max = floats.Max(res.Apogees)
	sim.logger.Log("level", "info", "subsys", "flight", "runs", d.Runs, "nominal(m)", res.Nominal, "mean(m)", res.Mean, "σ(m)", res.StdDev)
	return res, nil
}
