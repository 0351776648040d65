package rocket

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the full set of physical constants and heuristics used by the engine.
// It is a plain value: every component receives its own copy.
type Config struct {
	Physics    PhysicsConfig    `mapstructure:"physics"`
	Atmosphere AtmosphereConfig `mapstructure:"atmosphere"`
	Structure  StructureConfig  `mapstructure:"structure"`
	Sizing     SizingConfig     `mapstructure:"sizing"`
	Estimate   EstimateConfig   `mapstructure:"estimate"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer"`
	Flight     FlightConfig     `mapstructure:"flight"`
	Payload    PayloadConfig    `mapstructure:"payload"`
	Catalog    Catalog          `mapstructure:"-"`
}

// PhysicsConfig holds the planetary constants.
type PhysicsConfig struct {
	G0          float64 `mapstructure:"g0"`           // m/s^2
	EarthRadius float64 `mapstructure:"earth_radius"` // m
}

// Mu returns the gravitational parameter g0·R².
func (p PhysicsConfig) Mu() float64 {
	return p.G0 * p.EarthRadius * p.EarthRadius
}

// AtmosphereConfig defines the exponential atmosphere.
type AtmosphereConfig struct {
	SeaLevelPressure    float64 `mapstructure:"sea_level_pressure"` // Pa
	SeaLevelDensity     float64 `mapstructure:"sea_level_density"`  // kg/m^3
	GasConstant         float64 `mapstructure:"gas_constant"`       // J/(kg K)
	Gamma               float64 `mapstructure:"gamma"`
	PressureScaleHeight float64 `mapstructure:"pressure_scale_height"` // m
	DensityScaleHeight  float64 `mapstructure:"density_scale_height"`  // m
}

// StructureConfig defines the material and load assumptions of the structural sizer.
type StructureConfig struct {
	YieldStrength      float64 `mapstructure:"yield_strength"`  // Pa
	MaterialDensity    float64 `mapstructure:"material_density"` // kg/m^3
	CryogenicPressure  float64 `mapstructure:"cryogenic_pressure"`
	StoragePressure    float64 `mapstructure:"storage_pressure"`
	AxialLoadFactor    float64 `mapstructure:"axial_load_factor"` // in g0
	MinThickness       float64 `mapstructure:"min_thickness"`     // m
	MinThicknessRatio  float64 `mapstructure:"min_thickness_ratio"`
	TankLengthFraction float64 `mapstructure:"tank_length_fraction"`
	BoosterEngine      float64 `mapstructure:"booster_engine"` // fraction of propellant mass
	UpperEngine        float64 `mapstructure:"upper_engine"`
	Avionics           float64 `mapstructure:"avionics"` // fraction of stage mass
	BoosterStructure   float64 `mapstructure:"booster_structure"`
	UpperStructure     float64 `mapstructure:"upper_structure"`
	Margin             float64 `mapstructure:"margin"`
	MassFloor          float64 `mapstructure:"mass_floor"` // kg
}

// SizingConfig holds the rules of thumb used for the initial guess.
// Per-stage slices are indexed by stage position from liftoff.
type SizingConfig struct {
	SuborbitalLimit     float64     `mapstructure:"suborbital_limit"` // m, exclusive
	LEOLimit            float64     `mapstructure:"leo_limit"`        // m, inclusive
	MassMultipliers     []float64   `mapstructure:"mass_multipliers"` // suborbital, LEO, beyond
	BaseDiameters       []float64   `mapstructure:"base_diameters"`
	Splits              [][]float64 `mapstructure:"splits"` // by stage count - 1
	PropellantFractions []float64   `mapstructure:"propellant_fractions"`
	DiameterFactors     []float64   `mapstructure:"diameter_factors"`
	LengthToDiameter    []float64   `mapstructure:"length_to_diameter"`
	Damping             []float64   `mapstructure:"damping"`
	LiftoffTWR          float64     `mapstructure:"liftoff_twr"`
	UpperTWR            float64     `mapstructure:"upper_twr"`
}

// EstimateConfig defines the fast altitude estimate.
type EstimateConfig struct {
	MinTWR            float64 `mapstructure:"min_twr"`
	GravityLoss       float64 `mapstructure:"gravity_loss"`  // m/s at TWR 1.5
	DragLoss          float64 `mapstructure:"drag_loss"`     // m/s at fineness 3 and 3 m diameter
	OrbitalVelocity   float64 `mapstructure:"orbital_velocity"`
	AtmosphericFactor float64 `mapstructure:"atmospheric_factor"`
	OrbitalThreshold  float64 `mapstructure:"orbital_threshold"` // m
	InsertionMargin   float64 `mapstructure:"insertion_margin"`  // m/s
	EscapeAltitude    float64 `mapstructure:"escape_altitude"`   // m
	FairingMargin     float64 `mapstructure:"fairing_margin"`
}

// OptimizerConfig defines the convergence loop.
type OptimizerConfig struct {
	MaxIterations     int     `mapstructure:"max_iterations"`
	Tolerance         float64 `mapstructure:"tolerance"`
	AdjustmentFactor  float64 `mapstructure:"adjustment_factor"`
	LargeUndershoot   float64 `mapstructure:"large_undershoot"`
	ThrustBoost       float64 `mapstructure:"thrust_boost"`
	GeometryEvery     int     `mapstructure:"geometry_every"`
	GeometryStep      float64 `mapstructure:"geometry_step"`
	MinLengthToDiam   float64 `mapstructure:"min_length_to_diameter"`
	MaxLengthToDiam   float64 `mapstructure:"max_length_to_diameter"`
	MinimizeStep      float64 `mapstructure:"minimize_step"`
	MinimizeSteps     int     `mapstructure:"minimize_steps"`
	MinimizeAltitude  float64 `mapstructure:"minimize_altitude"` // fraction of the target
	MaxMassRatio      float64 `mapstructure:"max_mass_ratio"`
	MinDiameter       float64 `mapstructure:"min_diameter"`
	MinLength         float64 `mapstructure:"min_length"`
	MinBurnTime       float64 `mapstructure:"min_burn_time"`
	DefaultSafety     float64 `mapstructure:"default_safety_factor"`
	UpperPropellant   string  `mapstructure:"upper_propellant"`
	BoosterPropellant string  `mapstructure:"booster_propellant"`
}

// FlightConfig defines the trajectory integration.
type FlightConfig struct {
	MaxTime   float64 `mapstructure:"max_time"` // s
	MaxStep   float64 `mapstructure:"max_step"` // s
	RelTol    float64 `mapstructure:"rel_tol"`
	AbsTol    float64 `mapstructure:"abs_tol"`
	FixedStep float64 `mapstructure:"fixed_step"` // s, RK4 mode
}

// PayloadConfig defines the payload capacity search.
type PayloadConfig struct {
	Start          float64 `mapstructure:"start"`    // kg
	Step           float64 `mapstructure:"step"`     // kg
	MinStep        float64 `mapstructure:"min_step"` // kg
	Band           float64 `mapstructure:"band"`     // fraction of the target
	FloorAltitude  float64 `mapstructure:"floor_altitude"`
	MaxEvaluations int     `mapstructure:"max_evaluations"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Physics: PhysicsConfig{G0: 9.81, EarthRadius: 6371000},
		Atmosphere: AtmosphereConfig{
			SeaLevelPressure:    101325,
			SeaLevelDensity:     1.225,
			GasConstant:         287.05,
			Gamma:               1.4,
			PressureScaleHeight: 7500,
			DensityScaleHeight:  7000,
		},
		Structure: StructureConfig{
			YieldStrength:      270e6,
			MaterialDensity:    2700,
			CryogenicPressure:  3e5,
			StoragePressure:    2e5,
			AxialLoadFactor:    5,
			MinThickness:       0.002,
			MinThicknessRatio:  0.004,
			TankLengthFraction: 0.8,
			BoosterEngine:      0.03,
			UpperEngine:        0.02,
			Avionics:           0.01,
			BoosterStructure:   0.04,
			UpperStructure:     0.03,
			Margin:             1.08,
			MassFloor:          100,
		},
		Sizing: SizingConfig{
			SuborbitalLimit:     100e3,
			LEOLimit:            400e3,
			MassMultipliers:     []float64{20, 30, 50},
			BaseDiameters:       []float64{1.5, 3.7, 8.4},
			Splits:              [][]float64{{1}, {0.8, 0.2}, {0.75, 0.2, 0.05}},
			PropellantFractions: []float64{0.93, 0.90, 0.88},
			DiameterFactors:     []float64{1, 0.9, 0.8},
			LengthToDiameter:    []float64{10, 5, 3},
			Damping:             []float64{1, 0.5, 0.2},
			LiftoffTWR:          1.4,
			UpperTWR:            0.9,
		},
		Estimate: EstimateConfig{
			MinTWR:            1.2,
			GravityLoss:       1500,
			DragLoss:          300,
			OrbitalVelocity:   7800,
			AtmosphericFactor: 0.85,
			OrbitalThreshold:  150e3,
			InsertionMargin:   200,
			EscapeAltitude:    1e9,
			FairingMargin:     0.1,
		},
		Optimizer: OptimizerConfig{
			MaxIterations:     15,
			Tolerance:         0.05,
			AdjustmentFactor:  0.2,
			LargeUndershoot:   0.2,
			ThrustBoost:       1.1,
			GeometryEvery:     3,
			GeometryStep:      0.05,
			MinLengthToDiam:   3,
			MaxLengthToDiam:   12,
			MinimizeStep:      0.02,
			MinimizeSteps:     10,
			MinimizeAltitude:  0.95,
			MaxMassRatio:      10,
			MinDiameter:       0.5,
			MinLength:         1,
			MinBurnTime:       1,
			DefaultSafety:     1.5,
			UpperPropellant:   LOXLH2.String(),
			BoosterPropellant: LOXRP1.String(),
		},
		Flight: FlightConfig{
			MaxTime:   500,
			MaxStep:   1,
			RelTol:    1e-6,
			AbsTol:    1e-6,
			FixedStep: 0.1,
		},
		Payload: PayloadConfig{
			Start:          50,
			Step:           25,
			MinStep:        0.1,
			Band:           0.05,
			FloorAltitude:  1000,
			MaxEvaluations: 2000,
		},
		Catalog: DefaultCatalog(),
	}
}

// setDefaults registers every key of DefaultConfig on v so that a partial file overrides only what it names.
func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("physics.g0", c.Physics.G0)
	v.SetDefault("physics.earth_radius", c.Physics.EarthRadius)

	v.SetDefault("atmosphere.sea_level_pressure", c.Atmosphere.SeaLevelPressure)
	v.SetDefault("atmosphere.sea_level_density", c.Atmosphere.SeaLevelDensity)
	v.SetDefault("atmosphere.gas_constant", c.Atmosphere.GasConstant)
	v.SetDefault("atmosphere.gamma", c.Atmosphere.Gamma)
	v.SetDefault("atmosphere.pressure_scale_height", c.Atmosphere.PressureScaleHeight)
	v.SetDefault("atmosphere.density_scale_height", c.Atmosphere.DensityScaleHeight)

	v.SetDefault("structure.yield_strength", c.Structure.YieldStrength)
	v.SetDefault("structure.material_density", c.Structure.MaterialDensity)
	v.SetDefault("structure.cryogenic_pressure", c.Structure.CryogenicPressure)
	v.SetDefault("structure.storage_pressure", c.Structure.StoragePressure)
	v.SetDefault("structure.axial_load_factor", c.Structure.AxialLoadFactor)
	v.SetDefault("structure.min_thickness", c.Structure.MinThickness)
	v.SetDefault("structure.min_thickness_ratio", c.Structure.MinThicknessRatio)
	v.SetDefault("structure.tank_length_fraction", c.Structure.TankLengthFraction)
	v.SetDefault("structure.booster_engine", c.Structure.BoosterEngine)
	v.SetDefault("structure.upper_engine", c.Structure.UpperEngine)
	v.SetDefault("structure.avionics", c.Structure.Avionics)
	v.SetDefault("structure.booster_structure", c.Structure.BoosterStructure)
	v.SetDefault("structure.upper_structure", c.Structure.UpperStructure)
	v.SetDefault("structure.margin", c.Structure.Margin)
	v.SetDefault("structure.mass_floor", c.Structure.MassFloor)

	v.SetDefault("sizing.suborbital_limit", c.Sizing.SuborbitalLimit)
	v.SetDefault("sizing.leo_limit", c.Sizing.LEOLimit)
	v.SetDefault("sizing.mass_multipliers", c.Sizing.MassMultipliers)
	v.SetDefault("sizing.base_diameters", c.Sizing.BaseDiameters)
	v.SetDefault("sizing.splits", c.Sizing.Splits)
	v.SetDefault("sizing.propellant_fractions", c.Sizing.PropellantFractions)
	v.SetDefault("sizing.diameter_factors", c.Sizing.DiameterFactors)
	v.SetDefault("sizing.length_to_diameter", c.Sizing.LengthToDiameter)
	v.SetDefault("sizing.damping", c.Sizing.Damping)
	v.SetDefault("sizing.liftoff_twr", c.Sizing.LiftoffTWR)
	v.SetDefault("sizing.upper_twr", c.Sizing.UpperTWR)

	v.SetDefault("estimate.min_twr", c.Estimate.MinTWR)
	v.SetDefault("estimate.gravity_loss", c.Estimate.GravityLoss)
	v.SetDefault("estimate.drag_loss", c.Estimate.DragLoss)
	v.SetDefault("estimate.orbital_velocity", c.Estimate.OrbitalVelocity)
	v.SetDefault("estimate.atmospheric_factor", c.Estimate.AtmosphericFactor)
	v.SetDefault("estimate.orbital_threshold", c.Estimate.OrbitalThreshold)
	v.SetDefault("estimate.insertion_margin", c.Estimate.InsertionMargin)
	v.SetDefault("estimate.escape_altitude", c.Estimate.EscapeAltitude)
	v.SetDefault("estimate.fairing_margin", c.Estimate.FairingMargin)

	v.SetDefault("optimizer.max_iterations", c.Optimizer.MaxIterations)
	v.SetDefault("optimizer.tolerance", c.Optimizer.Tolerance)
	v.SetDefault("optimizer.adjustment_factor", c.Optimizer.AdjustmentFactor)
	v.SetDefault("optimizer.large_undershoot", c.Optimizer.LargeUndershoot)
	v.SetDefault("optimizer.thrust_boost", c.Optimizer.ThrustBoost)
	v.SetDefault("optimizer.geometry_every", c.Optimizer.GeometryEvery)
	v.SetDefault("optimizer.geometry_step", c.Optimizer.GeometryStep)
	v.SetDefault("optimizer.min_length_to_diameter", c.Optimizer.MinLengthToDiam)
	v.SetDefault("optimizer.max_length_to_diameter", c.Optimizer.MaxLengthToDiam)
	v.SetDefault("optimizer.minimize_step", c.Optimizer.MinimizeStep)
	v.SetDefault("optimizer.minimize_steps", c.Optimizer.MinimizeSteps)
	v.SetDefault("optimizer.minimize_altitude", c.Optimizer.MinimizeAltitude)
	v.SetDefault("optimizer.max_mass_ratio", c.Optimizer.MaxMassRatio)
	v.SetDefault("optimizer.min_diameter", c.Optimizer.MinDiameter)
	v.SetDefault("optimizer.min_length", c.Optimizer.MinLength)
	v.SetDefault("optimizer.min_burn_time", c.Optimizer.MinBurnTime)
	v.SetDefault("optimizer.default_safety_factor", c.Optimizer.DefaultSafety)
	v.SetDefault("optimizer.upper_propellant", c.Optimizer.UpperPropellant)
	v.SetDefault("optimizer.booster_propellant", c.Optimizer.BoosterPropellant)

	v.SetDefault("flight.max_time", c.Flight.MaxTime)
	v.SetDefault("flight.max_step", c.Flight.MaxStep)
	v.SetDefault("flight.rel_tol", c.Flight.RelTol)
	v.SetDefault("flight.abs_tol", c.Flight.AbsTol)
	v.SetDefault("flight.fixed_step", c.Flight.FixedStep)

	v.SetDefault("payload.start", c.Payload.Start)
	v.SetDefault("payload.step", c.Payload.Step)
	v.SetDefault("payload.min_step", c.Payload.MinStep)
	v.SetDefault("payload.band", c.Payload.Band)
	v.SetDefault("payload.floor_altitude", c.Payload.FloorAltitude)
	v.SetDefault("payload.max_evaluations", c.Payload.MaxEvaluations)
}

// LoadConfig reads `conf.toml` from dir over the default configuration.
// A missing file is not an error.
func LoadConfig(dir string) (Config, error) {
	def := DefaultConfig()
	v := viper.New()
	setDefaults(v, def)
	v.SetConfigName("conf")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return def, fmt.Errorf("rocket: reading %s/conf.toml: %w", dir, err)
		}
	}
	conf := Config{}
	if err := v.Unmarshal(&conf); err != nil {
		return def, fmt.Errorf("rocket: decoding %s/conf.toml: %w", dir, err)
	}
	conf.Catalog = def.Catalog
	if err := conf.Validate(); err != nil {
		return def, err
	}
	return conf, nil
}

// ConfigFromEnv loads the configuration from the directory in `ROCKET_CONFIG`, or returns the defaults if unset.
func ConfigFromEnv() (Config, error) {
	dir := os.Getenv("ROCKET_CONFIG")
	if dir == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(dir)
}

// Validate checks the values that would otherwise lead to divisions by zero or empty tables.
func (c Config) Validate() error {
	switch {
	case c.Physics.G0 <= 0 || c.Physics.EarthRadius <= 0:
		return errors.New("rocket: physics constants must be positive")
	case c.Atmosphere.PressureScaleHeight <= 0 || c.Atmosphere.DensityScaleHeight <= 0:
		return errors.New("rocket: atmosphere scale heights must be positive")
	case c.Structure.YieldStrength <= 0 || c.Structure.MaterialDensity <= 0:
		return errors.New("rocket: structure material must have positive strength and density")
	case len(c.Sizing.MassMultipliers) != 3 || len(c.Sizing.BaseDiameters) != 3:
		return errors.New("rocket: sizing tiers need three entries")
	case len(c.Sizing.Splits) != 3:
		return errors.New("rocket: sizing splits need one row per stage count")
	case len(c.Sizing.PropellantFractions) < 3 || len(c.Sizing.DiameterFactors) < 3 ||
		len(c.Sizing.LengthToDiameter) < 3 || len(c.Sizing.Damping) < 3:
		return errors.New("rocket: sizing per-stage tables need three entries")
	case c.Optimizer.MaxIterations < 1 || c.Optimizer.GeometryEvery < 1:
		return errors.New("rocket: optimizer iteration counts must be positive")
	case c.Flight.MaxTime <= 0 || c.Flight.MaxStep <= 0 || c.Flight.FixedStep <= 0:
		return errors.New("rocket: flight times must be positive")
	case c.Payload.Step <= 0 || c.Payload.MinStep <= 0 || c.Payload.MaxEvaluations < 1:
		return errors.New("rocket: payload search steps must be positive")
	}
	for i, split := range c.Sizing.Splits {
		if len(split) != i+1 {
			return fmt.Errorf("rocket: split for %d stage(s) has %d entries", i+1, len(split))
		}
	}
	return nil
}
