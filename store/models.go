package store

import (
	"time"

	"gorm.io/datatypes"
)

// DesignRun is one persisted optimizer run.
type DesignRun struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Name           string    `json:"name"`
	TargetAltitude float64   `json:"target_altitude"`
	Payload        float64   `json:"payload"`
	Stages         int       `json:"stages"`
	Propellant     string    `json:"propellant"`
	SafetyFactor   float64   `json:"safety_factor"`
	Status         string    `gorm:"index" json:"status"`
	Iterations     int       `json:"iterations"`
	Altitude       float64   `json:"altitude"`
	ErrorRatio     float64   `json:"error_ratio"`
	TotalMass      float64   `json:"total_mass"`
	DeltaV         float64   `json:"delta_v"`
	RequiredDeltaV float64   `json:"required_delta_v"`
	// Apogee is the verification flight apogee, if one was flown.
	Apogee   *float64       `json:"apogee,omitempty"`
	Warnings string         `json:"warnings,omitempty"`
	Report   datatypes.JSON `json:"report,omitempty"`
	Segments datatypes.JSON `json:"-"`

	History []IterationRow `gorm:"foreignKey:DesignRunID" json:"history,omitempty"`
}

// IterationRow is one optimizer record of a design run.
type IterationRow struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	DesignRunID string  `gorm:"index;size:36" json:"-"`
	Iteration   int     `json:"iteration"`
	Phase       string  `json:"phase"`
	Altitude    float64 `json:"altitude"`
	TotalMass   float64 `json:"total_mass"`
	DeltaV      float64 `json:"delta_v"`
	ErrorRatio  float64 `json:"error_ratio"`
}

// FlightRun is one persisted flight simulation, optionally attached to a design run.
type FlightRun struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	DesignRunID *string   `gorm:"index;size:36" json:"design_run_id,omitempty"`

	Thrust   float64 `json:"thrust"`
	BurnTime float64 `json:"burn_time"`
	WetMass  float64 `json:"wet_mass"`
	DryMass  float64 `json:"dry_mass"`
	Diameter float64 `json:"diameter"`

	Apogee          float64 `json:"apogee"`
	ApogeeTime      float64 `json:"apogee_time"`
	MaxVelocity     float64 `json:"max_velocity"`
	MaxAcceleration float64 `json:"max_acceleration"`
	MaxQ            float64 `json:"max_q"`
	MaxQTime        float64 `json:"max_q_time"`
	Steps           int64   `json:"steps"`
}
