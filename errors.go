package rocket

import "errors"

var (
	// ErrInvalidTarget is returned for a non-positive target altitude.
	ErrInvalidTarget = errors.New("rocket: target altitude must be positive")
	// ErrInvalidPayload is returned for a non-positive payload mass.
	ErrInvalidPayload = errors.New("rocket: payload mass must be positive")
	// ErrUnknownPropellant is returned when a propellant name or value is not in the catalog.
	ErrUnknownPropellant = errors.New("rocket: unknown propellant")
	// ErrInvalidStage is returned when a stage is built with non-physical values.
	ErrInvalidStage = errors.New("rocket: invalid stage")
	// ErrStageCount is returned when the requested number of stages is not supported.
	ErrStageCount = errors.New("rocket: stage count must be 1, 2 or 3")
	// ErrInvalidSafetyFactor is returned for a safety factor not above one.
	ErrInvalidSafetyFactor = errors.New("rocket: safety factor must be greater than 1")
	// ErrNoStages is returned when an operation requires at least one stage.
	ErrNoStages = errors.New("rocket: vehicle has no stages")
)
