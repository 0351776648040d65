package rocket

import (
	"fmt"
	"strings"
)

// StageRole defines the position-dependent role of a stage. It is set at construction.
type StageRole uint8

const (
	// RoleGeneric is a stage with no particular role.
	RoleGeneric StageRole = iota
	// RoleBooster is the first stage, operating from sea level.
	RoleBooster
	// RoleSecond is the second stage.
	RoleSecond
	// RoleUpper is the third or any later stage.
	RoleUpper
)

func (r StageRole) String() string {
	switch r {
	case RoleGeneric:
		return "generic"
	case RoleBooster:
		return "booster"
	case RoleSecond:
		return "second"
	case RoleUpper:
		return "upper"
	}
	panic("cannot stringify unknown stage role")
}

// RoleForPosition returns the role of the stage at the given position from liftoff.
func RoleForPosition(position int) StageRole {
	switch {
	case position == 0:
		return RoleBooster
	case position == 1:
		return RoleSecond
	case position >= 2:
		return RoleUpper
	}
	return RoleGeneric
}

// ExpansionRatio returns the nozzle area ratio used for this role.
func (r StageRole) ExpansionRatio() float64 {
	switch r {
	case RoleBooster:
		return 10
	case RoleSecond:
		return 40
	case RoleUpper:
		return 80
	}
	return 25
}

// MarshalText implements encoding.TextMarshaler.
func (r StageRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *StageRole) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "generic":
		*r = RoleGeneric
	case "booster", "first":
		*r = RoleBooster
	case "second":
		*r = RoleSecond
	case "upper", "third":
		*r = RoleUpper
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidStage, text)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Propellant) MarshalText() ([]byte, error) {
	if p < LOXLH2 || p > HTPB {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPropellant, p)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Propellant) UnmarshalText(text []byte) error {
	v, err := PropellantFromString(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
