package rocket

import (
	"fmt"
	"sort"
	"strings"
)

// Propellant defines an enum of propellant combinations.
type Propellant uint8

const (
	// LOXLH2 is liquid oxygen and liquid hydrogen.
	LOXLH2 Propellant = iota + 1
	// LOXRP1 is liquid oxygen and rocket grade kerosene.
	LOXRP1
	// HTPB is an ammonium perchlorate composite solid propellant with an HTPB binder.
	HTPB
)

func (p Propellant) String() string {
	switch p {
	case LOXLH2:
		return "LOX/LH2"
	case LOXRP1:
		return "LOX/RP1"
	case HTPB:
		return "HTPB"
	}
	panic("cannot stringify unknown propellant")
}

// PropellantFromString returns the propellant from its name, case insensitive.
func PropellantFromString(name string) (Propellant, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "LOX/LH2", "LOXLH2":
		return LOXLH2, nil
	case "LOX/RP1", "LOXRP1", "LOX/RP-1":
		return LOXRP1, nil
	case "HTPB":
		return HTPB, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPropellant, name)
}

// PropellantProperties stores the thermochemical properties of a propellant combination.
type PropellantProperties struct {
	Name               string
	IspVac, IspSL      float64 // s
	Density            float64 // kg/m^3, bulk
	MixtureRatio       float64 // O/F by mass, zero for solids
	ChamberTemperature float64 // K
	ChamberPressure    float64 // Pa
	Gamma              float64
	Cryogenic          bool // Oxygen-bearing cryogenic tanks are run at a higher pressure.
}

// Validate returns an error if the properties are not physical.
func (p PropellantProperties) Validate() error {
	switch {
	case p.Gamma <= 1:
		return fmt.Errorf("%s: gamma must be greater than 1", p.Name)
	case p.IspSL < 0 || p.IspVac < p.IspSL:
		return fmt.Errorf("%s: isp must satisfy isp_vac >= isp_sl >= 0", p.Name)
	case p.Density <= 0 || p.ChamberPressure <= 0:
		return fmt.Errorf("%s: density and chamber pressure must be positive", p.Name)
	}
	return nil
}

// ExhaustVelocity returns the vacuum effective exhaust velocity.
func (p PropellantProperties) ExhaustVelocity(g0 float64) float64 {
	return p.IspVac * g0
}

// Catalog is an immutable lookup of propellant properties.
type Catalog struct {
	props map[Propellant]PropellantProperties
}

// NewCatalog returns a new catalog after validating every entry.
func NewCatalog(entries map[Propellant]PropellantProperties) (Catalog, error) {
	props := make(map[Propellant]PropellantProperties, len(entries))
	for k, p := range entries {
		if err := p.Validate(); err != nil {
			return Catalog{}, err
		}
		props[k] = p
	}
	return Catalog{props}, nil
}

// DefaultCatalog returns the catalog of the reference propellants.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(map[Propellant]PropellantProperties{
		LOXLH2: {"LOX/LH2", 450, 370, 360, 5.5, 3200, 6.9e6, 1.26, true},
		LOXRP1: {"LOX/RP1", 340, 280, 1030, 2.56, 3670, 7.6e6, 1.22, true},
		HTPB:   {"HTPB", 280, 250, 1700, 0, 3400, 6.2e6, 1.18, false},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the properties of the given propellant.
func (c Catalog) Lookup(p Propellant) (PropellantProperties, error) {
	props, ok := c.props[p]
	if !ok {
		return PropellantProperties{}, fmt.Errorf("%w: %d", ErrUnknownPropellant, p)
	}
	return props, nil
}

// MustLookup is the same as Lookup but panics on unknown propellants.
func (c Catalog) MustLookup(p Propellant) PropellantProperties {
	props, err := c.Lookup(p)
	if err != nil {
		panic(err)
	}
	return props
}

// Propellants returns the catalogued propellants in enum order.
func (c Catalog) Propellants() []Propellant {
	out := make([]Propellant, 0, len(c.props))
	for p := range c.props {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
