package rocket

import (
	"errors"
	"testing"
)

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

func TestCatalog(t *testing.T) {
	cat := DefaultCatalog()
	if len(cat.Propellants()) != 3 {
		t.Fatalf("expected three propellants, got %v", cat.Propellants())
	}
	for i, p := range cat.Propellants() {
		if p != Propellant(i+1) {
			t.Fatalf("propellants not in enum order: %v", cat.Propellants())
		}
		props := cat.MustLookup(p)
		if props.Name != p.String() {
			t.Fatalf("%s: name mismatch %s", p, props.Name)
		}
		if err := props.Validate(); err != nil {
			t.Fatalf("%s: %s", p, err)
		}
	}
	lh2 := cat.MustLookup(LOXLH2)
	if lh2.IspVac != 450 || lh2.IspSL != 370 || lh2.Density != 360 || !lh2.Cryogenic {
		t.Fatalf("incorrect LOX/LH2 properties: %+v", lh2)
	}
	if cat.MustLookup(HTPB).Cryogenic {
		t.Fatal("HTPB is not cryogenic")
	}
	if ve := lh2.ExhaustVelocity(9.81); ve != 450*9.81 {
		t.Fatalf("exhaust velocity %f", ve)
	}
	if _, err := cat.Lookup(Propellant(42)); !errors.Is(err, ErrUnknownPropellant) {
		t.Fatalf("expected an unknown propellant error, got %v", err)
	}
	assertPanic(t, func() {
		cat.MustLookup(Propellant(0))
	})
	assertPanic(t, func() {
		_ = Propellant(9).String()
	})
}

func TestNewCatalogValidates(t *testing.T) {
	_, err := NewCatalog(map[Propellant]PropellantProperties{
		HTPB: {Name: "bad", IspVac: 200, IspSL: 250, Density: 1700, ChamberPressure: 5e6, Gamma: 1.2},
	})
	if err == nil {
		t.Fatal("isp_sl > isp_vac accepted")
	}
	_, err = NewCatalog(map[Propellant]PropellantProperties{
		HTPB: {Name: "bad", IspVac: 280, IspSL: 250, Density: 1700, ChamberPressure: 5e6, Gamma: 1},
	})
	if err == nil {
		t.Fatal("gamma of one accepted")
	}
}

func TestPropellantFromString(t *testing.T) {
	for name, exp := range map[string]Propellant{"LOX/LH2": LOXLH2, "lox/lh2": LOXLH2, " LOX/RP1 ": LOXRP1, "lox/rp-1": LOXRP1, "htpb": HTPB} {
		p, err := PropellantFromString(name)
		if err != nil || p != exp {
			t.Fatalf("%q: got %s (%v)", name, p, err)
		}
	}
	if _, err := PropellantFromString("UDMH/N2O4"); !errors.Is(err, ErrUnknownPropellant) {
		t.Fatalf("expected an unknown propellant error, got %v", err)
	}
}

func TestTextMarshaling(t *testing.T) {
	var p Propellant
	if err := p.UnmarshalText([]byte("LOX/RP1")); err != nil || p != LOXRP1 {
		t.Fatalf("got %s (%v)", p, err)
	}
	if _, err := Propellant(0).MarshalText(); err == nil {
		t.Fatal("marshaled an unknown propellant")
	}
	var r StageRole
	if err := r.UnmarshalText([]byte("Booster")); err != nil || r != RoleBooster {
		t.Fatalf("got %s (%v)", r, err)
	}
	if err := r.UnmarshalText([]byte("payload")); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected an invalid stage error, got %v", err)
	}
	for pos, exp := range map[int]StageRole{-1: RoleGeneric, 0: RoleBooster, 1: RoleSecond, 2: RoleUpper, 5: RoleUpper} {
		if got := RoleForPosition(pos); got != exp {
			t.Fatalf("position %d: got %s", pos, got)
		}
	}
}
