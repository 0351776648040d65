package rocket

// ReferenceTwoStageSpecs returns the stages of a medium-lift kerosene two-stage vehicle.
func ReferenceTwoStageSpecs() []StageSpec {
	return []StageSpec{
		{Name: "First Stage", Role: RoleBooster, Propellant: LOXRP1, DryMass: 25000, PropellantMass: 385000, ThrustSL: 7.6e6, ThrustVac: 8.2e6, BurnTime: 162, Diameter: 3.7, Length: 41.2},
		{Name: "Second Stage", Role: RoleSecond, Propellant: LOXRP1, DryMass: 4000, PropellantMass: 90000, ThrustVac: 934000, BurnTime: 397, Diameter: 3.7, Length: 12.6},
	}
}

// ReferenceThreeStageSpecs returns the stages of a heavy-lift three-stage vehicle with hydrogen upper stages.
func ReferenceThreeStageSpecs() []StageSpec {
	return []StageSpec{
		{Name: "S-IC", Role: RoleBooster, Propellant: LOXRP1, DryMass: 131000, PropellantMass: 2159000, ThrustSL: 33.4e6, ThrustVac: 38.7e6, BurnTime: 168, Diameter: 10.1, Length: 42},
		{Name: "S-II", Role: RoleSecond, Propellant: LOXLH2, DryMass: 40100, PropellantMass: 456100, ThrustVac: 5.115e6, BurnTime: 384, Diameter: 10.1, Length: 24.9},
		{Name: "S-IVB", Role: RoleUpper, Propellant: LOXLH2, DryMass: 13300, PropellantMass: 106900, ThrustVac: 1.033e6, BurnTime: 475, Diameter: 6.6, Length: 17.8},
	}
}

// ReferenceTwoStage returns the medium-lift vehicle with a 15 t payload.
func ReferenceTwoStage(conf Config) *Rocket {
	r, err := RocketFromSpecs("Two-Stage Reference", 15000, ReferenceTwoStageSpecs(), conf)
	if err != nil {
		panic(err)
	}
	return r
}

// ReferenceThreeStage returns the heavy-lift vehicle with a 45 t payload.
func ReferenceThreeStage(conf Config) *Rocket {
	r, err := RocketFromSpecs("Three-Stage Reference", 45000, ReferenceThreeStageSpecs(), conf)
	if err != nil {
		panic(err)
	}
	return r
}
