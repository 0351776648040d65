package rocket

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SegmentKind is the geometric primitive of a segment.
type SegmentKind string

const (
	// Cone is a truncated cone, the diameter being the largest one.
	Cone SegmentKind = "cone"
	// Tube is a cylinder.
	Tube SegmentKind = "tube"
	// Fins is a fin set, the diameter being the fin height.
	Fins SegmentKind = "fins"
)

// Segment is one geometric element of the vehicle, for CAD and report generators. Dimensions are in meters.
type Segment struct {
	Name      string      `json:"name" yaml:"name"`
	Kind      SegmentKind `json:"type" yaml:"type"`
	Length    float64     `json:"length" yaml:"length"`
	Diameter  float64     `json:"diameter" yaml:"diameter"`
	Thickness float64     `json:"thickness" yaml:"thickness"`
	Material  string      `json:"material" yaml:"material"`
	Note      string      `json:"comments" yaml:"comments"`
}

const (
	fairingFraction    = 0.15
	fairingThickness   = 0.010
	interstageFraction = 0.1
	interstageWall     = 0.015
	engineSectionLen   = 0.050
	engineSectionWall  = 0.030
	nozzleWall         = 0.010
	finLengthFraction  = 0.3
	finHeightFraction  = 0.15
	finWall            = 0.010
	finCount           = 4
)

// Segments returns the geometric segments of r from the nose down: the payload fairing, then for each stage from the top
// the interstage to the stage above, the body, the engine section and the nozzle, and the fins of the first stage.
// The body wall is the thickness from the structural sizer.
func Segments(r *Rocket, sizer *StructuralSizer) []Segment {
	n := r.NumStages()
	if n == 0 {
		return nil
	}
	segs := []Segment{{
		Name:      "Payload Fairing",
		Kind:      Cone,
		Length:    fairingFraction * r.Height(),
		Diameter:  r.Stage(n - 1).Diameter(),
		Thickness: fairingThickness,
		Material:  "composite",
		Note:      fmt.Sprintf("Houses %.0f kg payload", r.Payload()),
	}}
	for i := n - 1; i >= 0; i-- {
		s := r.Stage(i)
		if i < n-1 {
			above := r.Stage(i + 1)
			kind := Tube
			if above.Diameter() != s.Diameter() {
				kind = Cone
			}
			segs = append(segs, Segment{
				Name:      fmt.Sprintf("Interstage %d/%d", i+1, i+2),
				Kind:      kind,
				Length:    interstageFraction * s.Length(),
				Diameter:  math.Max(above.Diameter(), s.Diameter()),
				Thickness: interstageWall,
				Material:  "aluminum",
				Note:      fmt.Sprintf("Connects stages %d and %d", i+1, i+2),
			})
		}
		nz := s.Nozzle()
		segs = append(segs,
			Segment{
				Name:      s.Name() + " Body",
				Kind:      Tube,
				Length:    math.Max(0, s.Length()-nz.Length),
				Diameter:  s.Diameter(),
				Thickness: sizer.Thickness(r, i),
				Material:  "aluminum",
				Note:      fmt.Sprintf("Contains %.0f kg %s", s.PropellantMass(), s.Propellant()),
			},
			Segment{
				Name:      s.Name() + " Engine Section",
				Kind:      Tube,
				Length:    engineSectionLen,
				Diameter:  s.Diameter(),
				Thickness: engineSectionWall,
				Material:  "stainless steel",
				Note:      "Engine mount structure",
			},
			Segment{
				Name:      s.Name() + " Nozzle",
				Kind:      Cone,
				Length:    nz.Length,
				Diameter:  nz.ExitDiameter,
				Thickness: nozzleWall,
				Material:  "inconel",
				Note:      fmt.Sprintf("Expansion ratio: %.1f, Throat diameter: %.1f mm", nz.ExpansionRatio, nz.ThroatDiameter*1e3),
			})
		if i == 0 {
			segs = append(segs, Segment{
				Name:      "First Stage Fins",
				Kind:      Fins,
				Length:    finLengthFraction * s.Length(),
				Diameter:  finHeightFraction * s.Diameter(),
				Thickness: finWall,
				Material:  "titanium",
				Note:      fmt.Sprintf("Aerodynamic stabilizers (count=%d)", finCount),
			})
		}
	}
	return segs
}

// WriteSegmentsCSV writes the segments with their dimensions in millimeters.
func WriteSegmentsCSV(w io.Writer, segs []Segment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "type", "length", "diameter", "thickness", "material", "comments"}); err != nil {
		return err
	}
	mm := func(v float64) string { return strconv.FormatFloat(v*1e3, 'f', 1, 64) }
	for _, s := range segs {
		if err := cw.Write([]string{s.Name, string(s.Kind), mm(s.Length), mm(s.Diameter), mm(s.Thickness), s.Material, s.Note}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSegmentsJSON writes the segments as an indented JSON array, dimensions in meters.
func WriteSegmentsJSON(w io.Writer, segs []Segment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(segs)
}

// WriteSegmentsYAML writes the segments as a YAML sequence, dimensions in meters.
func WriteSegmentsYAML(w io.Writer, segs []Segment) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(segs); err != nil {
		return err
	}
	return enc.Close()
}
