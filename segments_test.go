package rocket

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gonum/floats"
	"gopkg.in/yaml.v3"
)

func referenceSegments(t *testing.T) (*Rocket, []Segment) {
	r := ReferenceThreeStage(DefaultConfig())
	z, err := NewStructuralSizer(r.Config(), 1.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r, Segments(r, z)
}

func TestSegments(t *testing.T) {
	r, segs := referenceSegments(t)
	// Fairing, three stages of body, engine section and nozzle, two interstages and the fins.
	if len(segs) != 1+3*3+2+1 {
		t.Fatalf("%d segments", len(segs))
	}
	names := []string{
		"Payload Fairing",
		"S-IVB Body", "S-IVB Engine Section", "S-IVB Nozzle",
		"Interstage 2/3",
		"S-II Body", "S-II Engine Section", "S-II Nozzle",
		"Interstage 1/2",
		"S-IC Body", "S-IC Engine Section", "S-IC Nozzle",
		"First Stage Fins",
	}
	for i, n := range names {
		if segs[i].Name != n {
			t.Fatalf("#%d: expected %q, got %q", i, n, segs[i].Name)
		}
	}
	fairing := segs[0]
	if fairing.Kind != Cone || fairing.Diameter != 6.6 || !floats.EqualWithinAbs(fairing.Length, 0.15*r.Height(), 1e-9) {
		t.Fatalf("fairing %+v", fairing)
	}
	if segs[4].Kind != Cone || segs[4].Diameter != 10.1 {
		t.Fatalf("the 6.6 m to 10.1 m interstage must be a cone: %+v", segs[4])
	}
	if segs[8].Kind != Tube {
		t.Fatalf("the constant diameter interstage must be a tube: %+v", segs[8])
	}
	z, _ := NewStructuralSizer(r.Config(), 1.5, nil)
	if segs[9].Thickness != z.Thickness(r, 0) || segs[9].Kind != Tube {
		t.Fatalf("booster body %+v", segs[9])
	}
	nz := r.Stage(0).Nozzle()
	if segs[11].Diameter != nz.ExitDiameter || segs[11].Length != nz.Length {
		t.Fatalf("booster nozzle %+v", segs[11])
	}
	if !floats.EqualWithinAbs(segs[9].Length+segs[11].Length, 42, 1e-9) {
		t.Fatal("body and nozzle must span the stage length")
	}
	if fins := segs[12]; fins.Kind != Fins || !strings.Contains(fins.Note, "count=4") {
		t.Fatalf("fins %+v", fins)
	}

	empty, _ := NewRocket("empty", 1, DefaultConfig())
	if Segments(empty, z) != nil {
		t.Fatal("a vehicle without stages has no segments")
	}
}

func TestWriteSegments(t *testing.T) {
	_, segs := referenceSegments(t)

	var buf bytes.Buffer
	if err := WriteSegmentsCSV(&buf, segs); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(segs)+1 || strings.Join(rows[0], ",") != "name,type,length,diameter,thickness,material,comments" {
		t.Fatalf("csv header %v", rows[0])
	}
	if rows[1][1] != "cone" || rows[1][3] != "6600.0" {
		t.Fatalf("fairing row %v", rows[1])
	}

	buf.Reset()
	if err := WriteSegmentsJSON(&buf, segs); err != nil {
		t.Fatal(err)
	}
	var fromJSON []Segment
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != len(segs) || fromJSON[0] != segs[0] {
		t.Fatalf("json %+v", fromJSON[0])
	}
	if !strings.Contains(buf.String(), `"type": "cone"`) {
		t.Fatal("json kind must be serialized as type")
	}

	buf.Reset()
	if err := WriteSegmentsYAML(&buf, segs); err != nil {
		t.Fatal(err)
	}
	var fromYAML []Segment
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != len(segs) || fromYAML[len(segs)-1].Kind != Fins {
		t.Fatalf("yaml %+v", fromYAML)
	}
}
