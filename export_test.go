package rocket

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExportConfig(t *testing.T) {
	if !(ExportConfig{Filename: "x"}).IsUseless() {
		t.Fatal("config without outputs must be useless")
	}
	conf := ExportConfig{Filename: "leo", OutputDir: "/tmp/out", RunID: "abc", AsCSV: true}
	if conf.IsUseless() {
		t.Fatal("csv config is not useless")
	}
	if p := conf.path("history", "csv"); p != "/tmp/out/history-leo-abc.csv" {
		t.Fatalf("path %s", p)
	}
	conf.Epoch = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if h := conf.header("records"); !strings.Contains(h, "# Run epoch (JD): 2451545.000000") || !strings.HasSuffix(h, "# records\n") {
		t.Fatalf("header:\n%s", h)
	}
}

func TestHistoryExporter(t *testing.T) {
	dir := t.TempDir()
	conf := ExportConfig{Filename: "leo", OutputDir: dir, AsCSV: true}
	h := NewHistoryExporter(conf)
	mon := Monitors{h, &recorder{}}
	o, err := NewOptimizer(DefaultConfig(), DesignRequest{TargetAltitude: 400e3, Payload: 2000, Stages: 2}, nil, mon)
	if err != nil {
		t.Fatal(err)
	}
	rpt, err := o.Run()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Wait(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "history-leo.csv"))
	if err != nil {
		t.Fatal(err)
	}
	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if !strings.HasPrefix(line, "#") {
			rows = append(rows, line)
		}
	}
	if rows[0] != "iteration,phase,altitude,total_mass,delta_v,error_ratio,dry_1,propellant_1,dry_2,propellant_2" {
		t.Fatalf("header %s", rows[0])
	}
	if len(rows) != len(rpt.History)+1 {
		t.Fatalf("%d rows for %d records", len(rows)-1, len(rpt.History))
	}
	if !strings.HasPrefix(rows[1], "0,initializing,") || !strings.Contains(rows[len(rows)-1], ",minimizing,") {
		t.Fatalf("rows %s ... %s", rows[1], rows[len(rows)-1])
	}
	// Waiting twice is harmless.
	if err := h.Wait(); err != nil {
		t.Fatal(err)
	}
}

// failingWriter accepts ok writes and then fails.
type failingWriter struct{ ok int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.ok == 0 {
		return 0, errors.New("disk full")
	}
	w.ok--
	return len(p), nil
}

func TestWriteRecordsCSVDrainsOnError(t *testing.T) {
	recChan := make(chan OptimizationRecord, 100)
	errChan := make(chan error, 1)
	go func() {
		// The commented header goes through, the first row does not.
		errChan <- WriteRecordsCSV(&failingWriter{ok: 1}, ExportConfig{Filename: "leo"}, recChan)
	}()
	sent := make(chan struct{})
	go func() {
		for i := 0; i < 150; i++ {
			recChan <- OptimizationRecord{Iteration: i, Phase: Converging, DryMasses: []float64{1}, PropellantMasses: []float64{2}}
		}
		close(recChan)
		close(sent)
	}()
	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("the producer blocked after the write error")
	}
	if err := <-errChan; err == nil || err.Error() != "disk full" {
		t.Fatalf("expected the writer error, got %v", err)
	}
}

func TestHistoryExporterUnwritable(t *testing.T) {
	h := NewHistoryExporter(ExportConfig{Filename: "leo", OutputDir: filepath.Join(t.TempDir(), "missing"), AsCSV: true})
	for i := 0; i < 150; i++ {
		h.ObserveIteration(OptimizationRecord{Iteration: i})
	}
	if err := h.Wait(); err == nil {
		t.Fatal("expected an error for a missing output directory")
	}
}

func TestExportTrajectoryAndSegments(t *testing.T) {
	dir := t.TempDir()
	conf := ExportConfig{Filename: "sounding", OutputDir: dir, AsCSV: true, Segments: true}
	tr, err := NewSimulator(DefaultConfig(), nil).Simulate(soundingProfile())
	if err != nil {
		t.Fatal(err)
	}
	name, err := ExportTrajectory(conf, tr)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(name)
	if !strings.Contains(string(data), "t,altitude,velocity,acceleration,mach,dynamic_pressure,thrust,mass,drag") {
		t.Fatal("trajectory header missing")
	}
	if strings.Count(string(data), "\n") < len(tr.Samples)+1 {
		t.Fatal("trajectory rows missing")
	}

	_, segs := referenceSegments(t)
	paths, err := ExportSegments(conf, segs)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths %v", paths)
	}
	for _, p := range paths {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Fatalf("%s not written (%v)", p, err)
		}
	}

	if paths, err := ExportSegments(ExportConfig{}, segs); paths != nil || err != nil {
		t.Fatal("segments exported without being asked")
	}
	var buf bytes.Buffer
	if err := WriteTrajectoryCSV(&buf, conf, tr); err != nil || !strings.HasPrefix(buf.String(), "# Creation date") {
		t.Fatalf("trajectory csv (%v)", err)
	}
}
