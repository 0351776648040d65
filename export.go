package rocket

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// ExportConfig configures the exporting of design runs and flights.
type ExportConfig struct {
	Filename  string
	OutputDir string
	RunID     string // appended to the file names if set
	AsCSV     bool   // optimization history and trajectory tables
	Segments  bool   // segment lists as CSV, JSON and YAML
	Timestamp bool   // stamp the file names with the creation time
	Epoch     time.Time
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV && !c.Segments
}

// path returns the file path of the given kind of export.
func (c ExportConfig) path(kind, ext string) string {
	name := fmt.Sprintf("%s-%s", kind, c.Filename)
	if c.RunID != "" {
		name += "-" + c.RunID
	}
	if c.Timestamp {
		t := time.Now()
		name += fmt.Sprintf("-%d-%02d-%02dT%02d.%02d.%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	dir := c.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name+"."+ext)
}

// header returns the commented header of the exported tables.
func (c ExportConfig) header(records string) string {
	epoch := c.Epoch
	if epoch.IsZero() {
		epoch = time.Now()
	}
	return fmt.Sprintf(`# Creation date (UTC): %s
# Run epoch (UTC): %s
# Run epoch (JD): %.6f
# %s
`, time.Now().UTC(), epoch.UTC(), julian.TimeToJD(epoch.UTC()), records)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// StreamRecords writes the records received on recChan to the history file described by conf.
func StreamRecords(conf ExportConfig, recChan <-chan OptimizationRecord) error {
	f, err := os.Create(conf.path("history", "csv"))
	if err != nil {
		drain(recChan)
		return err
	}
	defer f.Close()
	return WriteRecordsCSV(f, conf, recChan)
}

// WriteRecordsCSV writes the records received on recChan as a CSV history until the channel is closed.
// The per-stage columns are sized from the first record. The channel is drained even on a write error
// so that the producer never blocks.
func WriteRecordsCSV(out io.Writer, conf ExportConfig, recChan <-chan OptimizationRecord) error {
	defer drain(recChan)
	if _, err := io.WriteString(out, conf.header("Records are one optimizer iteration each. Altitude in m, masses in kg, delta-v in m/s.")); err != nil {
		return err
	}
	w := csv.NewWriter(out)
	first := true
	for rec := range recChan {
		if first {
			hdr := []string{"iteration", "phase", "altitude", "total_mass", "delta_v", "error_ratio"}
			for i := range rec.DryMasses {
				hdr = append(hdr, fmt.Sprintf("dry_%d", i+1), fmt.Sprintf("propellant_%d", i+1))
			}
			if err := w.Write(hdr); err != nil {
				return err
			}
			first = false
		}
		row := []string{strconv.Itoa(rec.Iteration), rec.Phase.String(), ftoa(rec.Altitude), ftoa(rec.TotalMass), ftoa(rec.DeltaV), strconv.FormatFloat(rec.ErrorRatio, 'f', 6, 64)}
		for i := range rec.DryMasses {
			row = append(row, ftoa(rec.DryMasses[i]), ftoa(rec.PropellantMasses[i]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
		// Surface the writer errors as they happen rather than at the final flush.
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func drain(recChan <-chan OptimizationRecord) {
	for range recChan {
	}
}

// HistoryExporter is a Monitor which streams the optimizer records to a CSV file.
type HistoryExporter struct {
	recChan chan OptimizationRecord
	wg      sync.WaitGroup
	err     error
	once    sync.Once
}

// NewHistoryExporter starts streaming to the file described by conf.
func NewHistoryExporter(conf ExportConfig) *HistoryExporter {
	h := &HistoryExporter{recChan: make(chan OptimizationRecord, 100)}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.err = StreamRecords(conf, h.recChan)
	}()
	return h
}

// ObserveIteration implements the Monitor interface.
func (h *HistoryExporter) ObserveIteration(rec OptimizationRecord) {
	h.recChan <- rec
}

// ObserveDesign implements the Monitor interface. It ends the stream.
func (h *HistoryExporter) ObserveDesign(rpt *DesignReport) {
	h.once.Do(func() { close(h.recChan) })
}

// Wait blocks until the file is written and returns the write error, if any.
func (h *HistoryExporter) Wait() error {
	h.once.Do(func() { close(h.recChan) })
	h.wg.Wait()
	return h.err
}

// Monitors fans the observations out to every monitor.
type Monitors []Monitor

// ObserveIteration implements the Monitor interface.
func (m Monitors) ObserveIteration(rec OptimizationRecord) {
	for _, mon := range m {
		mon.ObserveIteration(rec)
	}
}

// ObserveDesign implements the Monitor interface.
func (m Monitors) ObserveDesign(rpt *DesignReport) {
	for _, mon := range m {
		mon.ObserveDesign(rpt)
	}
}

// WriteTrajectoryCSV writes the samples of tr with a commented header.
func WriteTrajectoryCSV(w io.Writer, conf ExportConfig, tr *Trajectory) error {
	if _, err := io.WriteString(w, conf.header(fmt.Sprintf("Flight summary: %s", tr.Summary))); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "altitude", "velocity", "acceleration", "mach", "dynamic_pressure", "thrust", "mass", "drag"}); err != nil {
		return err
	}
	for _, s := range tr.Samples {
		if err := cw.Write([]string{ftoa(s.T), ftoa(s.Altitude), ftoa(s.Velocity), ftoa(s.Acceleration), strconv.FormatFloat(s.Mach, 'f', 4, 64), ftoa(s.DynamicPressure), ftoa(s.Thrust), ftoa(s.Mass), ftoa(s.Drag)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportTrajectory writes tr to the trajectory file described by conf. Returns the file path.
func ExportTrajectory(conf ExportConfig, tr *Trajectory) (string, error) {
	if !conf.AsCSV {
		return "", nil
	}
	name := conf.path("trajectory", "csv")
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return name, WriteTrajectoryCSV(f, conf, tr)
}

// ExportSegments writes the segments as CSV, JSON and YAML files. Returns the file paths.
func ExportSegments(conf ExportConfig, segs []Segment) ([]string, error) {
	if !conf.Segments {
		return nil, nil
	}
	writers := []struct {
		ext   string
		write func(io.Writer, []Segment) error
	}{{"csv", WriteSegmentsCSV}, {"json", WriteSegmentsJSON}, {"yaml", WriteSegmentsYAML}}
	var paths []string
	for _, wr := range writers {
		name := conf.path("segments", wr.ext)
		f, err := os.Create(name)
		if err != nil {
			return paths, err
		}
		err = wr.write(f, segs)
		f.Close()
		if err != nil {
			return paths, err
		}
		paths = append(paths, name)
	}
	return paths, nil
}
