// Package export keeps a dataset of analysed sprints and reads and writes
// it as a ';'-separated CSV file, one row per sprint title.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FileName returns the daily dataset path in dir, e.g. dir/191203_pfv_analyse.csv.
func FileName(dir string, day time.Time) string {
	return filepath.Join(dir, day.Format("060102")+"_pfv_analyse.csv")
}

// Header returns the column titles, in order.
func Header() []string {
	h := []string{
		"Sprint title", "Mass (kg)", "V0 (m/s)", "F0 (N)", "F0 (N/kg)", "P max (W)",
		"P max (W/kg)", "Force-Velocity profile", "RF peak", "DRF (%)", "top speed (m/s)",
		"Acc. constant",
	}
	for _, d := range Distances {
		h = append(h, fmt.Sprintf("Time @ %g m (s)", d))
	}
	for _, t := range Times {
		h = append(h, fmt.Sprintf("Distance in %g s (m)", t))
	}
	return append(h, "Nb points out", "Plateau (s)", "Diff vmax th/measure")
}

// Dataset is a set of rows keyed by title. It is safe for concurrent use.
type Dataset struct {
	mu   sync.Mutex
	rows map[string]Row
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{rows: make(map[string]Row)}
}

// Add inserts r, replacing any row with the same title.
func (d *Dataset) Add(r Row) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows[r.Title] = r
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows)
}

// Rows returns the rows sorted by title.
func (d *Dataset) Rows() []Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Row, 0, len(d.rows))
	for _, r := range d.rows {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Row) int { return strings.Compare(a.Title, b.Title) })
	return out
}

// Write writes the header and every row to w.
func (d *Dataset) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range d.Rows() {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the dataset to path through a temporary file so readers
// never see a partial file.
func (d *Dataset) Export(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pfv-*.csv")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := d.Write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read adds the rows of a dataset written by Write.
func (d *Dataset) Read(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	head, err := cr.Read()
	if err != nil {
		return fmt.Errorf("header: %w: %w", ErrMalformedDataset, err)
	}
	if !slices.Equal(head, Header()) {
		return fmt.Errorf("unexpected header: %w", ErrMalformedDataset)
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedDataset, err)
		}
		row, err := parseRecord(rec)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		d.Add(row)
	}
}

// Load adds the rows of the dataset file at path. A missing file is not an
// error.
func (d *Dataset) Load(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return d.Read(f)
}

func format(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (r Row) record() []string {
	rec := []string{
		r.Title, format(r.Mass), format(r.V0), format(r.F0), format(r.F0Kg), format(r.Pmax),
		format(r.PmaxKg), format(r.Sfv), format(r.RFPeak), format(r.DRF), format(r.TopSpeed),
		format(r.Tau),
	}
	for _, t := range r.TimeAt {
		rec = append(rec, format(t))
	}
	for _, d := range r.DistanceAt {
		rec = append(rec, format(d))
	}
	return append(rec, strconv.Itoa(r.PointsOut), format(r.PlateauDuration), format(r.VMaxDiff))
}

func parseRecord(rec []string) (Row, error) {
	if len(rec) != len(Header()) {
		return Row{}, fmt.Errorf("%d fields: %w", len(rec), ErrMalformedDataset)
	}
	vals := make([]float64, len(rec))
	for i := 1; i < len(rec); i++ {
		if rec[i] == "" {
			vals[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return Row{}, fmt.Errorf("column %d %q: %w", i+1, rec[i], ErrMalformedDataset)
		}
		vals[i] = v
	}
	nd, nt := len(Distances), len(Times)
	r := Row{
		Title:      rec[0],
		Mass:       vals[1],
		V0:         vals[2],
		F0:         vals[3],
		F0Kg:       vals[4],
		Pmax:       vals[5],
		PmaxKg:     vals[6],
		Sfv:        vals[7],
		RFPeak:     vals[8],
		DRF:        vals[9],
		TopSpeed:   vals[10],
		Tau:        vals[11],
		TimeAt:     slices.Clone(vals[12 : 12+nd]),
		DistanceAt: slices.Clone(vals[12+nd : 12+nd+nt]),
	}
	tail := vals[12+nd+nt:]
	r.PointsOut = int(tail[0])
	r.PlateauDuration, r.VMaxDiff = tail[1], tail[2]
	return r, nil
}
