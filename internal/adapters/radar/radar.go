// Package radar reads sprint recordings exported by STALKER ATS II radar
// guns (.rda raw samples, .rad processed samples) and plain time;velocity
// CSV files.
package radar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/sprof/internal/domain/model"
)

// Supported extensions.
const (
	ExtRDA = ".rda"
	ExtRAD = ".rad"
	ExtCSV = ".csv"
)

// DefaultSampleRate is the ATS II sampling rate in Hz, used when no .rad
// header is available.
const DefaultSampleRate = 46.875

// Recording is a decoded radar file.
type Recording struct {
	Path       string
	Format     string // extension, with the dot
	Title      string
	Date       string
	SampleRate float64 // Hz; zero for formats carrying explicit times
	SpeedUnit  string
	Trace      model.Trace
}

// Read decodes the radar file at path, choosing the reader from its
// extension. Raw .rda files take their header (title, date, sample rate)
// from the sibling .rad when one exists.
func Read(path string) (Recording, error) {
	ext := strings.ToLower(filepath.Ext(path))
	rec := Recording{Path: path, Format: ext}

	switch ext {
	case ExtRDA:
		h, err := rdaHeader(path)
		if err != nil {
			return Recording{}, err
		}
		rec.Title, rec.Date, rec.SampleRate, rec.SpeedUnit = h.title, h.date, h.sampleRate, h.speedUnit
		f, err := os.Open(path)
		if err != nil {
			return Recording{}, err
		}
		defer func() { _ = f.Close() }()
		rec.Trace, err = DecodeRDA(f, rec.SampleRate)
		if err != nil {
			return Recording{}, fmt.Errorf("%s: %w", path, err)
		}
	case ExtRAD:
		f, err := os.Open(path)
		if err != nil {
			return Recording{}, err
		}
		defer func() { _ = f.Close() }()
		var h header
		h, rec.Trace, err = decodeRAD(f)
		if err != nil {
			return Recording{}, fmt.Errorf("%s: %w", path, err)
		}
		rec.Title, rec.Date, rec.SampleRate, rec.SpeedUnit = h.title, h.date, h.sampleRate, h.speedUnit
	case ExtCSV:
		f, err := os.Open(path)
		if err != nil {
			return Recording{}, err
		}
		defer func() { _ = f.Close() }()
		rec.Trace, err = DecodeCSV(f)
		if err != nil {
			return Recording{}, fmt.Errorf("%s: %w", path, err)
		}
		rec.Title = baseTitle(path)
		rec.SpeedUnit = "m/s"
	default:
		return Recording{}, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
	return rec, nil
}

// rdaHeader loads the sibling .rad header, or falls back to the file name,
// the modification time and the default sample rate.
func rdaHeader(path string) (header, error) {
	rad := strings.TrimSuffix(path, filepath.Ext(path)) + ExtRAD
	if f, err := os.Open(rad); err == nil {
		defer func() { _ = f.Close() }()
		h, err := readHeader(f)
		if err != nil {
			return header{}, fmt.Errorf("%s: %w", rad, err)
		}
		return h, nil
	}
	h := header{title: baseTitle(path), sampleRate: DefaultSampleRate, speedUnit: speedUnits[0]}
	if st, err := os.Stat(path); err == nil {
		h.date = st.ModTime().UTC().Format(time.DateTime)
	}
	return h, nil
}

func baseTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
