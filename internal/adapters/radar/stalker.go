package radar

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/sprof/internal/domain/model"
)

// STALKER 5.020 layout.
const (
	radFirstLine = "STALKER Version 5.020 using ATS II"
	rdaFirstLine = "STALKER Version 5.020 using ATS II radar gun"
	radEndLine   = "END OF FILE"

	radNameLine       = 2
	radDateLine       = 3
	radSampleRateLine = 6
	radSpeedUnitLine  = 11
	radColumnLine     = 16
	radFirstSample    = 18
	rdaFirstSample    = 4
)

var (
	radColumns = []string{"Sample", "Time", "Speed", "Accel", "Dist"}
	speedUnits = []string{"meters/sec", "m/s", "mètres/seconde"}
)

type header struct {
	title      string
	date       string
	sampleRate float64
	speedUnit  string
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// parseFloat accepts decimal commas.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
}

func afterColon(line string, last bool) string {
	i := strings.Index(line, ":")
	if last {
		i = strings.LastIndex(line, ":")
	}
	if i < 0 {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line[i+1:])
}

func parseHeader(lines []string) (header, error) {
	if len(lines) <= radSpeedUnitLine {
		return header{}, fmt.Errorf("header has %d lines: %w", len(lines), ErrMalformedFile)
	}
	if lines[0] != radFirstLine {
		return header{}, fmt.Errorf("first line %q: %w", lines[0], ErrMalformedFile)
	}
	h := header{
		title:     afterColon(lines[radNameLine], true),
		speedUnit: afterColon(lines[radSpeedUnitLine], false),
	}
	if f := strings.Fields(lines[radDateLine]); len(f) >= 2 {
		h.date = f[0] + " - " + f[1]
	}
	rate, err := parseFloat(afterColon(lines[radSampleRateLine], true))
	if err != nil || rate <= 0 {
		return header{}, fmt.Errorf("sample rate %q: %w", lines[radSampleRateLine], ErrMalformedFile)
	}
	h.sampleRate = rate
	if !slices.Contains(speedUnits, h.speedUnit) {
		return header{}, fmt.Errorf("speed unit %q: %w", h.speedUnit, ErrMalformedFile)
	}
	return h, nil
}

func readHeader(r io.Reader) (header, error) {
	lines, err := readLines(r)
	if err != nil {
		return header{}, err
	}
	return parseHeader(lines)
}

// DecodeRDA decodes raw ATS II samples, one speed per line from the fifth
// line on. Sample times are i/sampleRate rounded to the hundredth of a second.
func DecodeRDA(r io.Reader, sampleRate float64) (model.Trace, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	lines, err := readLines(r)
	if err != nil {
		return model.Trace{}, err
	}
	if len(lines) == 0 || lines[0] != rdaFirstLine {
		return model.Trace{}, fmt.Errorf("missing %q: %w", rdaFirstLine, ErrMalformedFile)
	}
	if len(lines) <= rdaFirstSample {
		return model.Trace{}, fmt.Errorf("no samples: %w", ErrMalformedFile)
	}
	samples := lines[rdaFirstSample:]
	tr := model.Trace{Time: make([]float64, len(samples)), Velocity: make([]float64, len(samples))}
	for i, line := range samples {
		v, err := parseFloat(line)
		if err != nil {
			return model.Trace{}, fmt.Errorf("line %d %q: %w", rdaFirstSample+i+1, line, ErrMalformedFile)
		}
		tr.Time[i] = math.Round(float64(i)/sampleRate*100) / 100
		tr.Velocity[i] = v
	}
	return tr, nil
}

// DecodeRAD decodes a processed ATS II file and returns its time and speed
// columns.
func DecodeRAD(r io.Reader) (model.Trace, error) {
	_, tr, err := decodeRAD(r)
	return tr, err
}

func decodeRAD(r io.Reader) (header, model.Trace, error) {
	lines, err := readLines(r)
	if err != nil {
		return header{}, model.Trace{}, err
	}
	h, err := parseHeader(lines)
	if err != nil {
		return header{}, model.Trace{}, err
	}
	if len(lines) <= radFirstSample || !slices.Equal(strings.Fields(lines[radColumnLine]), radColumns) {
		return header{}, model.Trace{}, fmt.Errorf("column line: %w", ErrMalformedFile)
	}
	end := slices.Index(lines, radEndLine)
	if end < radFirstSample {
		return header{}, model.Trace{}, fmt.Errorf("missing %q: %w", radEndLine, ErrMalformedFile)
	}
	rows := lines[radFirstSample:end]
	tr := model.Trace{Time: make([]float64, len(rows)), Velocity: make([]float64, len(rows))}
	for i, row := range rows {
		f := strings.Fields(row)
		if len(f) < 3 {
			return header{}, model.Trace{}, fmt.Errorf("line %d %q: %w", radFirstSample+i+1, row, ErrMalformedFile)
		}
		t, terr := parseFloat(f[1])
		v, verr := parseFloat(f[2])
		if terr != nil || verr != nil {
			return header{}, model.Trace{}, fmt.Errorf("line %d %q: %w", radFirstSample+i+1, row, ErrMalformedFile)
		}
		tr.Time[i], tr.Velocity[i] = t, v
	}
	return h, tr, nil
}
