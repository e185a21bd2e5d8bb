// Package roster resolves athletes' mass and stature from a name;mass;stature
// CSV file.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/sprof/internal/domain/model"
)

// Roster is an immutable list of athletes.
type Roster struct {
	athletes []model.Athlete
	simple   []string // simplified names, same order
}

// Load reads the roster file at path.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	r, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Decode reads a roster. The header row must name the name, mass and stature
// columns, in any order; empty mass or stature cells stay zero.
func Decode(r io.Reader) (*Roster, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w: %w", ErrMalformedRoster, err)
	}
	col := map[string]int{"name": -1, "mass": -1, "stature": -1}
	for i, h := range head {
		if _, ok := col[strings.ToLower(strings.TrimSpace(h))]; ok {
			col[strings.ToLower(strings.TrimSpace(h))] = i
		}
	}
	if col["name"] < 0 {
		return nil, fmt.Errorf("no name column: %w", ErrMalformedRoster)
	}

	ro := &Roster{}
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRoster, err)
		}
		a := model.Athlete{Name: strings.TrimSpace(cell(rec, col["name"]))}
		if a.Name == "" {
			return nil, fmt.Errorf("row %d: empty name: %w", row, ErrMalformedRoster)
		}
		if a.Mass, err = number(cell(rec, col["mass"])); err != nil {
			return nil, fmt.Errorf("row %d mass: %w", row, err)
		}
		if a.Stature, err = number(cell(rec, col["stature"])); err != nil {
			return nil, fmt.Errorf("row %d stature: %w", row, err)
		}
		ro.athletes = append(ro.athletes, a)
		ro.simple = append(ro.simple, model.SimplifyName(a.Name))
	}
	return ro, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func number(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrMalformedRoster)
	}
	return v, nil
}

// Len returns the number of athletes.
func (r *Roster) Len() int { return len(r.athletes) }

// Find returns the one athlete matching pattern, trying in turn:
// the same simplified name, names containing pattern, and names contained
// in the base name of pattern (so a radar file path can be passed as is).
func (r *Roster) Find(pattern string) (model.Athlete, error) {
	p := model.SimplifyName(pattern)
	base := model.SimplifyName(filepath.Base(pattern))
	strategies := []func(name string) bool{
		func(name string) bool { return name == p },
		func(name string) bool { return strings.Contains(name, p) },
		func(name string) bool { return strings.Contains(base, name) },
	}

	var found []int
	ambiguous := 0
	for _, match := range strategies {
		found = found[:0]
		for i, name := range r.simple {
			if match(name) {
				found = append(found, i)
			}
		}
		if len(found) == 1 {
			return r.athletes[found[0]], nil
		}
		ambiguous = max(ambiguous, len(found))
	}
	if ambiguous > 1 {
		return model.Athlete{}, fmt.Errorf("%q matches %d athletes: %w", pattern, ambiguous, ErrAmbiguousAthlete)
	}
	return model.Athlete{}, fmt.Errorf("%q: %w", pattern, ErrAthleteNotFound)
}
