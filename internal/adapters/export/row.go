package export

import (
	"math"
	"strings"
	"unicode"

	"github.com/okian/sprof/internal/domain/analysis"
)

// Reported times at distances (m) and distances at times (s).
var (
	Distances = []float64{5, 10, 20, 30}
	Times     = []float64{2, 4}
)

// Row is one exported sprint. NaN marks a distance not reached or a time
// beyond the profile.
type Row struct {
	Title    string
	Mass     float64
	V0       float64
	F0       float64
	F0Kg     float64
	Pmax     float64
	PmaxKg   float64
	Sfv      float64
	RFPeak   float64
	DRF      float64
	TopSpeed float64
	Tau      float64

	TimeAt     []float64 // one per Distances entry
	DistanceAt []float64 // one per Times entry

	PointsOut       int
	PlateauDuration float64
	VMaxDiff        float64
}

// RowFrom extracts the exported values of an analysis.
func RowFrom(res *analysis.Result) Row {
	p := res.Profile
	r := Row{
		Title:           CleanTitle(res.Title),
		Mass:            p.Mass,
		V0:              p.V0,
		F0:              p.F0,
		F0Kg:            p.F0Kg,
		Pmax:            p.Pmax,
		PmaxKg:          p.PmaxKg,
		Sfv:             p.Sfv,
		RFPeak:          p.RFPeak,
		DRF:             p.DRF,
		TopSpeed:        p.TopSpeed,
		Tau:             p.Tau,
		TimeAt:          make([]float64, len(Distances)),
		DistanceAt:      make([]float64, len(Times)),
		PointsOut:       res.Quality.PointsOut,
		PlateauDuration: res.Quality.PlateauDuration,
		VMaxDiff:        res.Quality.VMaxDiff,
	}
	for i, d := range Distances {
		r.TimeAt[i] = math.NaN()
		if t, ok := p.TimeAtDistance(d); ok {
			r.TimeAt[i] = t
		}
	}
	for i, t := range Times {
		r.DistanceAt[i] = math.NaN()
		if d, ok := p.DistanceAtTime(t); ok {
			r.DistanceAt[i] = d
		}
	}
	return r
}

// CleanTitle trims a sprint title, upper-cases its first letter and
// separates a trailing trial digit glued to the name: "alex2" becomes
// "Alex 2".
func CleanTitle(title string) string {
	r := []rune(strings.TrimSpace(title))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	if n := len(r); n > 1 && unicode.IsDigit(r[n-1]) && unicode.IsLetter(r[n-2]) {
		r = append(r[:n-1:n-1], ' ', r[n-1])
	}
	return string(r)
}
