package analysis

import "fmt"

// Signal grades the radar signal by the number of removed samples.
type Signal string

// Signal grades, best first.
const (
	SignalGood     Signal = "good"
	SignalCorrect  Signal = "correct"
	SignalPassable Signal = "passable"
	SignalPoor     Signal = "poor"
	SignalBad      Signal = "bad"
)

// SignalFor grades a sprint from its number of removed samples.
func SignalFor(pointsOut int) Signal {
	switch {
	case pointsOut > 15:
		return SignalBad
	case pointsOut > 10:
		return SignalPoor
	case pointsOut > 6:
		return SignalPassable
	case pointsOut > 2:
		return SignalCorrect
	default:
		return SignalGood
	}
}

// Quality summarises how much the analysis can be trusted.
type Quality struct {
	PointsOut       int      `json:"points_out"`
	PlateauDuration float64  `json:"plateau_duration"`
	VMaxDiff        float64  `json:"vmax_diff"`
	CurveGap        float64  `json:"curve_gap"`
	Signal          Signal   `json:"signal"`
	OK              bool     `json:"ok"`
	Warnings        []string `json:"warnings,omitempty"`
}

func assess(pointsOut int, plateau, vmaxDiff, curveGap float64, cfg Config) Quality {
	q := Quality{
		PointsOut:       pointsOut,
		PlateauDuration: plateau,
		VMaxDiff:        vmaxDiff,
		CurveGap:        curveGap,
		Signal:          SignalFor(pointsOut),
	}
	if vmaxDiff > cfg.MaxVMaxDiff {
		q.Warnings = append(q.Warnings,
			fmt.Sprintf("model vmax exceeds measured peak by %.2f m/s (limit %.2f)", vmaxDiff, cfg.MaxVMaxDiff))
	}
	if plateau < cfg.MinPlateau {
		q.Warnings = append(q.Warnings,
			fmt.Sprintf("plateau lasts %.2f s (minimum %.2f s)", plateau, cfg.MinPlateau))
	}
	q.OK = len(q.Warnings) == 0
	return q
}
