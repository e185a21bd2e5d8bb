package outlier

// Impact describes how much the fit moves when one sample is left out.
type Impact struct {
	Index         int     `json:"index"`
	Time          float64 `json:"time"`
	Velocity      float64 `json:"velocity"`
	Gap           float64 `json:"gap"`
	WeightedGap   float64 `json:"weighted_gap"`
	VMax          float64 `json:"v_max"`
	VMaxVariation float64 `json:"v_max_variation"` // relative
	Tau           float64 `json:"tau"`
	TauVariation  float64 `json:"tau_variation"` // relative
}

// Impacts refits the acceleration portion of s once per interior sample,
// leaving that sample out. Sample 0 is reported with zero variation.
func Impacts(s Snapshot, stages Stages) []Impact {
	acc := s.Acc()
	m := s.Model()
	weighted := WeightedGaps(acc.Time, acc.Velocity, m)
	out := []Impact{{
		Time:     acc.Time[0],
		Velocity: acc.Velocity[0],
		VMax:     s.Fit.VMax,
		Tau:      s.Fit.Tau,
	}}
	for i := 1; i < len(acc.Time)-1; i++ {
		alt, err := stages.Fit(dropAt(acc.Time, i), dropAt(acc.Velocity, i))
		if err != nil {
			continue
		}
		gap := acc.Velocity[i] - m[i]
		if gap < 0 {
			gap = -gap
		}
		out = append(out, Impact{
			Index:         i,
			Time:          acc.Time[i],
			Velocity:      acc.Velocity[i],
			Gap:           gap,
			WeightedGap:   weighted[i],
			VMax:          alt.VMax,
			VMaxVariation: relDiff(s.Fit.VMax, alt.VMax),
			Tau:           alt.Tau,
			TauVariation:  relDiff(s.Fit.Tau, alt.Tau),
		})
	}
	return out
}

func relDiff(ref, v float64) float64 {
	d := (ref - v) / ref
	if d < 0 {
		return -d
	}
	return d
}
