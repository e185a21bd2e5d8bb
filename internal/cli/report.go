package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/okian/sprof/internal/adapters/export"
	"github.com/okian/sprof/internal/domain/analysis"
)

// PrintReport writes the profile and quality report of res.
func PrintReport(w io.Writer, res *analysis.Result) error {
	p := res.Profile
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", export.CleanTitle(res.Title))
	if a := res.Athlete; a.Name != "" {
		fmt.Fprintf(tw, "  athlete\t%s, %.1f kg, %.2f m\n", a.Name, a.Mass, a.Stature)
	}
	fmt.Fprintf(tw, "  model\tvmax %.2f m/s\ttau %.3f s\tdelay %.3f s\n",
		res.Summary.VMax, res.Summary.Tau, res.Summary.Delay)
	fmt.Fprintf(tw, "  force\tF0 %.1f N\tF0 %.2f N/kg\tV0 %.2f m/s\tSfv %.3f\n",
		p.F0, p.F0Kg, p.V0, p.Sfv)
	fmt.Fprintf(tw, "  power\tPmax %.0f W\tPmax %.2f W/kg\n", p.Pmax, p.PmaxKg)
	fmt.Fprintf(tw, "  ratio of force\tRF peak %.1f %%\tDRF %.2f\n", p.RFPeak, p.DRF)

	var times []string
	for _, d := range export.Distances {
		if t, ok := p.TimeAtDistance(d); ok {
			times = append(times, fmt.Sprintf("%g m %.2f s", d, t))
		}
	}
	if len(times) > 0 {
		fmt.Fprintf(tw, "  times\t%s\n", strings.Join(times, "\t"))
	}

	q := res.Quality
	fmt.Fprintf(tw, "  quality\t%s\tpoints out %d\tplateau %.2f s\tvmax diff %.2f m/s\tgap %.3f\n",
		q.Signal, q.PointsOut, q.PlateauDuration, q.VMaxDiff, q.CurveGap)
	for _, warn := range q.Warnings {
		fmt.Fprintf(tw, "  warning\t%s\n", warn)
	}
	fmt.Fprintln(tw)
	return tw.Flush()
}
