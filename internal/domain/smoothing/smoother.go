package smoothing

import "fmt"

// Pass is one low-pass stage of a Smoother.
type Pass struct {
	Order  int
	Cutoff float64 // fraction of Nyquist
	Pad    int     // DefaultPad for the standard length
}

// Smoother chains zero-phase Butterworth passes. It is immutable and safe
// for concurrent use.
type Smoother struct {
	passes  []Pass
	filters []Filter
}

// New designs every pass up front.
func New(passes ...Pass) (*Smoother, error) {
	s := &Smoother{passes: append([]Pass(nil), passes...)}
	for _, p := range passes {
		f, err := Butter(p.Order, p.Cutoff)
		if err != nil {
			return nil, err
		}
		s.filters = append(s.filters, f)
	}
	return s, nil
}

func mustNew(passes ...Pass) *Smoother {
	s, err := New(passes...)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	peak   = mustNew(Pass{Order: 2, Cutoff: 0.018, Pad: DefaultPad})
	sprint = mustNew(
		Pass{Order: 1, Cutoff: 0.036, Pad: 25},
		Pass{Order: 2, Cutoff: 0.05, Pad: DefaultPad},
	)
)

// Peak is the strong smoother used to locate the peak of a whole trace.
func Peak() *Smoother { return peak }

// Sprint is the milder cascade used on an extracted sprint.
func Sprint() *Smoother { return sprint }

// Passes returns a copy of the configured passes.
func (s *Smoother) Passes() []Pass { return append([]Pass(nil), s.passes...) }

// MinSamples is the smallest input length Apply accepts.
func (s *Smoother) MinSamples() int {
	need := 0
	for i, p := range s.passes {
		pad := p.Pad
		if pad < 0 {
			pad = 3 * len(s.filters[i].A)
		}
		need = max(need, pad+1)
	}
	return need
}

// Apply runs every pass in order and returns a new series of the same length.
func (s *Smoother) Apply(v []float64) ([]float64, error) {
	out := v
	for i, f := range s.filters {
		var err error
		out, err = f.FiltFilt(out, s.passes[i].Pad)
		if err != nil {
			return nil, fmt.Errorf("smoothing pass %d: %w", i+1, err)
		}
	}
	if len(s.filters) == 0 {
		out = append([]float64(nil), v...)
	}
	return out, nil
}
