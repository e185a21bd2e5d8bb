// Package smoothing implements zero-phase Butterworth low-pass smoothing of
// velocity series.
package smoothing

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/okian/sprof/internal/domain/model"
	"gonum.org/v1/gonum/mat"
)

// DefaultPad asks FiltFilt for the standard pad length, 3*len(A).
const DefaultPad = -1

// Filter is a digital IIR filter in transfer function form, normalised so
// that A[0] == 1. B and A always have the same length.
type Filter struct {
	B []float64
	A []float64
}

// Butter designs a digital low-pass Butterworth filter of the given order.
// cutoff is the -3 dB frequency as a fraction of the Nyquist frequency.
func Butter(order int, cutoff float64) (Filter, error) {
	if order < 1 {
		return Filter{}, fmt.Errorf("order %d: %w", order, ErrInvalidFilter)
	}
	if !(cutoff > 0 && cutoff < 1) {
		return Filter{}, fmt.Errorf("cutoff %g outside (0, 1): %w", cutoff, ErrInvalidFilter)
	}

	// Analog prototype poles on the unit circle, prewarped for a sampling
	// frequency of 2 (Nyquist = 1).
	warped := 4 * math.Tan(math.Pi*cutoff/2)
	poles := make([]complex128, order)
	for k := range poles {
		m := float64(-order + 1 + 2*k)
		poles[k] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order))) * complex(warped, 0)
	}

	// Bilinear transform: every analog zero at infinity maps to z = -1.
	const fs2 = 4
	digital := make([]complex128, order)
	den := complex(1, 0)
	for k, p := range poles {
		digital[k] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	gain := math.Pow(warped, float64(order)) / real(den)

	zeros := make([]complex128, order)
	for k := range zeros {
		zeros[k] = -1
	}

	b := realPoly(zeros)
	for i := range b {
		b[i] *= gain
	}
	return Filter{B: b, A: realPoly(digital)}, nil
}

// realPoly expands prod(x - r) and returns the real parts of its coefficients,
// highest power first.
func realPoly(roots []complex128) []float64 {
	c := make([]complex128, len(roots)+1)
	c[0] = 1
	for k, r := range roots {
		for i := k + 1; i > 0; i-- {
			c[i] -= r * c[i-1]
		}
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}

// steadyState returns the initial delay-line state of a unit step response,
// so that filtering a constant signal scaled by it starts without transient.
func (f Filter) steadyState() ([]float64, error) {
	n := len(f.A) - 1
	if n == 0 {
		return nil, nil
	}
	// (I - companion(A)^T) zi = B[1:] - A[1:]*B[0]
	m := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, f.A[i+1])
		if i > 0 {
			m.Set(i-1, i, -1)
		}
		rhs.SetVec(i, f.B[i+1]-f.A[i+1]*f.B[0])
	}
	m.Set(0, 0, m.At(0, 0)+1)
	for i := 1; i < n; i++ {
		m.Set(i, i, 1)
	}

	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		return nil, fmt.Errorf("initial conditions: %w", err)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = zi.AtVec(i)
	}
	return out, nil
}

// run filters x in place with the transposed direct form II structure,
// starting from the delay-line state z.
func (f Filter) run(x []float64, z []float64) {
	n := len(f.A)
	for k, sample := range x {
		y := f.B[0]*sample + z[0]
		for j := 0; j < n-2; j++ {
			z[j] = f.B[j+1]*sample + z[j+1] - f.A[j+1]*y
		}
		z[n-2] = f.B[n-1]*sample - f.A[n-1]*y
		x[k] = y
	}
}

// FiltFilt applies the filter forward then backward, giving zero phase
// distortion. Both ends are padded with padLen samples of odd extension and
// each pass starts from the steady state matching its first sample. The
// result has the length of x. Pass DefaultPad for the standard pad length.
func (f Filter) FiltFilt(x []float64, padLen int) ([]float64, error) {
	if padLen < 0 {
		padLen = 3 * len(f.A)
	}
	if len(x) <= padLen {
		return nil, fmt.Errorf("%d samples, filter needs more than %d: %w",
			len(x), padLen, model.ErrInsufficientData)
	}
	if len(f.A) < 2 {
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = v * f.B[0]
		}
		return out, nil
	}

	zi, err := f.steadyState()
	if err != nil {
		return nil, err
	}

	ext := oddExtend(x, padLen)
	z := make([]float64, len(zi))

	for i := range z {
		z[i] = zi[i] * ext[0]
	}
	f.run(ext, z)

	reverse(ext)
	for i := range z {
		z[i] = zi[i] * ext[0]
	}
	f.run(ext, z)
	reverse(ext)

	out := make([]float64, len(x))
	copy(out, ext[padLen:padLen+len(x)])
	return out, nil
}

// oddExtend returns x with padLen samples reflected through each end point.
func oddExtend(x []float64, padLen int) []float64 {
	n := len(x)
	ext := make([]float64, 0, n+2*padLen)
	for i := padLen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := 1; i <= padLen; i++ {
		ext = append(ext, 2*x[n-1]-x[n-1-i])
	}
	return ext
}

func reverse(a []float64) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}
