package model

import "errors"

// Sentinel error kinds shared by every analysis stage. Stages wrap them with
// context; callers match them with errors.Is.
var (
	// ErrInvalidTrace reports mismatched lengths, empty input or non-increasing time.
	ErrInvalidTrace = errors.New("invalid trace")
	// ErrNotASprint reports a trace whose peak fails the plausibility checks.
	ErrNotASprint = errors.New("not a sprint")
	// ErrInsufficientData reports a series too short for a filter or a fit.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrFitDidNotConverge reports a least-squares fit that produced no usable model.
	ErrFitDidNotConverge = errors.New("fit did not converge")
)

// Kind returns a short stable name for the sentinel wrapped in err, or
// "internal" when none matches. It is used as a metrics label and in API
// responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidTrace):
		return "invalid_trace"
	case errors.Is(err, ErrNotASprint):
		return "not_a_sprint"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrFitDidNotConverge):
		return "fit_did_not_converge"
	default:
		return "internal"
	}
}
