package cli

import "errors"

// Sentinel errors returned by Run.
var (
	ErrNoInput         = errors.New("no radar file selected: use -file or -dir")
	ErrNoFiles         = errors.New("no radar file matches")
	ErrInvalidManual   = errors.New("manual bounds must be \"start,end\" in seconds")
	ErrNothingAnalysed = errors.New("no radar file could be analysed")
)
