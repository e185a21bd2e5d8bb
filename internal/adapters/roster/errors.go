package roster

import "errors"

// Sentinel errors of the roster.
var (
	ErrAthleteNotFound  = errors.New("athlete not found")
	ErrAmbiguousAthlete = errors.New("ambiguous athlete")
	ErrMalformedRoster  = errors.New("malformed roster")
)
