package pfv

import "errors"

// ErrInvalidInput reports model parameters that cannot produce a profile.
var ErrInvalidInput = errors.New("invalid profile input")
