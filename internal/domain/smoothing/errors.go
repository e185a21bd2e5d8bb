package smoothing

import "errors"

// ErrInvalidFilter reports a filter design request outside the supported range.
var ErrInvalidFilter = errors.New("invalid filter design")
