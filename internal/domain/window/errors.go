package window

import "errors"

// ErrInvalidBounds reports manual sprint bounds that select no sprint.
var ErrInvalidBounds = errors.New("invalid sprint bounds")
