package sprint

import "errors"

// ErrInvalidEnd reports a manual end of acceleration outside the sprint.
var ErrInvalidEnd = errors.New("invalid end of acceleration")
