package radar

import "errors"

// Sentinel errors of the radar readers.
var (
	// ErrUnsupportedFormat reports a file whose extension has no reader.
	ErrUnsupportedFormat = errors.New("unsupported radar format")
	// ErrMalformedFile reports a file that does not follow its format.
	ErrMalformedFile = errors.New("malformed radar file")
)
