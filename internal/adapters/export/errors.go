package export

import "errors"

// ErrMalformedDataset reports a dataset file whose header or cells do not
// match the export layout.
var ErrMalformedDataset = errors.New("malformed dataset")
