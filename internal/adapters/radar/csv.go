package radar

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/okian/sprof/internal/domain/model"
)

// DecodeCSV decodes time;velocity rows. A first row that does not parse as
// numbers is taken as a header.
func DecodeCSV(r io.Reader) (model.Trace, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var tr model.Trace
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Trace{}, fmt.Errorf("%w: %w", ErrMalformedFile, err)
		}
		if len(rec) < 2 {
			return model.Trace{}, fmt.Errorf("row %d has %d fields: %w", row, len(rec), ErrMalformedFile)
		}
		t, terr := parseFloat(rec[0])
		v, verr := parseFloat(rec[1])
		if terr != nil || verr != nil {
			if row == 1 {
				continue
			}
			return model.Trace{}, fmt.Errorf("row %d %q: %w", row, rec, ErrMalformedFile)
		}
		tr.Time = append(tr.Time, t)
		tr.Velocity = append(tr.Velocity, v)
	}
	if tr.Len() == 0 {
		return model.Trace{}, fmt.Errorf("no samples: %w", ErrMalformedFile)
	}
	return tr, nil
}
