package http

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
)

var errTrailingData = errors.New("unexpected data after JSON body")

// decodeStrict reads exactly one JSON object into v. Unknown fields and
// anything after the object are rejected.
func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

// parseCount reads a ticket count from a JSON number or numeric string.
// Any representation of a whole number that fits in an int is accepted,
// so 4, "4", 4.0 and 4e0 are all 4.
func parseCount(n json.Number) (int, bool) {
	f, _, err := big.ParseFloat(n.String(), 10, 256, big.ToNearestEven)
	if err != nil || !f.IsInt() {
		return 0, false
	}
	v, acc := f.Int64()
	if acc != big.Exact || int64(int(v)) != v {
		return 0, false
	}
	return int(v), true
}
