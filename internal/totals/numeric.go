package totals

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Numeric is a quantity, price, or rate exactly as it arrives from a form: a
// JSON number, a numeric string, an empty string, or null. Anything that does
// not parse cleanly decodes to zero, so a half-typed value never turns a
// recompute pass into NaN.
type Numeric float64

// UnmarshalJSON accepts numbers, quoted numbers, "", and null. It never
// returns an error for scalar input; malformed values coerce to zero.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*n = 0
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			*n = 0
			return nil
		}
		*n = Numeric(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		*n = 0
		return nil
	}
	*n = Numeric(v)
	return nil
}

// Float returns the value with NaN and infinities coerced to zero.
func (n Numeric) Float() float64 {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
