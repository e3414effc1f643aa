package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a lenient float64 for figures coming from the remote API.
// Numbers, numeric strings and null decode normally; anything malformed,
// NaN and ±Inf decode to 0 instead of failing the whole payload.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		// the API may send "12,5" when the locale leaks into a string field
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*n = Number(v).finite()
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		*n = Number(v).finite()
	}
	return nil
}

// MarshalJSON never fails: a non-finite value set in code encodes as 0.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Float())
}

func (n Number) finite() Number { return Number(n.Float()) }

// Float returns the value with NaN and ±Inf mapped to 0.
func (n Number) Float() float64 {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
