package quote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Amount is a numeric request field that also accepts strings, the way form inputs
// send them. Anything that does not parse as a number decodes to 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		v = 0
	}
	*a = Amount(v)
	return nil
}

// Float64 returns the amount as a float.
func (a Amount) Float64() float64 { return float64(a) }
