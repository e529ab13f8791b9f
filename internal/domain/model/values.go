package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID identifies a device or sensor. The remote API and callers mix numeric
// and string ids, so every ID is kept in canonical string form: numeric
// values are rendered without leading zeros or a fractional part, so that
// "05", 5 and 5.0 all compare equal.
type ID string

// NewID canonicalises an id given as a string, integer, float or json.Number.
func NewID(v any) ID {
	switch t := v.(type) {
	case ID:
		return canonicalID(string(t))
	case string:
		return canonicalID(t)
	case json.Number:
		return canonicalID(t.String())
	case int:
		return ID(strconv.Itoa(t))
	case int64:
		return ID(strconv.FormatInt(t, 10))
	case float64:
		return canonicalID(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return canonicalID(fmt.Sprint(v))
	}
}

func canonicalID(s string) ID {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return ID(s)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64))
}

// Canonical returns the normalised form of id.
func (id ID) Canonical() ID { return canonicalID(string(id)) }

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = canonicalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = canonicalID(n.String())
	return nil
}

// Number is a nullable numeric value. The remote API reports state values
// and sensor readings as numbers, numeric strings, empty strings or null.
type Number struct {
	Value float64
	Valid bool
}

// NewNumber returns a valid Number holding v.
func NewNumber(v float64) Number { return Number{Value: v, Valid: true} }

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("number %s: %w", data, err)
	}
	*n = NewNumber(f)
	return nil
}

// Flag is a boolean the remote API encodes as 0/1, "0"/"1" or true/false.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "1", "true":
		*f = true
	case "0", "false", "", "null":
		*f = false
	default:
		return fmt.Errorf("flag: unexpected value %s", data)
	}
	return nil
}
