package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleBool decodes a JSON boolean, number or string.
// true, "true" and any non-zero number are true; false, 0, null, absent and
// any other string are false.
type FlexibleBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexibleBool) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		*b = false
		return nil
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		*b = FlexibleBool(boolVal)
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		*b = strVal == "true"
		return nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		*b = numVal != 0
		return nil
	}

	return fmt.Errorf("expected boolean, number or string, got %s", raw)
}

// MarshalJSON always encodes a plain boolean.
func (b FlexibleBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// FlexibleString decodes a JSON string, number or boolean into its string
// form. Chat ids arrive both as numbers and as "@channel" strings.
type FlexibleString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexibleString) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		*s = ""
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		*s = FlexibleString(strVal)
		return nil
	}

	// Keep integers exact; float64 would round large chat ids.
	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		*s = FlexibleString(numVal.String())
		return nil
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		*s = FlexibleString(strconv.FormatBool(boolVal))
		return nil
	}

	return fmt.Errorf("expected string or number, got %s", raw)
}
