// Package models contains the models for the Finance API
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString accepts a JSON string or a JSON number and keeps its literal text,
// so numeric identifiers and amounts never round-trip through float64
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the trimmed text
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}
