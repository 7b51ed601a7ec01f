package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// FlexID is a row id that clients may send either as a JSON number or as a numeric string.
type FlexID int64

// UnmarshalJSON accepts 12, "12" and null.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*id = 0
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseFlexID(raw)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// ParseFlexID coerces a query parameter, header or decoded JSON value into an id.
func ParseFlexID(raw interface{}) (FlexID, error) {
	if s, ok := raw.(string); ok && s == "" {
		return 0, nil
	}
	v, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid id %v: %w", raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid id %d", v)
	}
	return FlexID(v), nil
}

// Uint returns the id as a primary key value.
func (id FlexID) Uint() uint {
	return uint(id)
}
