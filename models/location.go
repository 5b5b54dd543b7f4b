package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Location is a latitude/longitude pair.
type Location struct {
	Lat float64 `bson:"lat" json:"lat" validate:"latitude"`
	Lng float64 `bson:"lng" json:"lng" validate:"longitude"`
}

// ParseLocation decodes a location as it arrives in a request body: either
// {"lat":..,"lng":..} or that object serialized into a JSON string, which
// multipart clients send. Absent, null and "" all yield nil.
func ParseLocation(raw json.RawMessage) (*Location, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: location: %v", ErrValidation, err)
		}
		return DecodeLocation(s)
	}

	var loc Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("%w: location: %v", ErrValidation, err)
	}
	return &loc, nil
}

// DecodeLocation decodes a serialized location. An empty string yields nil.
func DecodeLocation(s string) (*Location, error) {
	if s == "" {
		return nil, nil
	}
	var loc Location
	if err := json.Unmarshal([]byte(s), &loc); err != nil {
		return nil, fmt.Errorf("%w: location: %v", ErrValidation, err)
	}
	return &loc, nil
}
