package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodePayload converts a loosely-typed task payload (typically a
// map[string]any after a JSON round trip) into T. Unknown fields are
// rejected, so a malformed payload fails at the boundary instead of deep
// inside a handler.
func DecodePayload[T any](payload any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &out,
		ErrorUnused: true,
		TagName:     "json",
	})
	if err != nil {
		return out, fmt.Errorf("invalid payload decoder: %w", err)
	}
	if err := dec.Decode(payload); err != nil {
		return out, fmt.Errorf("invalid payload: %w", err)
	}
	return out, nil
}
