// Package codec provides the JSON helpers shared by the toolkit: plain
// encoding delegated to the standard serializer, and decoding that
// reconstructs objects through caller supplied factories.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrParse reports malformed JSON input handed to Decode.
var ErrParse = errors.New("malformed JSON")

// Encode serializes v with the standard library serializer. Nothing is
// guaranteed about ordering beyond the serializer's own deterministic
// output for a given value.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode parses data and reconstructs a value through factory. The
// factory receives the parsed values positionally: for a top level
// object the member values in document order (a decoded map would
// randomize them), for an array its elements in order, for any other
// value an empty list. Malformed input, including trailing data after
// the value, fails with an error satisfying errors.Is(err, ErrParse).
// Aligning the value count with what the factory expects is the
// caller's responsibility, a factory error is returned as is.
func Decode[T any](factory func(values []any) (T, error), data []byte) (T, error) {
	var zero T

	values, err := parseValues(data)
	if err != nil {
		return zero, err
	}
	return factory(values)
}

// parseValues extracts top level values from JSON text preserving
// document order.
func parseValues(data []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var values []any
	if delim, ok := tok.(json.Delim); ok {
		switch delim {
		case '{':
			for dec.More() {
				if _, err := dec.Token(); err != nil { // member key
					return nil, fmt.Errorf("%w: %v", ErrParse, err)
				}
				var v any
				if err := dec.Decode(&v); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrParse, err)
				}
				values = append(values, v)
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
		case '[':
			for dec.More() {
				var v any
				if err := dec.Decode(&v); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrParse, err)
				}
				values = append(values, v)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
		}
	}
	// Scalars carry no members, the factory gets an empty list.

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrParse)
	}
	return values, nil
}
