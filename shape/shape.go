// Package shape provides small geometric value objects used by the
// serialization examples.
package shape

import "fmt"

// Rect is an axis aligned rectangle.
type Rect struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect returns a rectangle with the given dimensions.
func NewRect(width, height float64) *Rect {
	return &Rect{Width: width, Height: height}
}

// Area returns the rectangle area.
func (r *Rect) Area() float64 {
	return r.Width * r.Height
}

// FromValues builds a rectangle from positionally decoded values, width
// first. Exactly two JSON numbers are expected, which is what
// codec.Decode extracts from a serialized rectangle.
func FromValues(values []any) (*Rect, error) {
	if len(values) != 2 {
		return nil, fmt.Errorf("expected 2 values for a rectangle, got %d", len(values))
	}
	dims := make([]float64, len(values))
	for i, v := range values {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("value %d is %T, expected a number", i, v)
		}
		dims[i] = f
	}
	return NewRect(dims[0], dims[1]), nil
}
