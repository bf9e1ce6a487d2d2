// Package colorramp provides parsing of hex color strings and ordered color
// ramps used to paint classified raster categories.
package colorramp

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ErrBadColor indicates a string that is not a parseable hex color.
var ErrBadColor = errors.New("malformed hex color")

// Parse converts a hex color string into a fully opaque RGBA color.
// Accepted forms are "#RRGGBB", "RRGGBB" and the "#RGB" shorthand,
// case-insensitive.
func Parse(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}

	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}

// MustParse is Parse for static color literals. It panics on bad input.
func MustParse(s string) color.RGBA {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Ramp is an ordered list of colors, one per classification bin.
type Ramp []color.RGBA

// ParseRamp parses a sequence of hex colors into a ramp, preserving order.
func ParseRamp(hex ...string) (Ramp, error) {
	ramp := make(Ramp, 0, len(hex))
	for _, h := range hex {
		c, err := Parse(h)
		if err != nil {
			return nil, err
		}
		ramp = append(ramp, c)
	}
	return ramp, nil
}

// MustRamp is ParseRamp for static ramp tables. It panics on bad input.
func MustRamp(hex ...string) Ramp {
	ramp, err := ParseRamp(hex...)
	if err != nil {
		panic(err)
	}
	return ramp
}

// At returns the color at position i, clamping out-of-range positions to the
// nearest end of the ramp. An empty ramp yields transparent black.
func (r Ramp) At(i int) color.RGBA {
	if len(r) == 0 {
		return color.RGBA{}
	}
	if i < 0 {
		return r[0]
	}
	if i >= len(r) {
		return r[len(r)-1]
	}
	return r[i]
}
