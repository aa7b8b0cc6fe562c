package deck

import (
	"errors"
	"fmt"
)

var ErrColorFormat = errors.New("deck: color must be #RRGGBB")

// RGB is an 8-bit-per-channel LED color.
type RGB struct {
	R, G, B uint8
}

// Hex formats c as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseHex accepts exactly "#RRGGBB" (either hex case).
func ParseHex(s string) (RGB, error) {
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("%w: %q", ErrColorFormat, s)
	}
	var out [3]uint8
	for i := range out {
		hi, ok1 := hexNibble(s[1+2*i])
		lo, ok2 := hexNibble(s[2+2*i])
		if !ok1 || !ok2 {
			return RGB{}, fmt.Errorf("%w: %q", ErrColorFormat, s)
		}
		out[i] = hi<<4 | lo
	}
	return RGB{R: out[0], G: out[1], B: out[2]}, nil
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
