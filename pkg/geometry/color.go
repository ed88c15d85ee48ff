package geometry

import (
	"fmt"
	"image/color"
	"strings"
)

// Color is an 8-bit RGBA color value. The zero value is fully transparent
// black, which the theme layer treats as "unset".
type Color struct {
	R, G, B, A uint8
}

// RGB constructs an opaque color.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 255} }

// IsZero reports whether the color is unset.
func (c Color) IsZero() bool { return c == Color{} }

// RGBA implements image/color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor parses "#rgb" or "#rrggbb" into an opaque color.
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var r, g, b uint8
	switch len(s) {
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return Color{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		r, g, b = r*17, g*17, b*17
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return Color{}, fmt.Errorf("parse color %q: %w", s, err)
		}
	default:
		return Color{}, fmt.Errorf("parse color %q: want 3 or 6 hex digits", s)
	}
	return RGB(r, g, b), nil
}

// Blend mixes the color toward other by ratio in [0, 1]. Ratio 0 returns the
// receiver, 1 returns other. Used for fading relation lines against the
// background.
func (c Color) Blend(other Color, ratio float64) Color {
	if ratio <= 0 {
		return c
	}
	if ratio >= 1 {
		return other
	}
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*ratio + 0.5)
	}
	return Color{
		R: mix(c.R, other.R),
		G: mix(c.G, other.G),
		B: mix(c.B, other.B),
		A: mix(c.A, other.A),
	}
}
