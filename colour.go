package hueplus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColour parses a colour written as hex ("#ff8800" or "ff8800") or as
// a decimal triple ("255,136,0").
//
//	c, err := hueplus.ParseColour("#ff0000")
//	err = dev.SetAll(c)
func ParseColour(s string) (Colour, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		return parseDecimalColour(s)
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Colour{}, fmt.Errorf("%w: %q: %v", ErrInvalidColour, s, err)
	}
	return ColourFromColorful(c)
}

func parseDecimalColour(s string) (Colour, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Colour{}, fmt.Errorf("%w: %q needs three components", ErrInvalidColour, s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Colour{}, fmt.Errorf("%w: %q: %v", ErrInvalidColour, s, err)
		}
		v[i] = n
	}
	c := Colour{Red: v[0], Green: v[1], Blue: v[2]}
	if err := c.validate(); err != nil {
		return Colour{}, err
	}
	return c, nil
}

// ColourFromColorful converts a go-colorful colour. Components outside
// [0,1] or NaN are rejected rather than clamped.
func ColourFromColorful(c colorful.Color) (Colour, error) {
	if !c.IsValid() {
		return Colour{}, fmt.Errorf("%w: %v,%v,%v out of gamut", ErrInvalidColour, c.R, c.G, c.B)
	}
	r, g, b := c.RGB255()
	return Colour{Red: int(r), Green: int(g), Blue: int(b)}, nil
}

// Colorful converts the colour for blending. The colour must be valid.
func (c Colour) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.Red) / 255.0,
		G: float64(c.Green) / 255.0,
		B: float64(c.Blue) / 255.0,
	}
}
