// Package color normalizes the color encodings found in SLD documents into a
// single canonical RGBA form.
//
// # Supported Encodings
//
// [Parse] recognizes, in order:
//
//   - Hex: #RGB, #RGBA, #RRGGBB, #RRGGBBAA (any hex alpha is dropped)
//   - Functional: rgb(), rgba() with integer, decimal or percentage channels
//   - Functional: hsl(), hsla() with degrees and percentages
//   - CSS/SVG color keywords ("transparent" maps to opaque black)
//   - Bare comma-separated triplets such as "255,128,0"
//
// Unrecognized input resolves to opaque black through [Normalize], so a single
// bad color never aborts the rest of a stylesheet.
//
// # Serialization
//
// [Color.String] renders "#RRGGBB" for opaque colors and "rgba(r,g,b,a)"
// otherwise. Normalizing that output yields the same color again.
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Color is a fully resolved RGBA color. Channels are 0-255, alpha is 0-1.
type Color struct {
	R, G, B uint8
	A       float64
}

// Black is the fallback for any unrecognized color string.
var Black = Color{A: 1}

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// Normalize parses raw and falls back to [Black] when it is not a
// recognized color.
func Normalize(raw string) Color {
	if c, ok := Parse(raw); ok {
		return c
	}
	return Black
}

// Parse parses raw into a Color and reports whether it was recognized.
func Parse(raw string) (Color, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Color{}, false
	}

	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseRGB(s)
	case strings.HasPrefix(s, "hsl"):
		return parseHSL(s)
	}

	if s == "transparent" {
		return Black, true
	}
	if c, ok := colornames.Map[s]; ok {
		return RGB(c.R, c.G, c.B), true
	}
	if strings.Contains(s, ",") {
		return parseTriplet(s)
	}
	return Color{}, false
}

// =============================================================================
// Output
// =============================================================================

// String renders the color so that [Normalize] reproduces it exactly.
func (c Color) String() string {
	if c.A >= 1 {
		return c.Hex()
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, formatAlpha(c.A))
}

// Hex renders the color as "#RRGGBB", ignoring alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// RGBString renders the CSS functional form used by imagery render options:
// "rgb(r, g, b)" when opaque, "rgba(r, g, b, a)" otherwise.
func (c Color) RGBString() string {
	if c.A >= 1 {
		return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, formatAlpha(c.A))
}

// WithAlpha returns c with its alpha multiplied by a (clamped to 0-1).
func (c Color) WithAlpha(a float64) Color {
	c.A = clampUnit(c.A * a)
	return c
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, ok := Parse(string(text))
	if !ok {
		return fmt.Errorf("invalid color %q", text)
	}
	*c = parsed
	return nil
}

// Interpolate blends a toward b by t (0-1) linearly in RGB space, alpha included.
func Interpolate(a, b Color, t float64) Color {
	t = clampUnit(t)
	blended := toColorful(a).BlendRgb(toColorful(b), t)
	r, g, bl := blended.RGB255()
	return Color{R: r, G: g, B: bl, A: a.A + (b.A-a.A)*t}
}

func toColorful(c Color) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func formatAlpha(a float64) string {
	return strconv.FormatFloat(a, 'g', -1, 64)
}

// =============================================================================
// Parsers
// =============================================================================

// parseHex accepts 3, 4, 6 or 8 hex digits. Every digit must be valid even
// though the alpha digits are then dropped.
func parseHex(digits string) (Color, bool) {
	switch len(digits) {
	case 3, 4, 6, 8:
	default:
		return Color{}, false
	}
	if _, err := strconv.ParseUint(digits, 16, 32); err != nil {
		return Color{}, false
	}
	if len(digits) <= 4 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	v, _ := strconv.ParseUint(digits[:6], 16, 32)
	return RGB(uint8(v>>16), uint8(v>>8), uint8(v)), true
}

// parseRGB handles rgb(...) and rgba(...).
func parseRGB(s string) (Color, bool) {
	args, ok := functionArgs(s, "rgba", "rgb")
	if !ok || (len(args) != 3 && len(args) != 4) {
		return Color{}, false
	}
	var ch [3]uint8
	for i := range ch {
		v, ok := parseChannel(args[i])
		if !ok {
			return Color{}, false
		}
		ch[i] = v
	}
	c := RGB(ch[0], ch[1], ch[2])
	if len(args) == 4 {
		a, ok := parseAlpha(args[3])
		if !ok {
			return Color{}, false
		}
		c.A = a
	}
	return c, true
}

// parseHSL handles hsl(...) and hsla(...).
func parseHSL(s string) (Color, bool) {
	args, ok := functionArgs(s, "hsla", "hsl")
	if !ok || (len(args) != 3 && len(args) != 4) {
		return Color{}, false
	}
	h, ok1 := parseFinite(strings.TrimSuffix(args[0], "deg"))
	sat, ok2 := parseFinite(strings.TrimSuffix(args[1], "%"))
	light, ok3 := parseFinite(strings.TrimSuffix(args[2], "%"))
	if !ok1 || !ok2 || !ok3 {
		return Color{}, false
	}

	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsl(h, clampUnit(sat/100), clampUnit(light/100)).Clamped().RGB255()
	c := RGB(r, g, b)
	if len(args) == 4 {
		a, ok := parseAlpha(args[3])
		if !ok {
			return Color{}, false
		}
		c.A = a
	}
	return c, true
}

func parseTriplet(s string) (Color, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Color{}, false
	}
	var ch [3]uint8
	for i, p := range parts {
		v, ok := parseChannel(strings.TrimSpace(p))
		if !ok {
			return Color{}, false
		}
		ch[i] = v
	}
	return RGB(ch[0], ch[1], ch[2]), true
}

// functionArgs strips "name(" ... ")" and splits the arguments on commas.
// Names are tried in order, so the longer form must come first.
func functionArgs(s string, names ...string) ([]string, bool) {
	for _, name := range names {
		rest, ok := strings.CutPrefix(s, name)
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
			return nil, false
		}
		args := strings.Split(rest[1:len(rest)-1], ",")
		for i := range args {
			args[i] = strings.TrimSpace(args[i])
		}
		return args, true
	}
	return nil, false
}

// parseChannel reads an integer, decimal or percentage channel value.
// Percentages scale by 2.55. The result is rounded and clamped to 0-255.
func parseChannel(v string) (uint8, bool) {
	scale := 1.0
	if p, ok := strings.CutSuffix(v, "%"); ok {
		v, scale = p, 2.55
	}
	f, ok := parseFinite(v)
	if !ok {
		return 0, false
	}
	return uint8(math.Round(math.Max(0, math.Min(255, f*scale)))), true
}

func parseAlpha(v string) (float64, bool) {
	scale := 1.0
	if p, ok := strings.CutSuffix(v, "%"); ok {
		v, scale = p, 0.01
	}
	f, ok := parseFinite(v)
	if !ok {
		return 0, false
	}
	return clampUnit(f * scale), true
}

// parseFinite rejects NaN and the infinities that ParseFloat accepts.
func parseFinite(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clampUnit(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
