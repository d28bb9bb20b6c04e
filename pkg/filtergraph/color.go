package filtergraph

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vidbar/vidbar/pkg/errors"
)

// namedColors maps the color names accepted on top of ffmpeg's own palette to
// RGB values, so they can be merged with an alpha suffix into 0xRRGGBBAA form.
var namedColors = map[string][3]uint8{
	"black":   {0, 0, 0},
	"white":   {255, 255, 255},
	"red":     {255, 0, 0},
	"green":   {0, 255, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"cyan":    {0, 255, 255},
	"magenta": {255, 0, 255},
}

var hexColorRe = regexp.MustCompile(`^[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$`)
var colorNameRe = regexp.MustCompile(`^[a-zA-Z]+$`)

// EncodeColor translates a user-facing color string into ffmpeg's native
// color syntax.
//
// Accepted inputs: a color name ("white"), "#RRGGBB", "0xRRGGBB",
// "0xRRGGBBAA", each optionally suffixed with "@alpha" where alpha is in
// [0.0, 1.0]. Alpha suffixes are folded into the 0xRRGGBBAA form; names
// outside the built-in palette keep ffmpeg's own name@alpha syntax.
// An empty string encodes as "black".
func EncodeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return "black", nil
	}

	base := color
	alpha := -1.0
	if at := strings.Index(color, "@"); at >= 0 {
		base = strings.TrimSpace(color[:at])
		a, err := strconv.ParseFloat(strings.TrimSpace(color[at+1:]), 64)
		if err != nil || a < 0 || a > 1 {
			return "", errors.New(errors.ValidationError, "Invalid color alpha",
				fmt.Sprintf("%q: alpha must be a number in [0.0, 1.0]", color), errors.ErrBadAlpha)
		}
		alpha = a
	}

	hex, err := baseColorHex(base, color)
	if err != nil {
		return "", err
	}

	if alpha < 0 {
		if hex == "" {
			return base, nil
		}
		return "0x" + hex, nil
	}

	alphaHex := fmt.Sprintf("%02X", int(alpha*255))
	if hex == "" {
		// ffmpeg understands name@alpha directly for its own palette.
		return fmt.Sprintf("%s@%s", base, formatAlpha(alpha)), nil
	}
	// An existing alpha byte is replaced by the explicit suffix.
	return "0x" + hex[:6] + alphaHex, nil
}

// baseColorHex resolves a base color to its RRGGBB(AA) hex digits, or to ""
// for names that should pass through untouched.
func baseColorHex(base, original string) (string, error) {
	switch {
	case base == "":
		return "", errors.New(errors.ValidationError, "Invalid color",
			fmt.Sprintf("%q has no base color", original), errors.ErrBadColor)
	case strings.HasPrefix(base, "#"):
		hex := base[1:]
		if !hexColorRe.MatchString(hex) {
			return "", errors.New(errors.ValidationError, "Invalid color",
				fmt.Sprintf("%q is not #RRGGBB", original), errors.ErrBadColor)
		}
		return strings.ToUpper(hex), nil
	case strings.HasPrefix(base, "0x") || strings.HasPrefix(base, "0X"):
		hex := base[2:]
		if !hexColorRe.MatchString(hex) {
			return "", errors.New(errors.ValidationError, "Invalid color",
				fmt.Sprintf("%q is not 0xRRGGBB or 0xRRGGBBAA", original), errors.ErrBadColor)
		}
		return strings.ToUpper(hex), nil
	case colorNameRe.MatchString(base):
		if rgb, ok := namedColors[strings.ToLower(base)]; ok {
			return fmt.Sprintf("%02X%02X%02X", rgb[0], rgb[1], rgb[2]), nil
		}
		// Unknown names are left for ffmpeg to resolve against its palette.
		return "", nil
	default:
		return "", errors.New(errors.ValidationError, "Invalid color",
			fmt.Sprintf("%q is not a name, #RRGGBB or 0xRRGGBB value", original), errors.ErrBadColor)
	}
}

// StripAlpha returns the color with any alpha component removed, in the form
// the ffmpeg color source filter expects (#RRGGBB or a bare name). The solid
// color source must be opaque; transparency is applied by the overlay chain.
func StripAlpha(color string) string {
	if at := strings.Index(color, "@"); at >= 0 {
		color = strings.TrimSpace(color[:at])
	}
	if strings.HasPrefix(color, "0x") || strings.HasPrefix(color, "0X") {
		hex := color[2:]
		if len(hex) == 8 {
			hex = hex[:6]
		}
		return "#" + hex
	}
	if strings.HasPrefix(color, "#") && len(color) == 9 {
		return color[:7]
	}
	return color
}

func formatAlpha(alpha float64) string {
	return strconv.FormatFloat(alpha, 'f', -1, 64)
}
