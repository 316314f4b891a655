package baseportal

import "strconv"

// DefaultPrimaryColor is used when neither the embedder nor the channel
// sets a brand color.
const DefaultPrimaryColor = "#6366f1"

// Position anchors the launcher bubble.
type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
)

// Theme is the resolved visual configuration of a mounted widget.
type Theme struct {
	// PrimaryColor is a #rrggbb hex color for the launcher and header.
	PrimaryColor string
	// TextColor is black or white, picked for contrast against
	// PrimaryColor.
	TextColor string
	Position  Position
}

// ContrastColor returns "#ffffff" or "#000000", whichever reads better on
// the given #rrggbb background. Unparseable input gets white text.
func ContrastColor(hex string) string {
	r, g, b, ok := parseHexColor(hex)
	if !ok {
		return "#ffffff"
	}
	// Relative luminance with sRGB coefficients.
	lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if lum > 128 {
		return "#000000"
	}
	return "#ffffff"
}

func parseHexColor(hex string) (r, g, b uint8, ok bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

// resolveTheme layers the embedder's overrides on the channel defaults.
func resolveTheme(primary string, channelColor string, pos Position) Theme {
	color := primary
	if color == "" {
		color = channelColor
	}
	if color == "" {
		color = DefaultPrimaryColor
	}
	if pos == "" {
		pos = PositionBottomRight
	}
	return Theme{
		PrimaryColor: color,
		TextColor:    ContrastColor(color),
		Position:     pos,
	}
}
