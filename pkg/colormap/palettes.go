package colormap

import (
	"fmt"
	"image/color"
	"strconv"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
)

// DefaultName is the palette used when none is configured
const DefaultName = "viridis"

// Anchor colors sampled at even steps from the matplotlib perceptual maps
var perceptualRamps = map[string][]string{
	"viridis": {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"magma":   {"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f", "#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"},
	"inferno": {"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"},
	"plasma":  {"#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786", "#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921"},
	"cividis": {"#00224e", "#123570", "#3b496c", "#575d6d", "#707173", "#8a8779", "#a69d75", "#c4b56c", "#e4cf5b", "#fee838"},
}

// Brewer palettes keyed by registry name
var (
	brewerSequential = map[string]string{
		"blues":   "Blues",
		"greens":  "Greens",
		"greys":   "Greys",
		"oranges": "Oranges",
		"purples": "Purples",
		"reds":    "Reds",
		"ylorrd":  "YlOrRd",
		"ylgnbu":  "YlGnBu",
	}
	brewerDiverging = map[string]string{
		"rdbu":     "RdBu",
		"brbg":     "BrBG",
		"piyg":     "PiYG",
		"spectral": "Spectral",
	}
)

// NewRegistry returns a registry populated with every built-in palette
func NewRegistry() (*Registry, error) {
	r := NewEmptyRegistry()

	for name, stops := range perceptualRamps {
		ramp, err := hexRamp(stops)
		if err != nil {
			return nil, fmt.Errorf("colormap %s: %w", name, err)
		}
		if err := r.Register(name, Perceptual, ramp); err != nil {
			return nil, err
		}
	}

	continuousMaps := []struct {
		name  string
		group Group
		cmap  palette.ColorMap
	}{
		{"kindlmann", Perceptual, moreland.Kindlmann()},
		{"kindlmann-extended", Perceptual, moreland.ExtendedKindlmann()},
		{"blackbody", Perceptual, moreland.BlackBody()},
		{"blackbody-extended", Perceptual, moreland.ExtendedBlackBody()},
		{"coolwarm", Diverging, moreland.SmoothBlueRed()},
		{"purple-orange", Diverging, moreland.SmoothPurpleOrange()},
		{"green-purple", Diverging, moreland.SmoothGreenPurple()},
	}
	for _, c := range continuousMaps {
		if err := r.Register(c.name, c.group, FromColorMap(c.cmap)); err != nil {
			return nil, err
		}
	}

	gray := Ramp{{A: 0xff}, {R: 0xff, G: 0xff, B: 0xff, A: 0xff}}
	if err := r.Register("gray", Sequential, gray); err != nil {
		return nil, err
	}
	if err := r.Register("heat", Sequential, FromPalette(palette.Heat(9, 1))); err != nil {
		return nil, err
	}

	for name, brewerName := range brewerSequential {
		p, err := brewer.GetPalette(brewer.TypeSequential, brewerName, 9)
		if err != nil {
			return nil, fmt.Errorf("colormap %s: %w", name, err)
		}
		if err := r.Register(name, Sequential, FromPalette(p)); err != nil {
			return nil, err
		}
	}

	// Brewer lists diverging palettes from the warm end; flip them so low
	// values are blue-ish like coolwarm.
	for name, brewerName := range brewerDiverging {
		p, err := brewer.GetPalette(brewer.TypeDiverging, brewerName, 11)
		if err != nil {
			return nil, fmt.Errorf("colormap %s: %w", name, err)
		}
		if err := r.Register(name, Diverging, FromPalette(p).Reversed()); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func hexRamp(stops []string) (Ramp, error) {
	r := make(Ramp, len(stops))
	for i, s := range stops {
		c, err := parseHex(s)
		if err != nil {
			return nil, err
		}
		r[i] = c
	}
	return r, nil
}

// parseHex parses a #rrggbb color
func parseHex(s string) (color.NRGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
