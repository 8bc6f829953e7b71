// Package colormap provides named palettes that map normalised scalar values
// to colors, grouped the way matplotlib groups its colormaps.
package colormap

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/plot/palette"
)

// ErrUnknownColormap is returned when a palette name is not registered
var ErrUnknownColormap = errors.New("unknown colormap")

// Map maps t in [0, 1] to a color. Values outside the range are clamped.
type Map interface {
	At(t float64) color.NRGBA
}

// Group classifies palettes by how they should be used
type Group string

const (
	Perceptual Group = "perceptual"
	Sequential Group = "sequential"
	Diverging  Group = "diverging"
)

// Ramp interpolates linearly between evenly spaced color stops
type Ramp []color.NRGBA

// At implements Map
func (r Ramp) At(t float64) color.NRGBA {
	if len(r) == 0 {
		return color.NRGBA{}
	}
	if len(r) == 1 {
		return r[0]
	}

	t = clamp(t)
	pos := t * float64(len(r)-1)
	i := int(pos)
	if i >= len(r)-1 {
		return r[len(r)-1]
	}
	f := pos - float64(i)

	a, b := r[i], r[i+1]
	return color.NRGBA{
		R: lerp(a.R, b.R, f),
		G: lerp(a.G, b.G, f),
		B: lerp(a.B, b.B, f),
		A: lerp(a.A, b.A, f),
	}
}

// Reversed returns the ramp with its stops in reverse order
func (r Ramp) Reversed() Ramp {
	out := make(Ramp, len(r))
	for i, c := range r {
		out[len(r)-1-i] = c
	}
	return out
}

// FromPalette builds a Ramp from the colors of a discrete palette
func FromPalette(p palette.Palette) Ramp {
	colors := p.Colors()
	r := make(Ramp, len(colors))
	for i, c := range colors {
		r[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
	}
	return r
}

// continuous adapts a gonum palette.ColorMap to Map
type continuous struct {
	cmap palette.ColorMap
}

// FromColorMap adapts a continuous gonum color map. The map's range is
// reset to [0, 1]; it must not be modified afterwards.
func FromColorMap(cm palette.ColorMap) Map {
	cm.SetMin(0)
	cm.SetMax(1)
	return continuous{cmap: cm}
}

// At implements Map
func (c continuous) At(t float64) color.NRGBA {
	col, err := c.cmap.At(clamp(t))
	if err != nil {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(col).(color.NRGBA)
}

type entry struct {
	name  string
	group Group
	m     Map
}

// Registry holds named palettes. A populated registry is safe for
// concurrent lookups.
type Registry struct {
	entries map[string]entry
}

// NewEmptyRegistry returns a registry without any palettes
func NewEmptyRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a palette under name. Names are case-insensitive.
func (r *Registry) Register(name string, group Group, m Map) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("colormap name must not be empty")
	}
	if m == nil {
		return fmt.Errorf("colormap %q: nil map", name)
	}
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("colormap %q already registered", name)
	}
	r.entries[key] = entry{name: key, group: group, m: m}
	return nil
}

// Lookup returns the palette registered under name
func (r *Registry) Lookup(name string) (Map, error) {
	e, ok := r.entries[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColormap, name)
	}
	return e.m, nil
}

// GroupOf returns the group name is registered in
func (r *Registry) GroupOf(name string) (Group, error) {
	e, ok := r.entries[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColormap, name)
	}
	return e.group, nil
}

// Names returns the sorted palette names in group
func (r *Registry) Names(group Group) []string {
	var names []string
	for _, e := range r.entries {
		if e.group == group {
			names = append(names, e.name)
		}
	}
	sort.Strings(names)
	return names
}

// Groups returns every non-empty group, sorted
func (r *Registry) Groups() []Group {
	seen := make(map[Group]bool)
	var groups []Group
	for _, e := range r.entries {
		if !seen[e.group] {
			seen[e.group] = true
			groups = append(groups, e.group)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// Len returns the number of registered palettes
func (r *Registry) Len() int {
	return len(r.entries)
}

func clamp(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}
