package colormap

import (
	"errors"
	"image/color"
	"testing"
)

// TestNewRegistry verifies every group is populated and lookups are case-insensitive
func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	groups := r.Groups()
	if len(groups) != 3 {
		t.Fatalf("Expected 3 groups, got %v", groups)
	}

	for _, name := range []string{"viridis", "VIRIDIS", " Magma ", "gray", "blues", "coolwarm", "RdBu", "kindlmann"} {
		if _, err := r.Lookup(name); err != nil {
			t.Errorf("Lookup(%q) failed: %v", name, err)
		}
	}

	if _, err := r.Lookup(DefaultName); err != nil {
		t.Errorf("Default colormap %q is not registered: %v", DefaultName, err)
	}

	if _, err := r.Lookup("jet"); !errors.Is(err, ErrUnknownColormap) {
		t.Errorf("Expected ErrUnknownColormap, got %v", err)
	}

	g, err := r.GroupOf("spectral")
	if err != nil || g != Diverging {
		t.Errorf("Expected spectral to be diverging, got %q, %v", g, err)
	}

	names := r.Names(Perceptual)
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("Expected sorted names, got %v", names)
			break
		}
	}
}

// TestRegistryMapsAreOpaque samples every palette across its range
func TestRegistryMapsAreOpaque(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	for _, g := range r.Groups() {
		for _, name := range r.Names(g) {
			m, _ := r.Lookup(name)
			low, high := m.At(0), m.At(1)
			if low.A == 0 || high.A == 0 {
				t.Errorf("%s: expected opaque endpoints, got %v and %v", name, low, high)
			}
			if low == high {
				t.Errorf("%s: expected distinct endpoints, got %v", name, low)
			}
		}
	}
}

// TestRampAt checks interpolation and clamping
func TestRampAt(t *testing.T) {
	r := Ramp{{R: 0, A: 255}, {R: 100, A: 255}, {R: 200, A: 255}}

	tests := []struct {
		t    float64
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{0.25, 50},
		{0.5, 100},
		{0.75, 150},
		{1, 200},
		{2, 200},
	}

	for _, tt := range tests {
		if got := r.At(tt.t).R; got != tt.want {
			t.Errorf("At(%v).R = %d, want %d", tt.t, got, tt.want)
		}
	}
}

// TestRampReversed checks stop order
func TestRampReversed(t *testing.T) {
	r := Ramp{{R: 1}, {R: 2}, {R: 3}}
	rev := r.Reversed()
	if rev[0].R != 3 || rev[2].R != 1 {
		t.Errorf("Expected reversed stops, got %v", rev)
	}
	if r[0].R != 1 {
		t.Error("Reversed must not modify the receiver")
	}
}

// TestRegister rejects duplicates and empty names
func TestRegister(t *testing.T) {
	r := NewEmptyRegistry()
	m := Ramp{{A: 255}, {R: 255, A: 255}}

	if err := r.Register("Custom", Sequential, m); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("custom", Sequential, m); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := r.Register("", Sequential, m); err == nil {
		t.Error("Expected empty name to fail")
	}
	if err := r.Register("nil", Sequential, nil); err == nil {
		t.Error("Expected nil map to fail")
	}
	if got, _ := r.Lookup("CUSTOM"); got == nil {
		t.Error("Expected case-insensitive lookup")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 palette, got %d", r.Len())
	}
}

// TestParseHex covers valid and invalid literals
func TestParseHex(t *testing.T) {
	c, err := parseHex("#440154")
	if err != nil {
		t.Fatalf("parseHex failed: %v", err)
	}
	if c != (color.NRGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff}) {
		t.Errorf("Unexpected color %v", c)
	}

	for _, s := range []string{"440154", "#44015", "#zzzzzz"} {
		if _, err := parseHex(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}
