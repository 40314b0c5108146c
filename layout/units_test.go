package layout

import (
	"math"
	"testing"
)

func TestLengthTo(t *testing.T) {
	tests := []struct {
		name   string
		l      Length
		target Unit
		want   float64
	}{
		{"inch to mm", Length{Value: 1, Unit: UnitIN}, UnitMM, 25.4},
		{"cm to mm", Length{Value: 2.5, Unit: UnitCM}, UnitMM, 25},
		{"pt to mm", Length{Value: 10, Unit: UnitPT}, UnitMM, 3.52777},
		{"mm to pt", Length{Value: 3.52777, Unit: UnitMM}, UnitPT, 10},
		{"mm identity", Length{Value: 42, Unit: UnitMM}, UnitMM, 42},
		{"unit-less passthrough", Length{Value: 7, Unit: UnitNone}, UnitMM, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.l.To(tt.target); math.Abs(got-tt.want) > 1e-6 {
				t.Fatalf("To(%s) = %g, want %g", UnitToString(tt.target), got, tt.want)
			}
		})
	}
}

func TestUnitToString(t *testing.T) {
	for u, want := range map[Unit]string{
		UnitMM: "mm", UnitCM: "cm", UnitIN: "in", UnitPT: "pt", UnitNone: "",
	} {
		if got := UnitToString(u); got != want {
			t.Fatalf("UnitToString(%d) = %q, want %q", u, got, want)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"#00008B", RGB(0, 0, 139), true},
		{"00008B", RGB(0, 0, 139), true},
		{"#fff", RGB(255, 255, 255), true},
		{"#FF000080", Color{R: 255, A: 128.0 / 255}, true},
		{" #abc ", RGB(170, 187, 204), true},
		{"#12345", Color{}, false},
		{"#gggggg", Color{}, false},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if tt.ok != (err == nil) {
			t.Fatalf("ParseHexColor(%q) err = %v", tt.in, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseHexColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestColorHex(t *testing.T) {
	if got := RGB(0, 0, 139).Hex(); got != "#00008B" {
		t.Fatalf("Hex() = %q", got)
	}
	if c := RGB(1, 2, 3).WithAlpha(0.5); c.A != 0.5 || c.R != 1 {
		t.Fatalf("WithAlpha = %+v", c)
	}
}
