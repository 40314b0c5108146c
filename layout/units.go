package layout

// This file defines unit-safe types for lengths. Paper sizes are declared in
// inches (the historical convention for these presets) while all sheet
// geometry is produced in millimeters, so conversions live here.

// Unit represents the unit a length value was declared in.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM
	UnitCM
	UnitIN
	UnitPT
)

// Conversion constants between pt, in and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	InToMm = 25.4
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// To converts this length to the target unit. Supported targets: UnitMM, UnitPT.
func (l Length) To(target Unit) float64 {
	if l.Unit == UnitNone {
		return l.Value
	}
	mm := l.Value
	switch l.Unit {
	case UnitCM:
		mm = l.Value * 10
	case UnitIN:
		mm = l.Value * InToMm
	case UnitPT:
		mm = l.Value * PtToMm
	}
	if target == UnitPT {
		return mm * MmToPt
	}
	return mm
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }
