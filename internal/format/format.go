// Package format defines the floating-point encodings understood by the
// stimuli generator and the consuming testbench: IEEE binary32/binary16,
// the two transprecision "alternative" encodings (bfloat16-style AL16 and
// the 4/3 AL08), and the 5/2 FP08 minifloat. FP64 is representable as a
// descriptor but reserved: it is the extended working precision, never a
// generation source or destination.
package format

import "fmt"

// Descriptor is an (exponent bits, mantissa bits) pair. The encoded width
// is 1 + ExpBits + MantBits and is always one of 8, 16, 32 or 64.
type Descriptor struct {
	ExpBits  uint
	MantBits uint
}

// Width returns the total encoded width in bits, including the sign.
func (d Descriptor) Width() uint {
	return 1 + d.ExpBits + d.MantBits
}

// Bias returns the exponent bias of the encoding.
func (d Descriptor) Bias() int {
	return (1 << (d.ExpBits - 1)) - 1
}

// Mask returns a mask covering the full encoded width.
func (d Descriptor) Mask() uint64 {
	if d.Width() == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << d.Width()) - 1
}

func (d Descriptor) String() string {
	if tag, ok := TagOf(d); ok {
		return tag
	}
	return fmt.Sprintf("e%dm%d", d.ExpBits, d.MantBits)
}

var (
	FP64    = Descriptor{ExpBits: 11, MantBits: 52}
	FP32    = Descriptor{ExpBits: 8, MantBits: 23}
	FP16    = Descriptor{ExpBits: 5, MantBits: 10}
	FP16Alt = Descriptor{ExpBits: 8, MantBits: 7}
	FP8     = Descriptor{ExpBits: 5, MantBits: 2}
	FP8Alt  = Descriptor{ExpBits: 4, MantBits: 3}
)

// Decode maps a format tag to its descriptor. It accepts the 4-character
// file tags (FP32, FP64, FP16, AL16, FP08, AL08) plus the legacy CLI
// spellings FP8 and AL8. The lookup is total: callers see ok=false for an
// unrecognized tag and decide themselves whether to abort or substitute,
// rather than having a default baked in here.
func Decode(tag string) (Descriptor, bool) {
	switch tag {
	case "FP64":
		return FP64, true
	case "FP32":
		return FP32, true
	case "FP16":
		return FP16, true
	case "AL16":
		return FP16Alt, true
	case "FP08", "FP8":
		return FP8, true
	case "AL08", "AL8":
		return FP8Alt, true
	}
	return Descriptor{}, false
}

// TagOf returns the 4-character file tag for a descriptor.
func TagOf(d Descriptor) (string, bool) {
	switch d {
	case FP64:
		return "FP64", true
	case FP32:
		return "FP32", true
	case FP16:
		return "FP16", true
	case FP16Alt:
		return "AL16", true
	case FP8:
		return "FP08", true
	case FP8Alt:
		return "AL08", true
	}
	return "", false
}

// Generable reports whether a descriptor is a legal generation source or
// destination. FP64 is the working precision only.
func Generable(d Descriptor) bool {
	_, ok := TagOf(d)
	return ok && d != FP64
}
