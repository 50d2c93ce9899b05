package stimuli

import (
	"strings"
	"testing"

	"github.com/23skdu/fpstim/internal/format"
)

func TestPackerSlots(t *testing.T) {
	var p Packer
	p.PutSlot(0x3C00, 16, 16) // exact fit
	p.PutSlot(0xAB, 8, 16)    // filler byte ahead of the element
	p.PutSlot(0xCD, 8, 4)     // slot narrower than element: element width wins
	if got := p.Hex(); got != "3C00FFABCD" {
		t.Errorf("Hex() = %q, want 3C00FFABCD", got)
	}
	if p.Bits() != 40 {
		t.Errorf("Bits() = %d, want 40", p.Bits())
	}
}

func TestPackerFill(t *testing.T) {
	var p Packer
	p.PutFill(32)
	if got := p.Hex(); got != "FFFFFFFF" {
		t.Errorf("PutFill hex = %q", got)
	}

	var q Packer
	q.PutSlot(0x12, 8, 8)
	q.PutSlot(0x34, 8, 8)
	if got := q.HexFilled(32); got != "FFFF1234" {
		t.Errorf("HexFilled = %q, want FFFF1234", got)
	}
}

func TestUnpackerMirrorsPacker(t *testing.T) {
	var p Packer
	p.PutSlot(0x7E35, 16, 16)
	p.PutSlot(0x9C, 8, 16)
	u := NewUnpacker(p.Hex())
	if v, err := u.TakeSlot(16, 16); err != nil || v != 0x7E35 {
		t.Errorf("TakeSlot = %#x, %v", v, err)
	}
	if v, err := u.TakeSlot(8, 16); err != nil || v != 0x9C {
		t.Errorf("TakeSlot with filler = %#x, %v", v, err)
	}
	if u.Remaining() != 0 {
		t.Errorf("Remaining = %d", u.Remaining())
	}
	if _, err := u.TakeSlot(8, 8); err == nil {
		t.Error("TakeSlot past the end should fail")
	}
}

func TestUnpackerRejectsBadDigit(t *testing.T) {
	u := NewUnpacker("0G")
	if _, err := u.TakeSlot(8, 8); err == nil {
		t.Error("expected error on invalid hex digit")
	}
}

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		name           string
		op             Opcode
		src, src2, dst format.Descriptor
		lanes          int
		srcSlot        uint
		aW, bW, cW, dW uint
	}{
		{"sdotp default", SDOTP, format.FP16, format.FP16, format.FP32, 1, 16, 16, 16, 16, 16},
		{"vsum fp16", VSUM, format.FP16, format.FP16, format.FP16, 2, 8, 16, 16, 16, 16},
		{"vsum fp32 dst", VSUM, format.FP16, format.FP16, format.FP32, 1, 16, 16, 16, 16, 16},
		{"vsum fp08 dst halves lanes", VSUM, format.FP8, format.FP8, format.FP8, 2, 4, 8, 8, 8, 8},
		{"exvsum fp32 dst", EXVSUM, format.FP16, format.FP16, format.FP32, 1, 16, 16, 16, 16, 16},
		{"exvsum 8bit dst keeps src width", EXVSUM, format.FP8, format.FP8, format.FP8, 4, 8, 8, 8, 8, 8},
		{"fmadd full width", FMADD, format.FP32, format.FP32, format.FP32, 1, 32, 32, 32, 32, 32},
		{"fmadd a takes src2", FMADD, format.FP16, format.FP16Alt, format.FP16, 2, 16, 16, 16, 16, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := LayoutFor(tt.op, tt.src, tt.src2, tt.dst)
			if err != nil {
				t.Fatalf("LayoutFor: %v", err)
			}
			if l.Lanes != tt.lanes {
				t.Errorf("Lanes = %d, want %d", l.Lanes, tt.lanes)
			}
			if l.SrcSlot != tt.srcSlot {
				t.Errorf("SrcSlot = %d, want %d", l.SrcSlot, tt.srcSlot)
			}
			if l.AWidth != tt.aW || l.BWidth != tt.bW || l.CWidth != tt.cW || l.DWidth != tt.dW {
				t.Errorf("element widths = %d/%d/%d/%d, want %d/%d/%d/%d",
					l.AWidth, l.BWidth, l.CWidth, l.DWidth, tt.aW, tt.bW, tt.cW, tt.dW)
			}
		})
	}
}

func TestLayoutForRejects(t *testing.T) {
	if _, err := LayoutFor(DIV, format.FP16, format.FP16, format.FP32); err == nil {
		t.Error("LayoutFor accepted a non-generatable opcode")
	}
	if _, err := LayoutFor(SDOTP, format.FP32, format.FP32, format.FP64); err == nil {
		t.Error("LayoutFor accepted a 64-bit destination")
	}
}

func TestFMADDOperandATakesSrc2(t *testing.T) {
	// Mixed formats: src FP16 (c), src2 AL16 (a,b). Element a must be
	// packed and unpacked at the src2 width assignment.
	l, err := LayoutFor(FMADD, format.FP16, format.FP16Alt, format.FP16)
	if err != nil {
		t.Fatal(err)
	}
	el := LaneElements{
		A: []uint64{0x4011, 0x4022},
		B: []uint64{0, 0},
		C: []uint64{0x3C01, 0x3C02},
		D: []uint64{0, 0},
		E: []uint64{0x0001, 0x0002},
	}
	hex := l.PackOperands(el)
	if hex != "000100023C013C0240114022" {
		t.Fatalf("PackOperands = %q", hex)
	}
	got, err := l.UnpackOperands(hex)
	if err != nil {
		t.Fatal(err)
	}
	for i := range el.A {
		if got.A[i] != el.A[i] || got.C[i] != el.C[i] || got.E[i] != el.E[i] {
			t.Errorf("lane %d mismatch: %+v", i, got)
		}
	}
}

func TestPackOperandsFieldOrder(t *testing.T) {
	// SDOTP packs e, then d/b pairs, then c/a pairs, lane 0 most
	// significant throughout.
	l, err := LayoutFor(SDOTP, format.FP16, format.FP16, format.FP32)
	if err != nil {
		t.Fatal(err)
	}
	el := LaneElements{
		A: []uint64{0xAAAA},
		B: []uint64{0xBBBB},
		C: []uint64{0xCCCC},
		D: []uint64{0xDDDD},
		E: []uint64{0xEEEE0000},
	}
	if got := l.PackOperands(el); got != "EEEE0000DDDDBBBBCCCCAAAA" {
		t.Errorf("PackOperands = %q", got)
	}
}

func TestVSUMEightBitPacking(t *testing.T) {
	l, err := LayoutFor(VSUM, format.FP8, format.FP8, format.FP8)
	if err != nil {
		t.Fatal(err)
	}
	if l.Lanes != 2 {
		t.Fatalf("lanes = %d, want 2", l.Lanes)
	}
	el := LaneElements{
		A: []uint64{0x11, 0x22},
		B: []uint64{0x33, 0x44},
		C: []uint64{0x55, 0x66},
		D: []uint64{0x77, 0x88},
		E: []uint64{0x99, 0xAA},
	}
	hex := l.PackOperands(el)
	// e lanes behind filler bytes, a full filler container, then c/a pairs.
	if hex != "FF99FFAAFFFFFFFF55116622" {
		t.Fatalf("PackOperands = %q", hex)
	}

	exp := l.PackExpected([]uint64{0x12, 0x34})
	if exp != "FFFF1234" {
		t.Errorf("PackExpected = %q, want FFFF1234", exp)
	}
	if !strings.HasPrefix(exp, "FFFF") {
		t.Error("upper half of an 8-bit VSUM expected container must be filler")
	}

	got, err := l.UnpackOperands(hex)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < l.Lanes; i++ {
		if got.E[i] != el.E[i] || got.C[i] != el.C[i] || got.A[i] != el.A[i] {
			t.Errorf("lane %d: %+v", i, got)
		}
	}
}

func TestPackUnpackRoundTripAllOps(t *testing.T) {
	combos := []struct {
		name           string
		op             Opcode
		src, src2, dst format.Descriptor
		operandHex     int // expected operand hex length
	}{
		{"sdotp 16to32", SDOTP, format.FP16, format.FP16, format.FP32, 24},
		{"sdotp 8to16", SDOTP, format.FP8, format.FP8, format.FP16, 24},
		{"sdotp mixed alt", SDOTP, format.FP16Alt, format.FP16, format.FP32, 24},
		{"vsum 16", VSUM, format.FP16, format.FP16, format.FP16, 16},
		{"vsum dst32", VSUM, format.FP16, format.FP16, format.FP32, 16},
		{"vsum 8", VSUM, format.FP8, format.FP8, format.FP8, 24},
		{"exvsum 16to32", EXVSUM, format.FP16, format.FP16, format.FP32, 24},
		{"exvsum 8", EXVSUM, format.FP8Alt, format.FP8Alt, format.FP8Alt, 32},
		{"fmadd 32", FMADD, format.FP32, format.FP32, format.FP32, 24},
		{"fmadd 16", FMADD, format.FP16, format.FP16, format.FP16, 24},
	}

	for _, tt := range combos {
		t.Run(tt.name, func(t *testing.T) {
			l, err := LayoutFor(tt.op, tt.src, tt.src2, tt.dst)
			if err != nil {
				t.Fatal(err)
			}
			el := LaneElements{}
			for i := 0; i < l.Lanes; i++ {
				el.A = append(el.A, uint64(0x11*(i+1))&mask(l.AWidth))
				el.B = append(el.B, uint64(0x22*(i+1))&mask(l.BWidth))
				el.C = append(el.C, uint64(0x33*(i+1))&mask(l.CWidth))
				el.D = append(el.D, uint64(0x44*(i+1))&mask(l.DWidth))
				el.E = append(el.E, uint64(0x55*(i+1))&mask(l.DstWidth))
			}
			hex := l.PackOperands(el)
			if len(hex) != tt.operandHex {
				t.Fatalf("operand hex length = %d, want %d (%q)", len(hex), tt.operandHex, hex)
			}
			got, err := l.UnpackOperands(hex)
			if err != nil {
				t.Fatalf("UnpackOperands: %v", err)
			}
			for i := 0; i < l.Lanes; i++ {
				if got.A[i] != el.A[i] || got.C[i] != el.C[i] || got.E[i] != el.E[i] {
					t.Errorf("lane %d a/c/e mismatch: %+v", i, got)
				}
				if tt.op == SDOTP && (got.B[i] != el.B[i] || got.D[i] != el.D[i]) {
					t.Errorf("lane %d b/d mismatch: %+v", i, got)
				}
			}

			exp := l.PackExpected(results(l))
			if len(exp) != ContainerWidth/4 {
				t.Errorf("expected hex length = %d, want %d", len(exp), ContainerWidth/4)
			}
		})
	}
}

func mask(w uint) uint64 {
	return (uint64(1) << w) - 1
}

func results(l Layout) []uint64 {
	out := make([]uint64, l.Lanes)
	for i := range out {
		out[i] = uint64(0x66*(i+1)) & mask(l.DstWidth)
	}
	return out
}

func TestUnpackOperandsTrailingBits(t *testing.T) {
	l, err := LayoutFor(FMADD, format.FP32, format.FP32, format.FP32)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.UnpackOperands("000000000000000000000000AA"); err == nil {
		t.Error("trailing bits should be rejected")
	}
	if _, err := l.UnpackOperands("0000"); err == nil {
		t.Error("truncated operands should be rejected")
	}
}
