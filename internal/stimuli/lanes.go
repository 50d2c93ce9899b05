package stimuli

import (
	"fmt"

	"github.com/23skdu/fpstim/internal/format"
)

// ContainerWidth is the fixed total vector width in bits. Every packed
// field of a record is built against this container.
const ContainerWidth = 32

const hexDigits = "0123456789ABCDEF"

// Packer accumulates element bit patterns into a hex string, most
// significant lane first in append order. All widths are multiples of 4
// bits; the packer works in nibbles.
type Packer struct {
	nibs []byte
}

// PutSlot appends one element into a slot. When the slot is wider than the
// element the high-order gap is filled with all-ones nibbles; when it is
// narrower the element is written at its own width (the slot only ever
// shrinks on paper, never truncates bits).
func (p *Packer) PutSlot(bits uint64, elemWidth, slotWidth uint) {
	for fill := int(slotWidth) - int(elemWidth); fill >= 4; fill -= 4 {
		p.nibs = append(p.nibs, 0xF)
	}
	for shift := int(elemWidth) - 4; shift >= 0; shift -= 4 {
		p.nibs = append(p.nibs, byte(bits>>uint(shift))&0xF)
	}
}

// PutFill appends widthBits of all-ones filler.
func (p *Packer) PutFill(widthBits uint) {
	for i := uint(0); i < widthBits/4; i++ {
		p.nibs = append(p.nibs, 0xF)
	}
}

// Bits returns the number of bits accumulated so far.
func (p *Packer) Bits() uint {
	return uint(len(p.nibs)) * 4
}

// Hex renders the accumulated nibbles.
func (p *Packer) Hex() string {
	out := make([]byte, len(p.nibs))
	for i, n := range p.nibs {
		out[i] = hexDigits[n]
	}
	return string(out)
}

// HexFilled renders the accumulated nibbles left-padded with all-ones
// filler up to widthBits, so partially occupied containers carry 0xFF
// bytes in their unused high-order lanes.
func (p *Packer) HexFilled(widthBits uint) string {
	pad := int(widthBits/4) - len(p.nibs)
	out := make([]byte, 0, widthBits/4)
	for i := 0; i < pad; i++ {
		out = append(out, 'F')
	}
	for _, n := range p.nibs {
		out = append(out, hexDigits[n])
	}
	return string(out)
}

// Unpacker walks a packed hex string, mirroring Packer slot for slot.
type Unpacker struct {
	hex string
	pos int
}

func NewUnpacker(hex string) *Unpacker {
	return &Unpacker{hex: hex}
}

func (u *Unpacker) nibble() (uint64, error) {
	if u.pos >= len(u.hex) {
		return 0, fmt.Errorf("packed field truncated at nibble %d", u.pos)
	}
	c := u.hex[u.pos]
	u.pos++
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), nil
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, nil
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, nil
	}
	return 0, fmt.Errorf("invalid hex digit %q at nibble %d", c, u.pos-1)
}

// TakeSlot consumes one slot and returns the element bits from its low
// elemWidth bits, skipping any high-order filler.
func (u *Unpacker) TakeSlot(elemWidth, slotWidth uint) (uint64, error) {
	for fill := int(slotWidth) - int(elemWidth); fill >= 4; fill -= 4 {
		if _, err := u.nibble(); err != nil {
			return 0, err
		}
	}
	var bits uint64
	for i := uint(0); i < elemWidth/4; i++ {
		n, err := u.nibble()
		if err != nil {
			return 0, err
		}
		bits = bits<<4 | n
	}
	return bits, nil
}

// SkipFill consumes widthBits of filler.
func (u *Unpacker) SkipFill(widthBits uint) error {
	for i := uint(0); i < widthBits/4; i++ {
		if _, err := u.nibble(); err != nil {
			return err
		}
	}
	return nil
}

// Remaining returns the number of unconsumed bits.
func (u *Unpacker) Remaining() uint {
	return uint(len(u.hex)-u.pos) * 4
}

// Layout captures the vector geometry of one operation and format triple:
// how many lanes a record carries and how wide each element and slot is.
type Layout struct {
	Op       Opcode
	Lanes    int
	DstWidth uint
	// SrcSlot is the slot width for source-side elements. Normally half
	// the destination width; equal to it for FMADD and for EXVSUM with an
	// 8-bit destination.
	SrcSlot uint
	// Element widths follow the operand format assignment: a takes src2
	// for FMADD and src otherwise, b takes src2, c takes src, d takes src
	// for VSUM and src2 otherwise, e takes dst.
	AWidth, BWidth, CWidth, DWidth uint
}

// LayoutFor derives the layout for a generatable operation.
func LayoutFor(op Opcode, src, src2, dst format.Descriptor) (Layout, error) {
	if !op.Generatable() {
		return Layout{}, fmt.Errorf("operation %s has no reference layout", op)
	}
	dstW := dst.Width()
	switch dstW {
	case 8, 16, 32:
	default:
		return Layout{}, fmt.Errorf("destination width %d exceeds the %d-bit container", dstW, ContainerWidth)
	}

	l := Layout{
		Op:       op,
		Lanes:    int(ContainerWidth / dstW),
		DstWidth: dstW,
		SrcSlot:  dstW / 2,
		BWidth:   src2.Width(),
		CWidth:   src.Width(),
	}
	if op == FMADD || (op == EXVSUM && dstW == 8) {
		l.SrcSlot = dstW
	}
	if op == FMADD {
		l.AWidth = src2.Width()
	} else {
		l.AWidth = src.Width()
	}
	if op == VSUM {
		l.DWidth = src.Width()
	} else {
		l.DWidth = src2.Width()
	}
	// An 8-bit VSUM populates only half the lanes; the rest of the
	// container is filler.
	if op == VSUM && dstW == 8 {
		l.Lanes = ContainerWidth / 16
	}
	return l, nil
}

// LaneElements holds the raw per-lane operand patterns of one record,
// indexed in generation order (lane 0 is most significant).
type LaneElements struct {
	A, B, C, D, E []uint64
}

// eSlot is the slot width for packed e lanes. The 8-bit VSUM case parks
// each 8-bit element in a 16-bit slot behind a filler byte.
func (l Layout) eSlot() uint {
	if l.Op == VSUM && l.DstWidth == 8 {
		return 16
	}
	return l.DstWidth
}

// PackOperands lays the drawn elements out in the wire operand order for
// the operation.
func (l Layout) PackOperands(el LaneElements) string {
	var e, db, ca, c, a Packer
	for i := 0; i < l.Lanes; i++ {
		e.PutSlot(el.E[i], l.DstWidth, l.eSlot())
		db.PutSlot(el.D[i], l.DWidth, l.SrcSlot)
		db.PutSlot(el.B[i], l.BWidth, l.SrcSlot)
		ca.PutSlot(el.C[i], l.CWidth, l.SrcSlot)
		ca.PutSlot(el.A[i], l.AWidth, l.SrcSlot)
		c.PutSlot(el.C[i], l.CWidth, l.SrcSlot)
		a.PutSlot(el.A[i], l.AWidth, l.SrcSlot)
	}
	var fill Packer
	fill.PutFill(ContainerWidth)

	switch l.Op {
	case SDOTP:
		return e.Hex() + db.Hex() + ca.Hex()
	case VSUM:
		switch l.DstWidth {
		case ContainerWidth:
			return e.Hex() + c.Hex() + a.Hex()
		case 8:
			return e.Hex() + fill.Hex() + ca.Hex()
		default:
			return e.Hex() + ca.Hex()
		}
	case EXVSUM:
		return e.Hex() + fill.Hex() + ca.Hex()
	case FMADD:
		return e.Hex() + c.Hex() + a.Hex()
	}
	return ""
}

// PackExpected packs the per-lane results into the 32-bit expected
// container, left-filling unused high lanes.
func (l Layout) PackExpected(results []uint64) string {
	var p Packer
	for _, r := range results {
		p.PutSlot(r, l.DstWidth, l.DstWidth)
	}
	return p.HexFilled(ContainerWidth)
}

// UnpackOperands is the exact inverse of PackOperands. Elements the
// operation never packs (b and d outside SDOTP) come back zero.
func (l Layout) UnpackOperands(hex string) (LaneElements, error) {
	el := LaneElements{
		A: make([]uint64, l.Lanes),
		B: make([]uint64, l.Lanes),
		C: make([]uint64, l.Lanes),
		D: make([]uint64, l.Lanes),
		E: make([]uint64, l.Lanes),
	}
	u := NewUnpacker(hex)

	var err error
	for i := 0; i < l.Lanes; i++ {
		if el.E[i], err = u.TakeSlot(l.DstWidth, l.eSlot()); err != nil {
			return el, fmt.Errorf("e lane %d: %w", i, err)
		}
	}

	takeCA := func(interleaved bool) error {
		if interleaved {
			for i := 0; i < l.Lanes; i++ {
				if el.C[i], err = u.TakeSlot(l.CWidth, l.SrcSlot); err != nil {
					return fmt.Errorf("c lane %d: %w", i, err)
				}
				if el.A[i], err = u.TakeSlot(l.AWidth, l.SrcSlot); err != nil {
					return fmt.Errorf("a lane %d: %w", i, err)
				}
			}
			return nil
		}
		for i := 0; i < l.Lanes; i++ {
			if el.C[i], err = u.TakeSlot(l.CWidth, l.SrcSlot); err != nil {
				return fmt.Errorf("c lane %d: %w", i, err)
			}
		}
		for i := 0; i < l.Lanes; i++ {
			if el.A[i], err = u.TakeSlot(l.AWidth, l.SrcSlot); err != nil {
				return fmt.Errorf("a lane %d: %w", i, err)
			}
		}
		return nil
	}

	switch l.Op {
	case SDOTP:
		for i := 0; i < l.Lanes; i++ {
			if el.D[i], err = u.TakeSlot(l.DWidth, l.SrcSlot); err != nil {
				return el, fmt.Errorf("d lane %d: %w", i, err)
			}
			if el.B[i], err = u.TakeSlot(l.BWidth, l.SrcSlot); err != nil {
				return el, fmt.Errorf("b lane %d: %w", i, err)
			}
		}
		if err = takeCA(true); err != nil {
			return el, err
		}
	case VSUM:
		switch l.DstWidth {
		case ContainerWidth:
			if err = takeCA(false); err != nil {
				return el, err
			}
		case 8:
			if err = u.SkipFill(ContainerWidth); err != nil {
				return el, err
			}
			if err = takeCA(true); err != nil {
				return el, err
			}
		default:
			if err = takeCA(true); err != nil {
				return el, err
			}
		}
	case EXVSUM:
		if err = u.SkipFill(ContainerWidth); err != nil {
			return el, err
		}
		if err = takeCA(true); err != nil {
			return el, err
		}
	case FMADD:
		if err = takeCA(false); err != nil {
			return el, err
		}
	}

	if u.Remaining() != 0 {
		return el, fmt.Errorf("%d trailing operand bits", u.Remaining())
	}
	return el, nil
}
