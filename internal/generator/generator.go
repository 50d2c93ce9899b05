// Package generator draws random operand patterns, computes the golden
// reference result for each stimulus at extended precision, and assembles
// the packed records the testbench consumes.
package generator

import (
	"fmt"
	"math/rand"

	"github.com/23skdu/fpstim/internal/extfloat"
	"github.com/23skdu/fpstim/internal/format"
	"github.com/23skdu/fpstim/internal/metrics"
	"github.com/23skdu/fpstim/internal/stimuli"
)

// Generator produces stimulus records for one operation and format
// triple. The random stream is owned by the caller through an explicit
// seed, so any run can be replayed exactly.
type Generator struct {
	op               stimuli.Opcode
	src, src2, dst   format.Descriptor
	aFmt, bFmt       format.Descriptor
	cFmt, dFmt, eFmt format.Descriptor
	layout           stimuli.Layout
	rng              *rand.Rand
	stats            DrawStats
}

// New validates the operation and formats and seeds the random stream.
func New(op stimuli.Opcode, src, src2, dst format.Descriptor, seed int64) (*Generator, error) {
	for _, d := range []format.Descriptor{src, src2, dst} {
		if !format.Generable(d) {
			return nil, fmt.Errorf("format %s is not a legal generation format", d)
		}
	}
	layout, err := stimuli.LayoutFor(op, src, src2, dst)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		op:     op,
		src:    src,
		src2:   src2,
		dst:    dst,
		layout: layout,
		rng:    rand.New(rand.NewSource(seed)),
	}
	// Operand format assignment: a follows src2 only for FMADD, d follows
	// src only for VSUM.
	g.aFmt, g.bFmt, g.cFmt, g.dFmt, g.eFmt = src, src2, src, src2, dst
	if op == stimuli.FMADD {
		g.aFmt = src2
	}
	if op == stimuli.VSUM {
		g.dFmt = src
	}
	return g, nil
}

// Layout returns the vector geometry the generator packs against.
func (g *Generator) Layout() stimuli.Layout {
	return g.layout
}

// Stats returns the accumulated draw statistics.
func (g *Generator) Stats() *DrawStats {
	return &g.stats
}

// draw picks a uniformly random raw bit pattern of the format's width.
// Uniform over patterns, not values: NaNs, infinities and subnormals show
// up with their encoding-space frequency.
func (g *Generator) draw(d format.Descriptor) uint64 {
	bits := g.rng.Uint64() & d.Mask()
	g.stats.Observe(bits, d)
	return bits
}

// Record draws all lanes of one stimulus, evaluates the reference result
// per lane at extended precision, and packs the wire record.
func (g *Generator) Record(mod byte) stimuli.Record {
	el := stimuli.LaneElements{
		A: make([]uint64, g.layout.Lanes),
		B: make([]uint64, g.layout.Lanes),
		C: make([]uint64, g.layout.Lanes),
		D: make([]uint64, g.layout.Lanes),
		E: make([]uint64, g.layout.Lanes),
	}
	results := make([]uint64, g.layout.Lanes)

	for i := 0; i < g.layout.Lanes; i++ {
		el.A[i] = g.draw(g.aFmt)
		el.B[i] = g.draw(g.bFmt)
		el.C[i] = g.draw(g.cFmt)
		el.D[i] = g.draw(g.dFmt)
		el.E[i] = g.draw(g.eFmt)

		res := Evaluate(g.op,
			extfloat.CastUp(el.A[i], g.aFmt),
			extfloat.CastUp(el.B[i], g.bFmt),
			extfloat.CastUp(el.C[i], g.cFmt),
			extfloat.CastUp(el.D[i], g.dFmt),
			extfloat.CastUp(el.E[i], g.eFmt),
		)
		results[i] = extfloat.CastDown(res, g.dst)
	}

	srcTag, _ := format.TagOf(g.src)
	src2Tag, _ := format.TagOf(g.src2)
	dstTag, _ := format.TagOf(g.dst)

	metrics.RecordStimulus(g.op.String())
	return stimuli.Record{
		Opcode:   g.op.Mnemonic(),
		Mod:      mod,
		Src:      srcTag,
		Src2:     src2Tag,
		Dst:      dstTag,
		Operands: g.layout.PackOperands(el),
		Expected: g.layout.PackExpected(results),
	}
}

// Run writes count records.
func (g *Generator) Run(w *stimuli.Writer, count int, mod byte) error {
	for k := 0; k < count; k++ {
		if err := w.WriteRecord(g.Record(mod)); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate combines the widened operands in the fixed reference order.
// Every intermediate stays at working precision; the single narrowing
// happens in CastDown.
func Evaluate(op stimuli.Opcode, a, b, c, d, e float64) float64 {
	switch op {
	case stimuli.SDOTP:
		// Two-term dot product accumulated into e.
		e = extfloat.FMA(a, b, e)
		return extfloat.FMA(c, d, e)
	case stimuli.VSUM, stimuli.EXVSUM:
		// Chained vector sum with carry-in.
		e = extfloat.Add(e, a)
		return extfloat.Add(e, c)
	case stimuli.FMADD:
		return extfloat.FMA(a, c, e)
	}
	return 0
}

// Recompute decodes a record's packed operands and re-derives the
// expected container, bit for bit. The checker uses it as its perfect
// device model; tests use it to close the loop on generated files.
func Recompute(op stimuli.Opcode, src, src2, dst format.Descriptor, operandsHex string) (uint64, error) {
	layout, err := stimuli.LayoutFor(op, src, src2, dst)
	if err != nil {
		return 0, err
	}
	el, err := layout.UnpackOperands(operandsHex)
	if err != nil {
		return 0, fmt.Errorf("unpack operands: %w", err)
	}

	aFmt, bFmt, cFmt, dFmt, eFmt := src, src2, src, src2, dst
	if op == stimuli.FMADD {
		aFmt = src2
	}
	if op == stimuli.VSUM {
		dFmt = src
	}

	results := make([]uint64, layout.Lanes)
	for i := 0; i < layout.Lanes; i++ {
		res := Evaluate(op,
			extfloat.CastUp(el.A[i], aFmt),
			extfloat.CastUp(el.B[i], bFmt),
			extfloat.CastUp(el.C[i], cFmt),
			extfloat.CastUp(el.D[i], dFmt),
			extfloat.CastUp(el.E[i], eFmt),
		)
		results[i] = extfloat.CastDown(res, dst)
	}

	expected := layout.PackExpected(results)
	u := stimuli.NewUnpacker(expected)
	return u.TakeSlot(stimuli.ContainerWidth, stimuli.ContainerWidth)
}
