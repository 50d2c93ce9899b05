package generator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/23skdu/fpstim/internal/extfloat"
	"github.com/23skdu/fpstim/internal/format"
	"github.com/23skdu/fpstim/internal/metrics"
)

// DrawStats accumulates the special-value census of the drawn patterns
// and the distribution of the finite values. Uniform bit patterns hit
// NaN, infinity and subnormal encodings constantly; the summary makes
// that visible per run.
type DrawStats struct {
	Draws      int
	NaNs       int
	Infs       int
	Subnormals int
	Zeros      int
	finite     []float64
}

func (s *DrawStats) Observe(bits uint64, d format.Descriptor) {
	s.Draws++
	switch {
	case extfloat.IsNaN(bits, d):
		s.NaNs++
		metrics.RecordSpecialValue("nan")
	case extfloat.IsInf(bits, d):
		s.Infs++
		metrics.RecordSpecialValue("inf")
	case extfloat.IsSubnormal(bits, d):
		s.Subnormals++
		metrics.RecordSpecialValue("subnormal")
		s.finite = append(s.finite, extfloat.CastUp(bits, d))
	case extfloat.IsZero(bits, d):
		s.Zeros++
		metrics.RecordSpecialValue("zero")
		s.finite = append(s.finite, extfloat.CastUp(bits, d))
	default:
		s.finite = append(s.finite, extfloat.CastUp(bits, d))
	}
}

// FiniteMeanStdDev summarizes the finite drawn values.
func (s *DrawStats) FiniteMeanStdDev() (mean, std float64) {
	if len(s.finite) < 2 {
		if len(s.finite) == 1 {
			return s.finite[0], 0
		}
		return 0, 0
	}
	return stat.MeanStdDev(s.finite, nil)
}

// Finite returns the number of finite values drawn.
func (s *DrawStats) Finite() int {
	return len(s.finite)
}
