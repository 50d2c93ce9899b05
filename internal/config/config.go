package config

import (
	"fmt"

	"github.com/23skdu/fpstim/internal/format"
	"github.com/23skdu/fpstim/internal/stimuli"
)

// Config carries one generation run: how many stimuli to produce, which
// operation, the format triple, the seed for the random stream, and where
// the file goes.
type Config struct {
	Count     int
	Operation string
	SrcFmt    string
	Src2Fmt   string
	DstFmt    string
	Seed      int64
	OpMod     bool
	Output    string

	LogLevel  string
	LogFormat string

	// MetricsAddr serves Prometheus metrics when non-empty.
	MetricsAddr string
}

func Default() Config {
	return Config{
		Count:     10,
		Operation: "SDOTP",
		Seed:      1,
		Output:    "stimuli.txt",
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// operationDefaults mirrors the per-operation format conventions of the
// testbench: dot products and expanding sums widen into FP32, plain
// vector sums stay at the source width, FMADD works at full width.
var operationDefaults = map[string][3]string{
	"SDOTP":  {"FP16", "FP16", "FP32"},
	"VSUM":   {"FP16", "FP16", "FP16"},
	"EXVSUM": {"FP16", "FP16", "FP32"},
	"FMADD":  {"FP32", "FP32", "FP32"},
}

// ApplyOperationDefaults fills any unset format tags with the
// operation's conventional triple.
func (c *Config) ApplyOperationDefaults() {
	defs, ok := operationDefaults[c.Operation]
	if !ok {
		return
	}
	if c.SrcFmt == "" {
		c.SrcFmt = defs[0]
	}
	if c.Src2Fmt == "" {
		c.Src2Fmt = defs[1]
	}
	if c.DstFmt == "" {
		c.DstFmt = defs[2]
	}
}

func (c *Config) Validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("invalid count: %d (must be positive)", c.Count)
	}
	op, ok := stimuli.ParseOperation(c.Operation)
	if !ok {
		return fmt.Errorf("invalid operation: %q (must be one of SDOTP, VSUM, EXVSUM, FMADD)", c.Operation)
	}
	if !op.Generatable() {
		return fmt.Errorf("operation %s cannot be generated", op)
	}
	for name, tag := range map[string]string{
		"src_fmt": c.SrcFmt, "src2_fmt": c.Src2Fmt, "dst_fmt": c.DstFmt,
	} {
		d, ok := format.Decode(tag)
		if !ok {
			return fmt.Errorf("invalid %s: %q", name, tag)
		}
		if !format.Generable(d) {
			return fmt.Errorf("invalid %s: %q is reserved", name, tag)
		}
	}
	if c.Output == "" {
		return fmt.Errorf("output path must not be empty")
	}
	return nil
}

// Operation returns the parsed opcode. Valid only after Validate.
func (c *Config) Opcode() stimuli.Opcode {
	op, _ := stimuli.ParseOperation(c.Operation)
	return op
}

// Formats returns the decoded format triple. Valid only after Validate.
func (c *Config) Formats() (src, src2, dst format.Descriptor) {
	src, _ = format.Decode(c.SrcFmt)
	src2, _ = format.Decode(c.Src2Fmt)
	dst, _ = format.Decode(c.DstFmt)
	return src, src2, dst
}

// Mod returns the modifier bit as its wire character.
func (c *Config) Mod() byte {
	if c.OpMod {
		return '1'
	}
	return '0'
}
