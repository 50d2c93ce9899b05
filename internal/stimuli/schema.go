// Package stimuli defines the stimuli file contract shared by the
// generator and the consuming testbench harness: the opcode mnemonic
// table, the record line grammar, the vector lane packing rules, and the
// reader/writer for the file itself. Both sides of the contract live here
// so they cannot drift apart.
package stimuli

import (
	"fmt"
	"strings"
)

// Opcode enumerates the full decode table of the device under test. The
// generator only ever emits the first four; the rest exist so the reader
// recognizes every mnemonic the hardware harness does.
type Opcode int

const (
	SDOTP Opcode = iota
	EXVSUM
	VSUM
	FMADD
	FNMSB
	ADD
	MUL
	DIV
	SQRT
	SGNJ
	MINMAX
	CMP
	CLASSIFY
	F2F
	F2I
	I2F
	CPKAB
	CPKCD
)

// mnemonics holds the exact 5-character wire codes, underscore padded.
// EXVSUM truncates to EXVSU; that spelling is what the consumer's decode
// table matches, so it is part of the contract.
var mnemonics = map[Opcode]string{
	SDOTP:    "SDOTP",
	EXVSUM:   "EXVSU",
	VSUM:     "VSUM_",
	FMADD:    "FMADD",
	FNMSB:    "FNMSB",
	ADD:      "ADD__",
	MUL:      "MUL__",
	DIV:      "DIV__",
	SQRT:     "SQRT_",
	SGNJ:     "SGNJ_",
	MINMAX:   "MINMA",
	CMP:      "CMP__",
	CLASSIFY: "CLASS",
	F2F:      "F2F__",
	F2I:      "F2I__",
	I2F:      "I2F__",
	CPKAB:    "CPKAB",
	CPKCD:    "CPKCD",
}

// Mnemonic returns the 5-character wire code for an opcode.
func (o Opcode) Mnemonic() string {
	if m, ok := mnemonics[o]; ok {
		return m
	}
	return "?????"
}

func (o Opcode) String() string {
	if o == EXVSUM {
		return "EXVSUM"
	}
	return strings.TrimRight(o.Mnemonic(), "_")
}

// DecodeOpcode maps a 5-character mnemonic back to its opcode. Total
// lookup: the caller decides what an unrecognized mnemonic means (the
// hardware harness substitutes SDOTP, the generator refuses).
func DecodeOpcode(m string) (Opcode, bool) {
	for op, code := range mnemonics {
		if code == m {
			return op, true
		}
	}
	return 0, false
}

// ParseOperation maps a CLI operation name to its opcode. Only the four
// generatable operations are accepted here.
func ParseOperation(s string) (Opcode, bool) {
	switch strings.ToUpper(s) {
	case "SDOTP":
		return SDOTP, true
	case "VSUM":
		return VSUM, true
	case "EXVSUM":
		return EXVSUM, true
	case "FMADD":
		return FMADD, true
	}
	return 0, false
}

// Generatable reports whether the generator knows how to produce reference
// results for an opcode.
func (o Opcode) Generatable() bool {
	switch o {
	case SDOTP, VSUM, EXVSUM, FMADD:
		return true
	}
	return false
}

// Record is one stimulus line. Operands and Expected are packed hex
// strings whose lengths depend on the operation and format combination;
// the container width is fixed at 32 bits per vector field.
type Record struct {
	Opcode   string // 5-character mnemonic
	Mod      byte   // '0' or '1'
	Src      string // 4-character format tags
	Src2     string
	Dst      string
	Operands string
	Expected string
}

// Header is the comment line opening every stimuli file. The consumer
// discards it without inspection.
const Header = "//operation op_mod src_fmt src2_fmt dst_fmt operands exp_result"

// Line renders the record in the wire grammar:
// OPCODE MOD SRC SRC2 DST OPERANDS EXPECTED.
func (r Record) Line() string {
	return fmt.Sprintf("%s %c %s %s %s %s %s",
		r.Opcode, r.Mod, r.Src, r.Src2, r.Dst, r.Operands, r.Expected)
}

// ParseLine tokenizes one stimulus line with the fixed seven-token
// grammar. Any mismatch is an error; the consumer treats that as fatal.
func ParseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 7 {
		return Record{}, fmt.Errorf("expected 7 tokens, got %d", len(fields))
	}
	var r Record
	r.Opcode = fields[0]
	if len(r.Opcode) != 5 {
		return Record{}, fmt.Errorf("opcode %q is not 5 characters", r.Opcode)
	}
	switch fields[1] {
	case "0":
		r.Mod = '0'
	case "1":
		r.Mod = '1'
	default:
		return Record{}, fmt.Errorf("op_mod %q is not a single bit", fields[1])
	}
	for i, tag := range fields[2:5] {
		if len(tag) != 4 {
			return Record{}, fmt.Errorf("format tag %d %q is not 4 characters", i, tag)
		}
	}
	r.Src, r.Src2, r.Dst = fields[2], fields[3], fields[4]
	if err := checkHex(fields[5]); err != nil {
		return Record{}, fmt.Errorf("operands: %w", err)
	}
	if err := checkHex(fields[6]); err != nil {
		return Record{}, fmt.Errorf("exp_result: %w", err)
	}
	r.Operands, r.Expected = fields[5], fields[6]
	return r, nil
}

func checkHex(s string) error {
	if s == "" {
		return fmt.Errorf("empty hex field")
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return fmt.Errorf("invalid hex digit %q", c)
		}
	}
	return nil
}
