package config

import (
	"testing"

	"github.com/23skdu/fpstim/internal/format"
	"github.com/23skdu/fpstim/internal/stimuli"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Count != 10 {
		t.Errorf("expected Count 10, got %d", cfg.Count)
	}
	if cfg.Operation != "SDOTP" {
		t.Errorf("expected Operation SDOTP, got %q", cfg.Operation)
	}
	if cfg.Output != "stimuli.txt" {
		t.Errorf("expected Output stimuli.txt, got %q", cfg.Output)
	}
	cfg.ApplyOperationDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestApplyOperationDefaults(t *testing.T) {
	tests := []struct {
		op             string
		src, src2, dst string
	}{
		{"SDOTP", "FP16", "FP16", "FP32"},
		{"VSUM", "FP16", "FP16", "FP16"},
		{"EXVSUM", "FP16", "FP16", "FP32"},
		{"FMADD", "FP32", "FP32", "FP32"},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			cfg := Default()
			cfg.Operation = tt.op
			cfg.ApplyOperationDefaults()
			if cfg.SrcFmt != tt.src || cfg.Src2Fmt != tt.src2 || cfg.DstFmt != tt.dst {
				t.Errorf("defaults = %s/%s/%s, want %s/%s/%s",
					cfg.SrcFmt, cfg.Src2Fmt, cfg.DstFmt, tt.src, tt.src2, tt.dst)
			}
		})
	}
}

func TestApplyOperationDefaultsKeepsExplicit(t *testing.T) {
	cfg := Default()
	cfg.Operation = "SDOTP"
	cfg.SrcFmt = "FP08"
	cfg.ApplyOperationDefaults()
	if cfg.SrcFmt != "FP08" {
		t.Errorf("explicit src_fmt overridden: %q", cfg.SrcFmt)
	}
	if cfg.Src2Fmt != "FP16" || cfg.DstFmt != "FP32" {
		t.Errorf("unset tags not defaulted: %s/%s", cfg.Src2Fmt, cfg.DstFmt)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.ApplyOperationDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero count", func(c *Config) { c.Count = 0 }, true},
		{"negative count", func(c *Config) { c.Count = -3 }, true},
		{"bad operation", func(c *Config) { c.Operation = "DIV" }, true},
		{"bad src", func(c *Config) { c.SrcFmt = "FP42" }, true},
		{"fp64 dst reserved", func(c *Config) { c.DstFmt = "FP64" }, true},
		{"fp64 src reserved", func(c *Config) { c.SrcFmt = "FP64" }, true},
		{"empty output", func(c *Config) { c.Output = "" }, true},
		{"legacy fp8 tag", func(c *Config) { c.SrcFmt = "FP8" }, false},
		{"legacy al8 tag", func(c *Config) { c.Src2Fmt = "AL8" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	cfg := Default()
	cfg.ApplyOperationDefaults()
	if cfg.Opcode() != stimuli.SDOTP {
		t.Errorf("Opcode() = %v", cfg.Opcode())
	}
	src, src2, dst := cfg.Formats()
	if src != format.FP16 || src2 != format.FP16 || dst != format.FP32 {
		t.Errorf("Formats() = %v/%v/%v", src, src2, dst)
	}
	if cfg.Mod() != '0' {
		t.Errorf("Mod() = %c", cfg.Mod())
	}
	cfg.OpMod = true
	if cfg.Mod() != '1' {
		t.Errorf("Mod() = %c", cfg.Mod())
	}
}
