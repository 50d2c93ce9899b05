// stimgen generates a golden-reference stimuli file for the
// mixed-precision vector FPU testbench.
//
// Positional arguments (in order): count operation src_fmt src2_fmt dst_fmt.
// Valid operations: SDOTP, VSUM, EXVSUM, FMADD.
// Valid formats: FP32, FP16, AL16, FP08, AL08 (FP8 and AL8 accepted).
// Omitted formats follow the operation's conventional triple.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/23skdu/fpstim/internal/config"
	"github.com/23skdu/fpstim/internal/generator"
	"github.com/23skdu/fpstim/internal/logger"
	"github.com/23skdu/fpstim/internal/metrics"
	"github.com/23skdu/fpstim/internal/stimuli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	output      = flag.String("out", "stimuli.txt", "Output path (.gz/.zst/.lz4 suffix enables compression)")
	seed        = flag.Int64("seed", 1, "Seed for the random operand stream")
	opMod       = flag.Bool("mod", false, "Set the operation modifier bit")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat   = flag.String("log-format", "console", "Log format (console or json)")
	metricsAddr = flag.String("metrics", "", "Address to serve Prometheus metrics (empty disables)")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	cfg := config.Default()
	cfg.Seed = *seed
	cfg.OpMod = *opMod
	cfg.Output = *output

	args := flag.Args()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			logger.Log.Fatal("invalid stimulus count", "arg", args[0], "error", err)
		}
		cfg.Count = n
	}
	if len(args) > 1 {
		cfg.Operation = args[1]
	}
	if len(args) > 4 {
		cfg.SrcFmt, cfg.Src2Fmt, cfg.DstFmt = args[2], args[3], args[4]
	} else if len(args) > 2 {
		logger.Log.Fatal("formats must be given as a full src_fmt src2_fmt dst_fmt triple")
	}
	cfg.ApplyOperationDefaults()
	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("invalid generation config", "error", err)
	}

	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			logger.Log.Info("metrics serving", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logger.Log.Error("metrics server error", "error", err)
			}
		}()
	}

	src, src2, dst := cfg.Formats()
	gen, err := generator.New(cfg.Opcode(), src, src2, dst, cfg.Seed)
	if err != nil {
		logger.Log.Fatal("generator setup failed", "error", err)
	}

	w, err := stimuli.NewWriter(cfg.Output)
	if err != nil {
		// Fatal before any test data exists; nothing to clean up.
		logger.Log.Fatal("cannot open output", "path", cfg.Output, "error", err)
	}

	logger.Log.Info("generating stimuli",
		"count", cfg.Count,
		"operation", cfg.Operation,
		"src_fmt", cfg.SrcFmt,
		"src2_fmt", cfg.Src2Fmt,
		"dst_fmt", cfg.DstFmt,
		"seed", cfg.Seed,
		"out", cfg.Output,
	)

	start := time.Now()
	if err := gen.Run(w, cfg.Count, cfg.Mod()); err != nil {
		w.Close()
		logger.Log.Fatal("generation failed", "error", err)
	}
	records, bytes, digest := w.Records(), w.Bytes(), w.Digest()
	if err := w.Close(); err != nil {
		logger.Log.Fatal("closing output failed", "error", err)
	}
	metrics.RecordGeneration(time.Since(start), bytes)

	stats := gen.Stats()
	mean, std := stats.FiniteMeanStdDev()
	logger.Log.Info("draw distribution",
		"draws", stats.Draws,
		"nan", stats.NaNs,
		"inf", stats.Infs,
		"subnormal", stats.Subnormals,
		"zero", stats.Zeros,
		"finite_mean", mean,
		"finite_stddev", std,
	)
	logger.Log.Info("finished 32-bit stimuli file generation",
		"records", records,
		"bytes", bytes,
		"digest", fmt.Sprintf("%016x", digest),
		"elapsed", time.Since(start).String(),
	)
	os.Exit(0)
}
