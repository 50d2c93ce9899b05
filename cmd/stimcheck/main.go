// stimcheck replays a stimuli file through a software model of the
// consuming harness: it parses every record with the fixed token grammar,
// recomputes the reference result from the packed operands, aligns
// expected values through a fixed-latency pipeline, and compares with the
// relaxed NaN-equivalence rule.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/23skdu/fpstim/internal/checker"
	"github.com/23skdu/fpstim/internal/logger"
	"github.com/23skdu/fpstim/internal/stimuli"
)

var (
	latency   = flag.Int("latency", 3, "Pipeline latency in cycles")
	logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat = flag.String("log-format", "console", "Log format (console or json)")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: stimcheck [flags] <stimuli file>")
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	r, err := stimuli.OpenReader(path)
	if err != nil {
		logger.Log.Fatal("cannot open stimuli file", "path", path, "error", err)
	}
	defer r.Close()

	c := checker.New(*latency, nil)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A malformed line is fatal, matching the hardware harness.
			logger.Log.Fatal("parse failure", "path", path, "error", err)
		}
		if err := c.Issue(rec); err != nil {
			logger.Log.Fatal("recompute failure", "line", r.Line(), "error", err)
		}
	}
	if err := c.Finish(); err != nil {
		logger.Log.Fatal("recompute failure during drain", "error", err)
	}

	for _, m := range c.Mismatches {
		logger.Log.Error("mismatch", "detail", m.String())
	}
	logger.Log.Info("check complete",
		"path", path,
		"records", r.Line()-1,
		"compared", c.Compared,
		"mismatches", len(c.Mismatches),
		"latency", *latency,
		"digest", fmt.Sprintf("%016x", r.Digest()),
	)
	if len(c.Mismatches) > 0 {
		os.Exit(1)
	}
}
