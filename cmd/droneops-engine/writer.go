package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"droneops-engine/internal/config"
	"droneops-engine/internal/sim"
)

// Output formats for the console writer.
const (
	outputAuto  = "auto"
	outputJSON  = "json"
	outputColor = "color"
	outputTUI   = "tui"
	outputNone  = "none"
)

type writerOptions struct {
	Output    string
	PrintOnly bool
	LogFile   string
}

// resolveOutput picks the console output for "auto": the TUI on an
// interactive terminal, JSON lines otherwise.
func resolveOutput(output string, isTTY bool) (string, error) {
	switch output {
	case "", outputAuto:
		if isTTY {
			return outputTUI, nil
		}
		return outputJSON, nil
	case outputJSON, outputColor, outputTUI, outputNone:
		return output, nil
	}
	return "", fmt.Errorf("unknown output %q (want auto, json, color, tui or none)", output)
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newWriters sets up the writer chain based on flags and env vars. It returns
// the writer and a cleanup function closing any resources.
func newWriters(cfg *config.Config, opts writerOptions, getenv func(string) string, log *slog.Logger) (sim.TelemetryWriter, func(), error) {
	var (
		writers []sim.TelemetryWriter
		closers []io.Closer
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Error("close writer", "err", err)
			}
		}
	}

	output, err := resolveOutput(opts.Output, stdoutIsTerminal())
	if err != nil {
		return nil, nil, err
	}
	switch output {
	case outputJSON:
		writers = append(writers, sim.NewJSONStdoutWriter())
	case outputColor:
		writers = append(writers, sim.NewColorStdoutWriter(cfg))
	case outputTUI:
		tw := sim.NewTUIWriter(cfg)
		writers = append(writers, tw)
		closers = append(closers, tw)
	}

	if endpoint := getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" && !opts.PrintOnly {
		database := getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		gw, err := sim.NewGreptimeDBWriter(endpoint, database, log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		log.Info("writing telemetry to GreptimeDB", "endpoint", endpoint, "database", database)
		writers = append(writers, gw)
	}

	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(opts.LogFile, opts.LogFile+".events", opts.LogFile+".state")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		writers = append(writers, fw)
		closers = append(closers, fw)
	}

	switch len(writers) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return writers[0], cleanup, nil
	}
	return sim.NewMultiWriter(writers...), cleanup, nil
}
