package main

import (
	"os"

	"github.com/spf13/cobra"

	"droneops-engine/internal/config"
	"droneops-engine/internal/logging"
	"droneops-engine/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayOutput    string
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry log file",
	Long:  "replay feeds telemetry rows from a JSONL log file back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logging.FromContext(ctx)
		cfg := config.Default()
		cfg.ApplyEnv(os.Getenv)
		writer, cleanup, err := newWriters(&cfg, writerOptions{Output: replayOutput, PrintOnly: replayPrintOnly}, os.Getenv, log)
		if err != nil {
			return err
		}
		defer cleanup()
		if writer == nil {
			writer = sim.NewJSONStdoutWriter()
		}
		n, err := sim.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		log.Info("replay finished", "rows", n, "input", replayInput)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delay)")
	replayCmd.Flags().StringVar(&replayOutput, "output", outputJSON, "Console output: json, color or none")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	_ = replayCmd.MarkFlagRequired("input")
}
