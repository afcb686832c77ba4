package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"droneops-engine/internal/logging"
)

var (
	logLevel  string
	logOutput string
	logJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   "droneops-engine",
	Short: "DroneOps fleet simulation and mission engine",
	Long:  "droneops-engine simulates a drone fleet, executes waypoint missions and streams telemetry to stdout, files or GreptimeDB.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		log, err := logging.NewWithOptions(logging.Options{Level: logLevel, File: logOutput, JSON: logJSON})
		if err != nil {
			return err
		}
		slog.SetDefault(log)
		cmd.SetContext(logging.NewContext(cmd.Context(), log))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "", "Write application logs to this rotating file instead of STDOUT")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit application logs as JSON")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
}
