package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"droneops-engine/internal/admin"
	"droneops-engine/internal/config"
	"droneops-engine/internal/logging"
	"droneops-engine/internal/scenario"
	"droneops-engine/internal/sim"
)

var (
	serveConfigPath string
	serveSchemaPath string
	servePlansPath  string
	serveAddr       string
	serveTick       time.Duration
	serveNoPoll     bool
	serveOutput     string
	servePrintOnly  bool
	serveLogFile    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the telemetry poll loop",
	Long:  "serve starts the fleet engine, exposes it over HTTP and streams telemetry, mission events and fleet summaries to the configured writers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logging.FromContext(ctx)

		cfg, err := loadConfig(serveConfigPath, serveSchemaPath)
		if err != nil {
			return err
		}
		cfg.ApplyEnv(os.Getenv)

		plans, err := loadPlans(cfg, servePlansPath)
		if err != nil {
			return err
		}

		output, err := resolveOutput(serveOutput, stdoutIsTerminal())
		if err != nil {
			return err
		}
		if output == outputTUI && logOutput == "" {
			// Log lines would tear the alternate screen.
			log = logging.Discard()
			ctx = logging.NewContext(ctx, log)
		}

		writer, cleanup, err := newWriters(cfg, writerOptions{Output: output, PrintOnly: servePrintOnly, LogFile: serveLogFile}, os.Getenv, log)
		if err != nil {
			return err
		}
		defer cleanup()

		var faults sim.Faults = sim.NoFaults{}
		if cfg.Faults.Enabled {
			seed := cfg.Faults.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			faults = sim.NewRandomFaults(cfg.Faults.OfflineBlipRate, cfg.Faults.CommandFailureRate, seed)
			log.Info("fault injection enabled", "offline_blip_rate", cfg.Faults.OfflineBlipRate, "command_failure_rate", cfg.Faults.CommandFailureRate)
		}

		engine := sim.New(cfg, sim.Options{Faults: faults, Writer: writer, Plans: plans})
		srv := admin.NewServer(engine, log)

		tick := serveTick
		if tick <= 0 {
			tick = cfg.Tick()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			setAdminStatus(writer, true)
			defer setAdminStatus(writer, false)
			return srv.Start(gctx, serveAddr)
		})
		if !serveNoPoll {
			g.Go(func() error {
				engine.Run(gctx, tick)
				return nil
			})
		}
		err = g.Wait()
		log.Info("engine stopped")
		return err
	},
}

func setAdminStatus(w sim.TelemetryWriter, active bool) {
	if aw, ok := w.(sim.AdminStatusWriter); ok {
		aw.SetAdminStatus(active)
	}
}

// loadConfig reads configPath, or returns the built-in dataset when empty.
func loadConfig(configPath, schemaPath string) (*config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(configPath, schemaPath)
}

// loadPlans overlays the built-in plans with the plan file named by flag or
// config.
func loadPlans(cfg *config.Config, path string) (map[string]scenario.Plan, error) {
	if path == "" {
		path = cfg.PlansFile
	}
	if path == "" {
		return scenario.BuiltIn(), nil
	}
	extra, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	return scenario.Merge(extra), nil
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to engine configuration YAML (built-in fleet when empty)")
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	serveCmd.Flags().StringVar(&servePlansPath, "plans", "", "Path to mission plan YAML")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().DurationVar(&serveTick, "tick", 0, "Telemetry poll interval (e.g. 500ms, 2s); config value when 0")
	serveCmd.Flags().BoolVar(&serveNoPoll, "no-poll", false, "Only advance the fleet on telemetry requests")
	serveCmd.Flags().StringVar(&serveOutput, "output", outputAuto, "Console output: auto, json, color, tui or none")
	serveCmd.Flags().BoolVar(&servePrintOnly, "print-only", false, "Skip GreptimeDB even when GREPTIMEDB_ENDPOINT is set")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Export telemetry, mission events and fleet state as JSONL")
}

