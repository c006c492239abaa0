package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
	"github.com/vietddude/sifter/internal/control"
	"github.com/vietddude/sifter/internal/core/config"
	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/scan/processor"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "sift",
	Short: "Sifter scan service",
	Long: `Sifter crawls a paginated listing through a browser-automation service,
classifies each discovered item, and accumulates matches into durable
checkpoints with self-healing process handoff on unrecoverable faults.`,
	Run: runScan,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// newApp loads env + config, initializes logging and wires the application.
func newApp() *control.Sifter {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})

	app, err := control.New(control.Config{
		App:     *cfg,
		CfgPath: cfgPath,
		Credentials: domain.Credentials{
			Username: os.Getenv("AUTOMATION_USERNAME"),
			Password: os.Getenv("AUTOMATION_PASSWORD"),
		},
	})
	if err != nil {
		slog.Error("Failed to initialize Sifter", "error", err)
		os.Exit(1)
	}
	return app
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, args []string) {
	app := newApp()
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()
	app.StartHealthServer(ctx)

	report, err := app.Run(ctx)
	finishRun(report, err)
}

// finishRun maps the run outcome to the caller-visible result: a final
// report, a pending acknowledgment on healing, or a failure.
func finishRun(report *domain.Report, err error) {
	switch {
	case errors.Is(err, processor.ErrHealingInProgress):
		slog.Warn("Run handed off to a healing worker; results will land in the state directory")
		return
	case err != nil:
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Run completed",
		"run", report.RunID,
		"generation", report.Generation,
		"processed", report.Processed,
		"accepted", report.Accepted,
		"skipped", report.Skipped,
		"success_rate", report.SuccessRate(),
		"final", report.FinalFile,
	)
}
