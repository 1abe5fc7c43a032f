package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance web server.
It serves the attendance read API (records, employees, stats, XLSX export)
and accepts kiosk check-in, check-out and enrollment submissions.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// resolveServeHostPort applies the flags over the configuration.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, cfg)

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := openRedis(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	stats := attendance.NewStatsCache(svc, rdb, cfg.Cache.StatsTTL, log)
	client := recognition.NewClient(cfg.Recognition, log)
	verifier := recognition.NewVerifier(client, log)
	invalidateStats := workflow.RefreshFunc(func(ctx context.Context) error {
		stats.Invalidate(ctx)
		return nil
	})
	kiosks := workflow.NewKiosks(func() *workflow.Orchestrator {
		return workflow.New(verifier, client, workflow.WithLogger(log), workflow.WithRefresher(invalidateStats))
	}, 0)

	server := web.NewServer(cfg, web.Dependencies{
		Kiosks: kiosks,
		Health: client,
		Stats:  stats,
		Logger: log,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("error during shutdown", zap.Error(err))
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Printf("Recognition service: %s\n", client.BaseURL())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
