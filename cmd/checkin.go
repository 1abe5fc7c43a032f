package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Check in with a photo from the camera",
	Long: `Takes one photo from the configured camera (or --image) and submits it to
the recognition service for check-in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, recognition.KindCheckIn)
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Check out with a photo from the camera",
	Long: `Takes one photo from the configured camera (or --image) and submits it to
the recognition service for check-out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, recognition.KindCheckOut)
	},
}

func init() {
	for _, c := range []*cobra.Command{checkinCmd, checkoutCmd} {
		rootCmd.AddCommand(c)
		c.Flags().String("camera-dir", "", "Directory of still images used as camera (overrides CAMERA_DIR)")
		c.Flags().String("image", "", "Submit this image file instead of using the camera")
	}
}

// dailySummary prints today's totals after a successful submission when a
// database is configured.
func dailySummary(cfg *config.Config, log *zap.Logger) (workflow.Option, func()) {
	if cfg.Database.URL == "" {
		return nil, func() {}
	}
	svc, store, err := openStore(cfg, log)
	if err != nil {
		log.Warn("attendance summary disabled", zap.Error(err))
		return nil, func() {}
	}
	refresh := workflow.RefreshFunc(func(ctx context.Context) error {
		today, err := svc.DailyStats(ctx, svc.Today())
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Printf("Today: %d recorded (%d present, %d late, %d absent)\n",
				today.Total, today.Present, today.Late, today.Absent)
		}
		return nil
	})
	return workflow.WithRefresher(refresh), func() { store.Close() }
}

func newOrchestrator(cfg *config.Config, log *zap.Logger) (*workflow.Orchestrator, func()) {
	client := recognition.NewClient(cfg.Recognition, log)
	opts := []workflow.Option{workflow.WithLogger(log)}

	summary, closeStore := dailySummary(cfg, log)
	if summary != nil {
		opts = append(opts, summary)
	}
	return workflow.New(recognition.NewVerifier(client, log), client, opts...), closeStore
}

// verifyImageFile submits a still image from disk.
func verifyImageFile(ctx context.Context, orch *workflow.Orchestrator, kind recognition.Kind, path string, quality int) (*recognition.Verification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	artifact, err := capture.ArtifactFromUpload(data, quality)
	if err != nil {
		return nil, err
	}
	return orch.Verify(ctx, kind, artifact)
}

// verifyFromCamera runs a check dialog: open camera, take one photo, submit.
func verifyFromCamera(ctx context.Context, orch *workflow.Orchestrator, kind recognition.Kind, cfg config.CameraConfig, dir string) (*recognition.Verification, error) {
	device, err := openDevice(cfg, dir)
	if err != nil {
		return nil, err
	}

	dialog, err := orch.OpenCheckDialog(ctx, kind, device, sessionOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	defer dialog.Close()

	if _, err := dialog.Capture(); err != nil {
		return nil, err
	}
	return dialog.Submit(ctx)
}

func runVerify(cmd *cobra.Command, kind recognition.Kind) error {
	cfg := config.Load()
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	orch, closeStore := newOrchestrator(cfg, log)
	defer closeStore()

	var result *recognition.Verification
	if image := mustGetString(cmd, "image"); image != "" {
		result, err = verifyImageFile(ctx, orch, kind, image, cfg.Camera.JPEGQuality)
	} else {
		result, err = verifyFromCamera(ctx, orch, kind, cfg.Camera, mustGetString(cmd, "camera-dir"))
	}
	if err != nil {
		return fmt.Errorf("%s failed: %s", kind, workflow.UserMessage(err))
	}

	if jsonOutput {
		return printJSON(result)
	}

	emp := result.Employee
	fmt.Printf("%s\n", result.Message)
	fmt.Printf("  Employee:   %s (%s)\n", emp.FullName, emp.Code)
	if emp.Department != nil {
		fmt.Printf("  Department: %s\n", *emp.Department)
	}
	fmt.Printf("  Confidence: %s\n", percentOrDash(&result.Confidence))
	fmt.Printf("  Time:       %s\n", result.VerifiedAt.Format("15:04:05"))
	return nil
}
