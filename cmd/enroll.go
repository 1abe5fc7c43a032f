package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a new employee",
	Long: fmt.Sprintf(`Captures %d to %d photos of a new employee from the camera (or uses --image
files) and registers them with the recognition service.`,
		constants.MinEnrollmentPhotos, constants.MaxEnrollmentPhotos),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("code", "", "Employee code (required)")
	enrollCmd.Flags().String("name", "", "Full name (required)")
	enrollCmd.Flags().String("email", "", "Email address")
	enrollCmd.Flags().String("phone", "", "Phone number")
	enrollCmd.Flags().String("department", "", "Department")
	enrollCmd.Flags().String("position", "", "Position")
	enrollCmd.Flags().Int("photos", constants.MinEnrollmentPhotos, "Number of photos to capture from the camera")
	enrollCmd.Flags().Duration("interval", time.Second, "Pause between camera captures")
	enrollCmd.Flags().String("camera-dir", "", "Directory of still images used as camera (overrides CAMERA_DIR)")
	enrollCmd.Flags().StringSlice("image", nil, "Image files to enroll instead of using the camera (repeatable)")
}

func identityFromFlags(cmd *cobra.Command) recognition.Identity {
	return recognition.Identity{
		EmployeeCode: mustGetString(cmd, "code"),
		FullName:     mustGetString(cmd, "name"),
		Email:        mustGetString(cmd, "email"),
		Phone:        mustGetString(cmd, "phone"),
		Department:   mustGetString(cmd, "department"),
		Position:     mustGetString(cmd, "position"),
	}
}

func newCaptureBar(n int, description string) *progressbar.ProgressBar {
	if jsonOutput {
		return progressbar.DefaultSilent(int64(n))
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
}

// enrollFromFiles fills a collector from image files and submits it.
func enrollFromFiles(ctx context.Context, orch *workflow.Orchestrator, identity recognition.Identity, paths []string, quality int) (*recognition.EnrollResult, error) {
	collector := enrollment.NewCollector()
	defer collector.Reset()

	bar := newCaptureBar(len(paths), "Loading photos")
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		a, err := capture.ArtifactFromUpload(data, quality)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := collector.Add(a); err != nil {
			return nil, err
		}
		bar.Add(1)
	}
	bar.Finish()

	return orch.Enroll(ctx, identity, collector)
}

// enrollFromCamera runs an enrollment dialog capturing n photos.
func enrollFromCamera(ctx context.Context, orch *workflow.Orchestrator, identity recognition.Identity, cfg config.CameraConfig, dir string, n int, interval time.Duration) (*recognition.EnrollResult, error) {
	if n < constants.MinEnrollmentPhotos || n > constants.MaxEnrollmentPhotos {
		return nil, fmt.Errorf("--photos must be between %d and %d", constants.MinEnrollmentPhotos, constants.MaxEnrollmentPhotos)
	}
	device, err := openDevice(cfg, dir)
	if err != nil {
		return nil, err
	}

	dialog, err := orch.OpenEnrollmentDialog(ctx, device, sessionOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	defer dialog.Close()

	bar := newCaptureBar(n, "Capturing photos")
	for i := range n {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}
		if _, err := dialog.Capture(); err != nil {
			return nil, err
		}
		bar.Add(1)
	}
	bar.Finish()

	return dialog.Submit(ctx, identity)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	identity := identityFromFlags(cmd)
	if err := enrollment.ValidateIdentity(enrollment.NormalizeIdentity(identity)); err != nil {
		return errors.New(workflow.UserMessage(err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	orch, closeStore := newOrchestrator(cfg, log)
	defer closeStore()

	var result *recognition.EnrollResult
	if images := mustGetStringSlice(cmd, "image"); len(images) > 0 {
		result, err = enrollFromFiles(ctx, orch, identity, images, cfg.Camera.JPEGQuality)
	} else {
		result, err = enrollFromCamera(ctx, orch, identity, cfg.Camera, mustGetString(cmd, "camera-dir"),
			mustGetInt(cmd, "photos"), mustGetDuration(cmd, "interval"))
	}
	if err != nil {
		return fmt.Errorf("enrollment failed: %s", workflow.UserMessage(err))
	}

	if jsonOutput {
		return printJSON(result)
	}
	fmt.Printf("\n%s\n", result.Message)
	fmt.Printf("  Employee ID: %d\n", result.EmployeeID)
	return nil
}
