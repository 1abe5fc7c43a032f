package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

const genericMessage = "Something went wrong. Please try again."

// UserMessage turns an error of any workflow step into a message for the
// person at the kiosk. Every message describes a state the user can retry from.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		rejected   *recognition.RejectedError
		transport  *recognition.TransportError
		validation *enrollment.ValidationError
		device     *capture.DeviceAccessError
		fetch      *attendance.DataFetchError
	)

	switch {
	case errors.Is(err, ErrSubmissionInFlight):
		return "A submission is already in progress. Please wait."
	case errors.Is(err, ErrDialogClosed):
		return "The dialog was closed before the result arrived."
	case errors.As(err, &device):
		return deviceMessage(device)
	case errors.Is(err, capture.ErrNoActiveStream):
		return "The camera is not active. Open the camera and try again."
	case errors.Is(err, recognition.ErrNoArtifact):
		return "Please take a photo first."
	case errors.Is(err, enrollment.ErrInsufficientPhotos):
		return fmt.Sprintf("At least %d photos are required.", constants.MinEnrollmentPhotos)
	case errors.Is(err, enrollment.ErrCollectorFull):
		return fmt.Sprintf("At most %d photos can be taken.", constants.MaxEnrollmentPhotos)
	case errors.Is(err, enrollment.ErrIndexOutOfRange):
		return "That photo no longer exists."
	case errors.As(err, &validation):
		msgs := make([]string, 0, len(validation.Fields))
		for _, f := range validation.Fields {
			msgs = append(msgs, f.Message)
		}
		return strings.Join(msgs, ". ") + "."
	case errors.Is(err, recognition.ErrDuplicateIdentity):
		return "An employee with this code is already enrolled."
	case errors.As(err, &rejected):
		if rejected.Reason == "" || rejected.Reason == recognition.DefaultReason {
			return "Verification failed. Please try again with a new photo."
		}
		return rejected.Reason
	case errors.As(err, &transport):
		return "The recognition service is not reachable. Please try again."
	case errors.Is(err, attendance.ErrInvalidFilter):
		return "The attendance filter is not valid."
	case errors.As(err, &fetch):
		return "Failed to load attendance data. Please try again."
	}
	return genericMessage
}

func deviceMessage(err *capture.DeviceAccessError) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Camera permission denied. Allow camera access and try again."
	case errors.Is(err, capture.ErrDeviceNotFound):
		return "No camera found. Connect a camera and try again."
	case errors.Is(err, capture.ErrDeviceBusy):
		return "The camera is in use by another application."
	default:
		return "Cannot access the camera."
	}
}
