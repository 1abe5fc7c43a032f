package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"go.uber.org/zap"
)

// KioskHandler accepts photos taken by a kiosk page and submits them to the
// recognition service through the orchestrator of that kiosk.
type KioskHandler struct {
	kiosks  *workflow.Kiosks
	quality int
	logger  *zap.Logger
}

// NewKioskHandler creates a new kiosk handler. quality is the JPEG quality
// uploads are re-encoded with.
func NewKioskHandler(kiosks *workflow.Kiosks, quality int, logger *zap.Logger) *KioskHandler {
	return &KioskHandler{
		kiosks:  kiosks,
		quality: quality,
		logger:  logger.Named("kiosk"),
	}
}

// kioskID identifies the submitting kiosk by its X-Kiosk-ID header, falling
// back to the client address.
func kioskID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(constants.KioskIDHeader)); id != "" {
		return "id:" + id
	}
	return "ip:" + middleware.ClientIP(r)
}

func (h *KioskHandler) orchestrator(r *http.Request) *workflow.Orchestrator {
	return h.kiosks.For(kioskID(r))
}

// VerificationResponse is the body of a successful check-in or check-out.
type VerificationResponse struct {
	Success bool `json:"success"`
	*recognition.Verification
}

// EnrollResponse is the body of a successful enrollment.
type EnrollResponse struct {
	Success bool `json:"success"`
	*recognition.EnrollResult
}

// readArtifact turns one uploaded file into a capture artifact.
func (h *KioskHandler) readArtifact(fh *multipart.FileHeader) (*capture.Artifact, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, badRequest("failed to open file: %s", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, badRequest("failed to read file: %s", fh.Filename)
	}
	a, err := capture.ArtifactFromUpload(data, h.quality)
	if err != nil {
		return nil, badRequest("%s is not a supported image", fh.Filename)
	}
	return a, nil
}

// CheckIn handles POST with a multipart "image" field.
func (h *KioskHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, recognition.KindCheckIn)
}

// CheckOut handles POST with a multipart "image" field.
func (h *KioskHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, recognition.KindCheckOut)
}

func (h *KioskHandler) verify(w http.ResponseWriter, r *http.Request, kind recognition.Kind) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondFailure(w, h.logger, badRequest("failed to parse multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		respondFailure(w, h.logger, recognition.ErrNoArtifact)
		return
	}

	artifact, err := h.readArtifact(files[0])
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	result, err := h.orchestrator(r).Verify(r.Context(), kind, artifact)
	if err != nil {
		artifact.Release()
		h.logger.Info("verification failed",
			zap.String("kind", kind.String()),
			zap.String("reason", sanitizeForLog(err.Error())))
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, VerificationResponse{Success: true, Verification: result})
}

// identityFromForm reads the enrollment fields of a multipart form.
func identityFromForm(form *multipart.Form) recognition.Identity {
	value := func(name string) string {
		if v := form.Value[name]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return recognition.Identity{
		EmployeeCode: value("employee_code"),
		FullName:     value("full_name"),
		Email:        value("email"),
		Phone:        value("phone"),
		Department:   value("department"),
		Position:     value("position"),
	}
}

// Enroll handles POST with identity fields and repeated "images" files.
func (h *KioskHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondFailure(w, h.logger, badRequest("failed to parse multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) > constants.MaxEnrollmentPhotos {
		respondFailure(w, h.logger, fmt.Errorf("%d photos uploaded: %w", len(files), enrollment.ErrCollectorFull))
		return
	}

	collector := enrollment.NewCollector()
	defer collector.Reset()

	for _, fh := range files {
		a, err := h.readArtifact(fh)
		if err != nil {
			respondFailure(w, h.logger, err)
			return
		}
		if err := collector.Add(a); err != nil {
			respondFailure(w, h.logger, err)
			return
		}
	}

	identity := identityFromForm(r.MultipartForm)
	result, err := h.orchestrator(r).Enroll(r.Context(), identity, collector)
	if err != nil {
		var validation *enrollment.ValidationError
		if errors.As(err, &validation) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":  workflow.UserMessage(err),
				"fields": validation.Fields,
			})
			return
		}
		h.logger.Info("enrollment failed",
			zap.String("employee_code", sanitizeForLog(strings.TrimSpace(identity.EmployeeCode))),
			zap.Error(err))
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, EnrollResponse{Success: true, EnrollResult: result})
}
