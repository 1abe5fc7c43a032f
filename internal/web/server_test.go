package web

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, kind recognition.Kind, a *capture.Artifact) (*recognition.Verification, error) {
	a.Release()
	return nil, &recognition.RejectedError{Op: kind.String(), Reason: "no match"}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	att := mock.NewMockAttendanceReader()
	emp := mock.NewMockEmployeeReader()
	database.RegisterBackend("mock",
		func() database.AttendanceReader { return att },
		func() database.EmployeeReader { return emp })
	t.Cleanup(func() { database.RegisterBackend("", nil, nil) })

	cfg := config.Defaults()
	cfg.Web.RateLimit = 1
	cfg.Web.RateBurst = 1
	cfg.Cache.StatsTTL = time.Minute

	return NewServer(&cfg, Dependencies{
		Kiosks: workflow.NewKiosks(func() *workflow.Orchestrator {
			return workflow.New(stubVerifier{}, nil)
		}, 0),
	})
}

func TestRoutes(t *testing.T) {
	router := testServer(t).Router()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/attendance", http.StatusOK},
		{http.MethodGet, "/api/v1/attendance/export", http.StatusOK},
		{http.MethodGet, "/api/v1/employees", http.StatusOK},
		{http.MethodGet, "/api/v1/employees/42", http.StatusNotFound},
		{http.MethodGet, "/api/v1/stats", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func kioskRequest(t *testing.T) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "empty"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/kiosk/checkin", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "192.0.2.10:4242"
	return req
}

func TestKioskRoutes_RateLimited(t *testing.T) {
	router := testServer(t).Router()

	first := httptest.NewRecorder()
	router.ServeHTTP(first, kioskRequest(t))
	assert.Equal(t, http.StatusBadRequest, first.Code, "request without a photo")

	second := httptest.NewRecorder()
	router.ServeHTTP(second, kioskRequest(t))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestServer_CORSAndRequestID(t *testing.T) {
	router := testServer(t).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
