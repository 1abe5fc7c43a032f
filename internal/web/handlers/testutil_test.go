package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"go.uber.org/zap"
)

// withMockBackend registers mock readers as the active backend for one test
func withMockBackend(t *testing.T) (*mock.MockAttendanceReader, *mock.MockEmployeeReader) {
	t.Helper()
	att := mock.NewMockAttendanceReader()
	emp := mock.NewMockEmployeeReader()
	database.RegisterBackend("mock",
		func() database.AttendanceReader { return att },
		func() database.EmployeeReader { return emp })
	t.Cleanup(func() { database.RegisterBackend("", nil, nil) })
	return att, emp
}

// withoutBackend clears the registered backend for one test
func withoutBackend(t *testing.T) {
	t.Helper()
	database.RegisterBackend("", nil, nil)
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// loadTestData reads a recognition service response from testdata
func loadTestData(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", name, err)
	}
	return data
}

// setupMockRecognitionServer creates a mock recognition service
func setupMockRecognitionServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// jsonResponse replies with a fixed status and body
func jsonResponse(status int, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body)
	}
}

// newRecognitionClient creates a client connected to a mock server
func newRecognitionClient(server *httptest.Server) *recognition.Client {
	return recognition.NewClient(config.RecognitionConfig{URL: server.URL, Timeout: 2 * time.Second}, zap.NewNop())
}

// newKioskHandler wires a kiosk handler to a mock recognition server
func newKioskHandler(server *httptest.Server, opts ...workflow.Option) *KioskHandler {
	client := newRecognitionClient(server)
	kiosks := workflow.NewKiosks(func() *workflow.Orchestrator {
		return workflow.New(recognition.NewVerifier(client, zap.NewNop()), client, opts...)
	}, 0)
	return NewKioskHandler(kiosks, 90, zap.NewNop())
}

// pngBytes encodes a solid test image
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := range 240 {
		for x := range 320 {
			img.Set(x, y, color.RGBA{120, 90, 60, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST with form fields and count image files under field
func multipartRequest(t *testing.T, path string, fields map[string]string, field string, count int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	img := pngBytes(t)
	for i := range count {
		fw, err := mw.CreateFormFile(field, "photo"+string(rune('a'+i))+".png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(img)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
