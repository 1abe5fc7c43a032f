// Package recognition talks to the face-recognition service that performs
// enrollment and check-in/check-out matching.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"go.uber.org/zap"
)

const defaultBaseURL = "http://localhost:8000"

// RequestIDHeader carries a per-request id so client and service logs can be correlated.
const RequestIDHeader = "X-Request-ID"

// Client calls the recognition service over HTTP. Every call is a single
// request, there are no retries.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the configured service.
func NewClient(cfg config.RecognitionConfig, logger *zap.Logger) *Client {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.Named("recognition"),
	}
}

// BaseURL returns the service URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// formFile is one file part of a multipart request.
type formFile struct {
	field    string
	filename string
	mime     string
	data     []byte
}

func artifactFile(field string, a *capture.Artifact) formFile {
	mime := a.ContentType
	if mime == "" {
		mime = "image/jpeg"
	}
	return formFile{field: field, filename: a.Filename(), mime: mime, data: a.Data}
}

// buildMultipart writes the fields in order followed by the files in order.
func buildMultipart(fields [][2]string, files []formFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		h.Set("Content-Type", f.mime)
		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, "", fmt.Errorf("failed to write image data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// do sends the request and decodes the service envelope. Failures are
// returned as *RejectedError or *TransportError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body io.Reader, contentType string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("could not create request: %w", err)}
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log := c.logger.With(zap.String("op", op), zap.String("request_id", requestID))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn("recognition request failed", zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("could not read response body: %w", err)}
	}

	log.Debug("recognition response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode >= 500:
		// The service wraps its own 4xx answers into a 500 with detail "400: <reason>".
		if decodeErr == nil {
			if reason, ok := wrappedClientError(env.reason()); ok {
				return nil, &RejectedError{Op: op, StatusCode: resp.StatusCode, Reason: reason}
			}
		}
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorText(raw, env, decodeErr))}
	case resp.StatusCode >= 400:
		if decodeErr != nil {
			return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("could not unmarshal response: %w", decodeErr)}
		}
		return nil, &RejectedError{Op: op, StatusCode: resp.StatusCode, Reason: env.reasonOrDefault()}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if decodeErr != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("could not unmarshal response: %w", decodeErr)}
	}
	if env.Success != nil && !*env.Success {
		return nil, &RejectedError{Op: op, StatusCode: resp.StatusCode, Reason: env.reasonOrDefault()}
	}
	return &env, nil
}

var wrappedStatus = regexp.MustCompile(`^4\d\d:\s*`)

func wrappedClientError(reason string) (string, bool) {
	loc := wrappedStatus.FindStringIndex(reason)
	if loc == nil {
		return "", false
	}
	if r := strings.TrimSpace(reason[loc[1]:]); r != "" {
		return r, true
	}
	return DefaultReason, true
}

func errorText(raw []byte, env envelope, decodeErr error) string {
	if decodeErr == nil {
		if r := env.reason(); r != "" {
			return r
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	if text == "" {
		return "empty response"
	}
	return text
}

// reason picks the most specific explanation the service gave.
func (e envelope) reason() string {
	switch d := e.Detail.(type) {
	case string:
		if d != "" {
			return d
		}
	case []any:
		// Request validation errors: [{"loc": [...], "msg": "...", "type": "..."}]
		if len(d) > 0 {
			if item, ok := d[0].(map[string]any); ok {
				if msg, ok := item["msg"].(string); ok && msg != "" {
					return msg
				}
			}
		}
	}
	if e.Reason != "" {
		return e.Reason
	}
	return e.Message
}

func (e envelope) reasonOrDefault() string {
	if r := e.reason(); r != "" {
		return r
	}
	return DefaultReason
}

// Enroll registers a new employee with 3 to 5 face photos in one request.
// A conflict on the employee code is returned as ErrDuplicateIdentity.
func (c *Client) Enroll(ctx context.Context, identity Identity, artifacts []*capture.Artifact) (*EnrollResult, error) {
	fields := [][2]string{
		{"employee_code", identity.EmployeeCode},
		{"full_name", identity.FullName},
	}
	for _, opt := range [][2]string{
		{"email", identity.Email},
		{"phone", identity.Phone},
		{"department", identity.Department},
		{"position", identity.Position},
	} {
		if opt[1] != "" {
			fields = append(fields, opt)
		}
	}

	files := make([]formFile, 0, len(artifacts))
	for _, a := range artifacts {
		files = append(files, artifactFile("images", a))
	}

	body, contentType, err := buildMultipart(fields, files)
	if err != nil {
		return nil, err
	}

	env, err := c.do(ctx, "enroll", http.MethodPost, "/api/enroll", body, contentType)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) && isDuplicate(rejected) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, rejected.Reason)
		}
		return nil, err
	}

	result := &EnrollResult{Message: env.Message}
	if env.EmployeeID != nil {
		result.EmployeeID = *env.EmployeeID
	}
	c.logger.Info("employee enrolled",
		zap.String("employee_code", identity.EmployeeCode),
		zap.Int64("employee_id", result.EmployeeID),
		zap.Int("photos", len(artifacts)),
	)
	return result, nil
}

func isDuplicate(r *RejectedError) bool {
	return r.StatusCode == http.StatusConflict || strings.Contains(strings.ToLower(r.Reason), "already exists")
}

// CheckIn submits a capture for check-in.
func (c *Client) CheckIn(ctx context.Context, artifact *capture.Artifact) (*Verification, error) {
	return c.verify(ctx, KindCheckIn, artifact)
}

// CheckOut submits a capture for check-out.
func (c *Client) CheckOut(ctx context.Context, artifact *capture.Artifact) (*Verification, error) {
	return c.verify(ctx, KindCheckOut, artifact)
}

func (c *Client) verify(ctx context.Context, kind Kind, artifact *capture.Artifact) (*Verification, error) {
	op := kind.String()
	body, contentType, err := buildMultipart(nil, []formFile{artifactFile("image", artifact)})
	if err != nil {
		return nil, err
	}

	env, err := c.do(ctx, op, http.MethodPost, kind.endpoint(), body, contentType)
	if err != nil {
		return nil, err
	}
	if env.Employee == nil {
		return nil, &TransportError{Op: op, StatusCode: http.StatusOK, Err: errors.New("response has no employee")}
	}

	v := &Verification{
		Kind:       kind,
		Employee:   *env.Employee,
		Message:    env.Message,
		VerifiedAt: time.Now(),
	}
	switch {
	case env.Confidence != nil:
		v.Confidence = *env.Confidence
	case env.Employee.Confidence != nil:
		v.Confidence = *env.Employee.Confidence
	}
	return v, nil
}

// Health queries the service status endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, &TransportError{Op: "health", Err: fmt.Errorf("could not create request: %w", err)}
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "health", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "health", StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, &TransportError{Op: "health", StatusCode: resp.StatusCode, Err: fmt.Errorf("could not unmarshal response: %w", err)}
	}
	return &h, nil
}
