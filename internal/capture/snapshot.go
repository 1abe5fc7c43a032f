package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// SnapshotDevice is a network camera exposing a single-JPEG snapshot endpoint.
// Every frame is a fresh GET of the snapshot URL.
type SnapshotDevice struct {
	url    string
	client *http.Client
}

// NewSnapshotDevice creates a device for the snapshot URL. A nil client gets a 10 second timeout.
func NewSnapshotDevice(url string, client *http.Client) *SnapshotDevice {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SnapshotDevice{url: url, client: client}
}

func (d *SnapshotDevice) ID() string {
	return d.url
}

// Open probes the camera once so permission and availability problems surface
// before the first capture.
func (d *SnapshotDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	s := &snapshotStream{device: d, constraints: c}
	if _, err := s.fetch(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type snapshotStream struct {
	mu          sync.Mutex
	device      *SnapshotDevice
	constraints Constraints
	stopped     bool
}

func (s *snapshotStream) fetch(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.device.url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := s.device.client.Do(req) //nolint:gosec // URL comes from CAMERA_SNAPSHOT_URL
	if err != nil {
		var dnsErr *net.DNSError
		var opErr *net.OpError
		if errors.As(err, &dnsErr) || (errors.As(err, &opErr) && opErr.Op == "dial") {
			return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
		}
		return nil, fmt.Errorf("could not reach camera: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrPermissionDenied, resp.StatusCode)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: status %d", ErrDeviceNotFound, resp.StatusCode)
	case http.StatusConflict, http.StatusLocked, http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: status %d", ErrDeviceBusy, resp.StatusCode)
	default:
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read snapshot: %w", err)
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	return fitWithin(img, s.constraints.Width, s.constraints.Height), nil
}

func (s *snapshotStream) Frame() (image.Image, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, ErrNoActiveStream
	}
	return s.fetch(context.Background())
}

func (s *snapshotStream) Tracks() []Track {
	return []Track{s}
}

func (s *snapshotStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.device.client.CloseIdleConnections()
}
