// Package capture owns the camera: it opens a device stream, turns frames into
// JPEG artifacts and guarantees the hardware is released on every exit path.
//
// A Session moves through Idle -> Requesting -> Active -> Closed. Closed is
// terminal, a new Session is needed to use the camera again.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateActive
	StateCapturing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	case StateCapturing:
		return "capturing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceNotFound   = errors.New("camera not found")
	ErrDeviceBusy       = errors.New("camera is in use by another application")
	ErrUnknownCapture   = errors.New("cannot access camera")

	ErrNoActiveStream = errors.New("no active camera stream")
	ErrSessionClosed  = errors.New("capture session is closed")
	ErrSessionOpen    = errors.New("capture session is already open")
)

// DeviceAccessError is returned by Open when the camera cannot be acquired.
// Kind is one of ErrPermissionDenied, ErrDeviceNotFound, ErrDeviceBusy or ErrUnknownCapture.
type DeviceAccessError struct {
	Kind   error
	Device string
	Err    error
}

func (e *DeviceAccessError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Device, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Device)
}

func (e *DeviceAccessError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classifyDeviceError maps a device error onto one of the access error kinds.
func classifyDeviceError(err error) error {
	for _, kind := range []error{ErrPermissionDenied, ErrDeviceNotFound, ErrDeviceBusy} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrUnknownCapture
}

// Session manages one live stream of a Device.
type Session struct {
	mu          sync.Mutex
	device      Device
	constraints Constraints
	quality     int

	state   State
	stream  Stream
	release func()
}

// Option configures a Session.
type Option func(*Session)

// WithConstraints overrides the requested resolution and facing mode.
func WithConstraints(c Constraints) Option {
	return func(s *Session) {
		s.constraints = c
	}
}

// WithJPEGQuality overrides the JPEG quality (1-100) of captured stills.
func WithJPEGQuality(q int) Option {
	return func(s *Session) {
		if q >= 1 && q <= 100 {
			s.quality = q
		}
	}
}

// NewSession creates an idle session for the device. The camera is not touched until Open.
func NewSession(device Device, opts ...Option) *Session {
	s := &Session{
		device: device,
		constraints: Constraints{
			Width:  constants.CaptureWidth,
			Height: constants.CaptureHeight,
			Facing: FacingUser,
		},
		quality: constants.CaptureJPEGQuality,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open requests the camera and moves the session to Active.
// On failure the session stays Idle and the error is a *DeviceAccessError.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	case StateIdle:
	default:
		s.mu.Unlock()
		return ErrSessionOpen
	}

	release, ok := acquireDevice(s.device.ID())
	if !ok {
		s.mu.Unlock()
		return &DeviceAccessError{Kind: ErrDeviceBusy, Device: s.device.ID()}
	}
	s.state = StateRequesting
	s.mu.Unlock()

	// The lock is not held while the device negotiates so Close can run concurrently.
	stream, err := s.device.Open(ctx, s.constraints)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		release()
		if s.state == StateRequesting {
			s.state = StateIdle
		}
		return &DeviceAccessError{Kind: classifyDeviceError(err), Device: s.device.ID(), Err: err}
	}

	if s.state == StateClosed {
		// Closed while the device was still being negotiated.
		stopTracks(stream)
		release()
		return ErrSessionClosed
	}

	s.stream = stream
	s.release = release
	s.state = StateActive
	return nil
}

// Capture samples the current frame into a JPEG artifact. Only valid while Active.
func (s *Session) Capture() (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.stream == nil {
		return nil, ErrNoActiveStream
	}

	s.state = StateCapturing
	defer func() { s.state = StateActive }()

	frame, err := s.stream.Frame()
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	data, err := encodeJPEG(frame, s.quality)
	if err != nil {
		return nil, err
	}

	b := frame.Bounds()
	return NewArtifact(data, b.Dx(), b.Dy()), nil
}

// Close stops every track and releases the device. It is safe to call in any
// state and more than once; only the first call touches the hardware.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	if s.stream != nil {
		stopTracks(s.stream)
		s.stream = nil
	}
	if s.release != nil {
		s.release()
		s.release = nil
	}
	s.state = StateClosed
	return nil
}

func stopTracks(stream Stream) {
	for _, t := range stream.Tracks() {
		t.Stop()
	}
}
