package capture

import (
	"context"
	"image"
	"sync"
)

// Facing is the preferred camera orientation.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Constraints describe the stream a session asks a device for.
// Width and Height are ideal values, devices may deliver something else.
type Constraints struct {
	Width  int
	Height int
	Facing Facing
}

// Device is a camera that can hand out a live stream.
type Device interface {
	// ID identifies the underlying hardware. Two devices with the same ID share one camera.
	ID() string
	// Open starts a stream. Errors should wrap ErrPermissionDenied, ErrDeviceNotFound
	// or ErrDeviceBusy when the cause is known.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live video stream.
type Stream interface {
	// Frame returns the current frame.
	Frame() (image.Image, error)
	// Tracks returns the hardware tracks backing the stream.
	Tracks() []Track
}

// Track is a single hardware track of a stream.
type Track interface {
	Stop()
}

var (
	heldMu sync.Mutex
	held   = make(map[string]struct{})
)

// acquireDevice marks a device as exclusively owned.
// Returns false when another session already holds it.
func acquireDevice(id string) (release func(), ok bool) {
	heldMu.Lock()
	defer heldMu.Unlock()
	if _, busy := held[id]; busy {
		return nil, false
	}
	held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			heldMu.Lock()
			delete(held, id)
			heldMu.Unlock()
		})
	}, true
}
