// Package enrollment collects the face photos of a new employee and submits
// them to the recognition service once enough have been taken.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

var (
	ErrCollectorFull      = errors.New("maximum number of photos reached")
	ErrIndexOutOfRange    = errors.New("photo index out of range")
	ErrInsufficientPhotos = errors.New("not enough photos to enroll")
)

// Enroller registers an identity with its photos.
type Enroller interface {
	Enroll(ctx context.Context, identity recognition.Identity, artifacts []*capture.Artifact) (*recognition.EnrollResult, error)
}

// Collector holds the photos taken for one enrollment, in capture order.
// The first photo becomes the primary photo.
type Collector struct {
	mu        sync.Mutex
	artifacts []*capture.Artifact
	min, max  int
}

// NewCollector creates an empty collector accepting 3 to 5 photos.
func NewCollector() *Collector {
	return &Collector{
		min: constants.MinEnrollmentPhotos,
		max: constants.MaxEnrollmentPhotos,
	}
}

// Add appends a photo. Beyond the maximum it returns ErrCollectorFull and keeps the set unchanged.
func (c *Collector) Add(a *capture.Artifact) error {
	if a == nil || a.Released() {
		return recognition.ErrNoArtifact
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.artifacts) >= c.max {
		return fmt.Errorf("%w (%d)", ErrCollectorFull, c.max)
	}
	c.artifacts = append(c.artifacts, a)
	return nil
}

// Remove drops the photo at index i, keeping the order of the rest.
func (c *Collector) Remove(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.artifacts) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.artifacts))
	}
	c.artifacts[i].Release()
	c.artifacts = slices.Delete(c.artifacts, i, i+1)
	return nil
}

// Len returns the number of collected photos.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.artifacts)
}

// Remaining returns how many more photos can be added.
func (c *Collector) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.max - len(c.artifacts)
}

// Artifacts returns the collected photos in order.
func (c *Collector) Artifacts() []*capture.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.artifacts)
}

// IsSubmittable reports whether the photo count is within bounds.
func (c *Collector) IsSubmittable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submittable()
}

func (c *Collector) submittable() bool {
	n := len(c.artifacts)
	return n >= c.min && n <= c.max
}

// Reset releases every photo and empties the collector.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Collector) reset() {
	for _, a := range c.artifacts {
		a.Release()
	}
	c.artifacts = nil
}

// Submit validates the identity and sends all photos in one enrollment request.
// Nothing is sent when there are too few photos or the identity is invalid.
// On success the collector is emptied; on failure the photos are kept for a retry.
func (c *Collector) Submit(ctx context.Context, identity recognition.Identity, enroller Enroller) (*recognition.EnrollResult, error) {
	c.mu.Lock()
	if !c.submittable() {
		n := len(c.artifacts)
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: have %d, need at least %d", ErrInsufficientPhotos, n, c.min)
	}
	artifacts := slices.Clone(c.artifacts)
	c.mu.Unlock()

	identity = NormalizeIdentity(identity)
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}

	result, err := enroller.Enroll(ctx, identity, artifacts)
	if err != nil {
		return nil, fmt.Errorf("enrolling %s: %w", identity.EmployeeCode, err)
	}

	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	return result, nil
}
