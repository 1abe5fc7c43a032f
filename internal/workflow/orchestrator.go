// Package workflow drives check-in, check-out and enrollment: it owns the
// camera session of a dialog, allows one submission at a time and refreshes
// the attendance view after a success.
package workflow

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"go.uber.org/zap"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrDialogClosed       = errors.New("dialog was closed")
)

// Verifier submits one capture for check-in or check-out.
type Verifier interface {
	Verify(ctx context.Context, kind recognition.Kind, artifact *capture.Artifact) (*recognition.Verification, error)
}

// Refresher reloads whatever view shows attendance records.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context) error

func (f RefreshFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Orchestrator coordinates submissions to the recognition service.
// At most one submission is outstanding at any time.
type Orchestrator struct {
	verifier  Verifier
	enroller  enrollment.Enroller
	refresher []Refresher
	logger    *zap.Logger

	inFlight atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRefresher adds a refresher called after every successful submission.
func WithRefresher(r Refresher) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.refresher = append(o.refresher, r)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l.Named("workflow")
		}
	}
}

// New creates an orchestrator.
func New(verifier Verifier, enroller enrollment.Enroller, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		verifier: verifier,
		enroller: enroller,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Busy reports whether a submission is outstanding.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) begin() (func(), error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	return func() { o.inFlight.Store(false) }, nil
}

// Verify submits one artifact. A second call while one is outstanding fails
// immediately with ErrSubmissionInFlight and the artifact is left untouched.
func (o *Orchestrator) Verify(ctx context.Context, kind recognition.Kind, artifact *capture.Artifact) (*recognition.Verification, error) {
	done, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	result, err := o.verifier.Verify(ctx, kind, artifact)
	if err != nil {
		return nil, err
	}
	o.refresh(ctx)
	return result, nil
}

// Enroll submits the photos of the collector under the one-submission guard.
func (o *Orchestrator) Enroll(ctx context.Context, identity recognition.Identity, collector *enrollment.Collector) (*recognition.EnrollResult, error) {
	done, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	result, err := collector.Submit(ctx, identity, o.enroller)
	if err != nil {
		return nil, err
	}
	o.refresh(ctx)
	return result, nil
}

// refresh runs the refreshers. A failed refresh does not undo the submission.
func (o *Orchestrator) refresh(ctx context.Context) {
	for _, r := range o.refresher {
		if err := r.Refresh(ctx); err != nil {
			o.logger.Warn("refresh after submission failed", zap.Error(err))
		}
	}
}
