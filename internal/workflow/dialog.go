package workflow

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// dialog is the camera part shared by check and enrollment dialogs.
type dialog struct {
	orch    *Orchestrator
	session *capture.Session

	mu         sync.Mutex
	closed     bool
	submitting bool
}

// Session exposes the capture session of the dialog.
func (d *dialog) Session() *capture.Session {
	return d.session
}

func (d *dialog) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// beginSubmit marks the dialog as submitting. Only one submission per dialog
// runs at a time; a second one fails without touching the running one.
func (d *dialog) beginSubmit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDialogClosed
	}
	if d.submitting {
		return ErrSubmissionInFlight
	}
	d.submitting = true
	return nil
}

// endSubmit reports whether the dialog was closed while the submission ran.
func (d *dialog) endSubmit() (closed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitting = false
	return d.closed
}

// close stops the camera and reports whether a submission is still running.
func (d *dialog) close() (busy bool, err error) {
	d.mu.Lock()
	d.closed = true
	busy = d.submitting
	d.mu.Unlock()
	return busy, d.session.Close()
}

// Dialog is one check-in or check-out attempt: open camera, take a photo, submit.
type Dialog struct {
	dialog
	kind  recognition.Kind
	photo *capture.Artifact
}

// OpenCheckDialog opens the camera for a check-in or check-out.
// When the camera cannot be opened the error is a *capture.DeviceAccessError.
func (o *Orchestrator) OpenCheckDialog(ctx context.Context, kind recognition.Kind, device capture.Device, opts ...capture.Option) (*Dialog, error) {
	session := capture.NewSession(device, opts...)
	if err := session.Open(ctx); err != nil {
		session.Close()
		return nil, err
	}
	return &Dialog{
		dialog: dialog{orch: o, session: session},
		kind:   kind,
	}, nil
}

// Kind returns the operation of the dialog.
func (d *Dialog) Kind() recognition.Kind {
	return d.kind
}

// Capture takes a photo, replacing any previous one.
func (d *Dialog) Capture() (*capture.Artifact, error) {
	if d.isClosed() {
		return nil, ErrDialogClosed
	}
	a, err := d.session.Capture()
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitting {
		a.Release()
		return nil, ErrSubmissionInFlight
	}
	if d.photo != nil {
		d.photo.Release()
	}
	d.photo = a
	return a, nil
}

// Retake discards the current photo.
func (d *Dialog) Retake() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.photo != nil && !d.submitting {
		d.photo.Release()
		d.photo = nil
	}
}

// Photo returns the current photo, nil when none was taken.
func (d *Dialog) Photo() *capture.Artifact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.photo
}

// Submit sends the current photo. On success the dialog closes itself.
// The photo is handed to the recognition service, a retry needs a new capture.
func (d *Dialog) Submit(ctx context.Context) (*recognition.Verification, error) {
	d.mu.Lock()
	photo := d.photo
	d.mu.Unlock()
	if photo == nil || photo.Released() {
		if d.isClosed() {
			return nil, ErrDialogClosed
		}
		return nil, recognition.ErrNoArtifact
	}

	if err := d.beginSubmit(); err != nil {
		return nil, err
	}
	result, err := d.orch.Verify(ctx, d.kind, photo)
	closed := d.endSubmit()

	d.mu.Lock()
	if d.photo == photo && photo.Released() {
		d.photo = nil
	}
	d.mu.Unlock()

	if closed {
		return nil, ErrDialogClosed
	}
	if err != nil {
		return nil, err
	}
	d.Close()
	return result, nil
}

// Close stops the camera and drops the photo. It is safe to call at any time
// and more than once. A submission still running has its result discarded.
func (d *Dialog) Close() error {
	busy, err := d.close()
	if !busy {
		d.Retake()
	}
	return err
}

// EnrollmentDialog collects 3 to 5 photos of a new employee and submits them.
type EnrollmentDialog struct {
	dialog
	collector *enrollment.Collector
}

// OpenEnrollmentDialog opens the camera for an enrollment.
func (o *Orchestrator) OpenEnrollmentDialog(ctx context.Context, device capture.Device, opts ...capture.Option) (*EnrollmentDialog, error) {
	session := capture.NewSession(device, opts...)
	if err := session.Open(ctx); err != nil {
		session.Close()
		return nil, err
	}
	return &EnrollmentDialog{
		dialog:    dialog{orch: o, session: session},
		collector: enrollment.NewCollector(),
	}, nil
}

// Collector returns the photo set of the dialog.
func (d *EnrollmentDialog) Collector() *enrollment.Collector {
	return d.collector
}

// Capture takes a photo and adds it to the set. When the set is full no photo is taken.
func (d *EnrollmentDialog) Capture() (*capture.Artifact, error) {
	if d.isClosed() {
		return nil, ErrDialogClosed
	}
	if d.collector.Remaining() == 0 {
		return nil, enrollment.ErrCollectorFull
	}
	a, err := d.session.Capture()
	if err != nil {
		return nil, err
	}
	if err := d.collector.Add(a); err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}

// Remove drops a photo from the set.
func (d *EnrollmentDialog) Remove(i int) error {
	return d.collector.Remove(i)
}

// Submit enrolls the identity with the collected photos. On success the dialog closes itself.
func (d *EnrollmentDialog) Submit(ctx context.Context, identity recognition.Identity) (*recognition.EnrollResult, error) {
	if err := d.beginSubmit(); err != nil {
		return nil, err
	}
	result, err := d.orch.Enroll(ctx, identity, d.collector)
	if d.endSubmit() {
		d.collector.Reset()
		return nil, ErrDialogClosed
	}
	if err != nil {
		return nil, err
	}
	d.Close()
	return result, nil
}

// Close stops the camera and releases the collected photos. A submission
// still running has its result discarded.
func (d *EnrollmentDialog) Close() error {
	busy, err := d.close()
	if !busy {
		d.collector.Reset()
	}
	return err
}
