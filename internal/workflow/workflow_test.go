package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deviceSeq atomic.Int32

type fakeTrack struct{ stops atomic.Int32 }

func (t *fakeTrack) Stop() { t.stops.Add(1) }

type fakeStream struct{ track *fakeTrack }

func (s *fakeStream) Frame() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 64, 48)), nil
}
func (s *fakeStream) Tracks() []capture.Track { return []capture.Track{s.track} }

type fakeDevice struct {
	id    string
	err   error
	track *fakeTrack
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{id: fmt.Sprintf("fake-%d", deviceSeq.Add(1)), track: &fakeTrack{}}
}

func (d *fakeDevice) ID() string { return d.id }
func (d *fakeDevice) Open(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &fakeStream{track: d.track}, nil
}

type fakeVerifier struct {
	calls   atomic.Int32
	block   chan struct{}
	entered chan struct{}
	result  *recognition.Verification
	err     error

	// bytes of the artifact when the call is about to upload it
	sent atomic.Int32
}

func (f *fakeVerifier) Verify(ctx context.Context, kind recognition.Kind, a *capture.Artifact) (*recognition.Verification, error) {
	f.calls.Add(1)
	defer a.Release()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.sent.Store(int32(len(a.Data)))
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEnroller struct {
	calls atomic.Int32
	block chan struct{}
	err   error
}

func (f *fakeEnroller) Enroll(ctx context.Context, id recognition.Identity, artifacts []*capture.Artifact) (*recognition.EnrollResult, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &recognition.EnrollResult{EmployeeID: 9}, nil
}

type countingRefresher struct{ n atomic.Int32 }

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.n.Add(1)
	return nil
}

func success() *recognition.Verification {
	return &recognition.Verification{Employee: recognition.Employee{Code: "EMP001"}, Confidence: 0.93}
}

func TestOrchestrator_InFlightGuard(t *testing.T) {
	v := &fakeVerifier{block: make(chan struct{}), entered: make(chan struct{}, 1), result: success()}
	o := New(v, nil)

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = o.Verify(context.Background(), recognition.KindCheckIn, capture.NewArtifact([]byte{1}, 1, 1))
	}()
	<-v.entered
	assert.True(t, o.Busy())

	second := capture.NewArtifact([]byte{2}, 1, 1)
	_, err := o.Verify(context.Background(), recognition.KindCheckIn, second)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.False(t, second.Released(), "rejected submission must not consume the artifact")

	close(v.block)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, int32(1), v.calls.Load())
	assert.False(t, o.Busy())
}

func TestOrchestrator_RefreshOnlyAfterSuccess(t *testing.T) {
	refresher := &countingRefresher{}
	v := &fakeVerifier{err: &recognition.RejectedError{Op: "checkin", Reason: "no match"}}
	o := New(v, nil, WithRefresher(refresher))

	_, err := o.Verify(context.Background(), recognition.KindCheckIn, capture.NewArtifact([]byte{1}, 1, 1))
	require.Error(t, err)
	assert.Equal(t, int32(0), refresher.n.Load())

	v.err = nil
	v.result = success()
	_, err = o.Verify(context.Background(), recognition.KindCheckIn, capture.NewArtifact([]byte{1}, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(1), refresher.n.Load())
}

func TestOrchestrator_RefreshFailureIgnored(t *testing.T) {
	o := New(&fakeVerifier{result: success()}, nil,
		WithRefresher(RefreshFunc(func(ctx context.Context) error { return errors.New("db down") })))

	result, err := o.Verify(context.Background(), recognition.KindCheckOut, capture.NewArtifact([]byte{1}, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.93, result.Confidence)
}

func TestDialog_CheckInFlow(t *testing.T) {
	device := newFakeDevice()
	v := &fakeVerifier{result: success()}
	o := New(v, nil)

	d, err := o.OpenCheckDialog(context.Background(), recognition.KindCheckIn, device)
	require.NoError(t, err)
	assert.Equal(t, capture.StateActive, d.Session().State())

	photo, err := d.Capture()
	require.NoError(t, err)
	assert.Same(t, photo, d.Photo())

	result, err := d.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EMP001", result.Employee.Code)
	assert.Equal(t, 0.93, result.Confidence)

	assert.Equal(t, capture.StateClosed, d.Session().State())
	assert.Equal(t, int32(1), device.track.stops.Load())
	assert.True(t, photo.Released())
	assert.Nil(t, d.Photo())
}

func TestDialog_SubmitWithoutPhoto(t *testing.T) {
	v := &fakeVerifier{result: success()}
	d, err := New(v, nil).OpenCheckDialog(context.Background(), recognition.KindCheckIn, newFakeDevice())
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Submit(context.Background())
	assert.ErrorIs(t, err, recognition.ErrNoArtifact)
	assert.Equal(t, int32(0), v.calls.Load())
}

func TestDialog_RejectedStaysOpen(t *testing.T) {
	v := &fakeVerifier{err: &recognition.RejectedError{Op: "checkin", Reason: "no match"}}
	d, err := New(v, nil).OpenCheckDialog(context.Background(), recognition.KindCheckIn, newFakeDevice())
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Capture()
	require.NoError(t, err)

	_, err = d.Submit(context.Background())
	var rejected *recognition.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "no match", UserMessage(err))

	assert.Equal(t, capture.StateActive, d.Session().State())
	assert.Nil(t, d.Photo(), "the submitted photo is consumed")

	_, err = d.Capture()
	assert.NoError(t, err, "user retries with a new capture")
}

func TestDialog_CloseDuringSubmissionDiscardsResult(t *testing.T) {
	device := newFakeDevice()
	v := &fakeVerifier{block: make(chan struct{}), entered: make(chan struct{}, 1), result: success()}
	d, err := New(v, nil).OpenCheckDialog(context.Background(), recognition.KindCheckIn, device)
	require.NoError(t, err)

	_, err = d.Capture()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background())
		done <- err
	}()
	<-v.entered

	require.NoError(t, d.Close())
	assert.Equal(t, capture.StateClosed, d.Session().State())
	assert.Equal(t, int32(1), device.track.stops.Load())

	close(v.block)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDialogClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not finish")
	}
	assert.NoError(t, d.Close(), "second close is a no-op")
	assert.Equal(t, int32(1), device.track.stops.Load())
}

func TestDialog_SecondSubmitKeepsRunningPhoto(t *testing.T) {
	v := &fakeVerifier{block: make(chan struct{}), entered: make(chan struct{}, 1), result: success()}
	d, err := New(v, nil).OpenCheckDialog(context.Background(), recognition.KindCheckIn, newFakeDevice())
	require.NoError(t, err)

	photo, err := d.Capture()
	require.NoError(t, err)
	size := len(photo.Data)
	require.NotZero(t, size)

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background())
		done <- err
	}()
	<-v.entered

	_, err = d.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	require.NoError(t, d.Close())

	close(v.block)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDialogClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not finish")
	}
	assert.Equal(t, int32(size), v.sent.Load(), "close must not release the photo being uploaded")
	assert.Equal(t, int32(1), v.calls.Load())
}

func TestDialog_OpenFailureReleasesDevice(t *testing.T) {
	device := newFakeDevice()
	device.err = capture.ErrPermissionDenied
	o := New(&fakeVerifier{}, nil)

	_, err := o.OpenCheckDialog(context.Background(), recognition.KindCheckIn, device)
	var access *capture.DeviceAccessError
	require.ErrorAs(t, err, &access)
	assert.Equal(t, "Camera permission denied. Allow camera access and try again.", UserMessage(err))

	device.err = nil
	d, err := o.OpenCheckDialog(context.Background(), recognition.KindCheckIn, device)
	require.NoError(t, err)
	d.Close()
}

func TestDialog_DeviceExclusive(t *testing.T) {
	device := newFakeDevice()
	o := New(&fakeVerifier{}, nil)

	first, err := o.OpenCheckDialog(context.Background(), recognition.KindCheckIn, device)
	require.NoError(t, err)

	_, err = o.OpenEnrollmentDialog(context.Background(), device)
	assert.ErrorIs(t, err, capture.ErrDeviceBusy)

	first.Close()
	second, err := o.OpenEnrollmentDialog(context.Background(), device)
	require.NoError(t, err)
	second.Close()
}

func TestEnrollmentDialog_Flow(t *testing.T) {
	enroller := &fakeEnroller{}
	refresher := &countingRefresher{}
	o := New(&fakeVerifier{}, enroller, WithRefresher(refresher))
	identity := recognition.Identity{EmployeeCode: "EMP010", FullName: "Rina"}

	d, err := o.OpenEnrollmentDialog(context.Background(), newFakeDevice())
	require.NoError(t, err)

	for range 2 {
		_, err := d.Capture()
		require.NoError(t, err)
	}
	_, err = d.Submit(context.Background(), identity)
	assert.ErrorIs(t, err, enrollment.ErrInsufficientPhotos)
	assert.Equal(t, int32(0), enroller.calls.Load())

	_, err = d.Capture()
	require.NoError(t, err)

	result, err := d.Submit(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.EmployeeID)
	assert.Equal(t, int32(1), refresher.n.Load())
	assert.Equal(t, capture.StateClosed, d.Session().State())
	assert.Equal(t, 0, d.Collector().Len())
}

func TestEnrollmentDialog_CaptureFull(t *testing.T) {
	d, err := New(&fakeVerifier{}, &fakeEnroller{}).OpenEnrollmentDialog(context.Background(), newFakeDevice())
	require.NoError(t, err)
	defer d.Close()

	for range 5 {
		_, err := d.Capture()
		require.NoError(t, err)
	}
	_, err = d.Capture()
	assert.ErrorIs(t, err, enrollment.ErrCollectorFull)
	assert.Equal(t, 5, d.Collector().Len())

	require.NoError(t, d.Remove(0))
	_, err = d.Capture()
	assert.NoError(t, err)
}

func TestEnrollmentDialog_CloseReleasesPhotos(t *testing.T) {
	d, err := New(&fakeVerifier{}, &fakeEnroller{}).OpenEnrollmentDialog(context.Background(), newFakeDevice())
	require.NoError(t, err)

	a, err := d.Capture()
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.True(t, a.Released())

	_, err = d.Capture()
	assert.ErrorIs(t, err, ErrDialogClosed)
	_, err = d.Submit(context.Background(), recognition.Identity{})
	assert.ErrorIs(t, err, ErrDialogClosed)
}

func TestEnrollmentDialog_SecondSubmitInFlight(t *testing.T) {
	enroller := &fakeEnroller{block: make(chan struct{})}
	o := New(&fakeVerifier{}, enroller)
	identity := recognition.Identity{EmployeeCode: "EMP011", FullName: "Sari"}

	d, err := o.OpenEnrollmentDialog(context.Background(), newFakeDevice())
	require.NoError(t, err)
	for range 3 {
		_, err := d.Capture()
		require.NoError(t, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), identity)
		done <- err
	}()
	require.Eventually(t, o.Busy, time.Second, 5*time.Millisecond)

	_, err = o.Verify(context.Background(), recognition.KindCheckIn, capture.NewArtifact([]byte{1}, 1, 1))
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(enroller.block)
	assert.NoError(t, <-done)
	assert.Equal(t, int32(1), enroller.calls.Load())
}

func TestKiosks_OneOrchestratorPerKiosk(t *testing.T) {
	var built atomic.Int32
	k := NewKiosks(func() *Orchestrator {
		built.Add(1)
		return New(&fakeVerifier{result: success()}, nil)
	}, time.Minute)

	lobby := k.For("lobby")
	assert.Same(t, lobby, k.For("lobby"))
	assert.NotSame(t, lobby, k.For("gate"))
	assert.Equal(t, int32(2), built.Load())
	assert.Equal(t, 2, k.Len())
}

func TestKiosks_GuardIsPerKiosk(t *testing.T) {
	v := &fakeVerifier{block: make(chan struct{}), entered: make(chan struct{}, 1), result: success()}
	k := NewKiosks(func() *Orchestrator { return New(v, nil) }, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := k.For("lobby").Verify(context.Background(), recognition.KindCheckIn, capture.NewArtifact([]byte{1}, 1, 1))
		done <- err
	}()
	<-v.entered

	_, err := k.For("lobby").Verify(context.Background(), recognition.KindCheckIn, capture.NewArtifact([]byte{1}, 1, 1))
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	v.entered = nil
	gate := make(chan error, 1)
	go func() {
		_, err := k.For("gate").Verify(context.Background(), recognition.KindCheckOut, capture.NewArtifact([]byte{1}, 1, 1))
		gate <- err
	}()
	require.Eventually(t, k.For("gate").Busy, time.Second, 5*time.Millisecond,
		"another kiosk is not blocked by the running submission")

	close(v.block)
	assert.NoError(t, <-done)
	assert.NoError(t, <-gate)
}

func TestKiosks_EvictsIdle(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	block := make(chan struct{})
	k := NewKiosks(func() *Orchestrator {
		return New(&fakeVerifier{block: block, result: success()}, nil)
	}, time.Minute)
	k.now = func() time.Time { return now }

	busy := k.For("busy")
	k.For("idle")
	done := make(chan error, 1)
	go func() {
		_, err := busy.Verify(context.Background(), recognition.KindCheckIn, capture.NewArtifact([]byte{1}, 1, 1))
		done <- err
	}()
	require.Eventually(t, busy.Busy, time.Second, 5*time.Millisecond)

	now = now.Add(2 * time.Minute)
	k.For("fresh")
	assert.Equal(t, 2, k.Len(), "idle kiosk dropped, busy one kept")
	assert.Same(t, busy, k.For("busy"))

	close(block)
	assert.NoError(t, <-done)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"in flight", ErrSubmissionInFlight, "A submission is already in progress. Please wait."},
		{"device busy", &capture.DeviceAccessError{Kind: capture.ErrDeviceBusy, Device: "cam"}, "The camera is in use by another application."},
		{"device not found", &capture.DeviceAccessError{Kind: capture.ErrDeviceNotFound, Device: "cam"}, "No camera found. Connect a camera and try again."},
		{"device unknown", &capture.DeviceAccessError{Kind: capture.ErrUnknownCapture, Device: "cam"}, "Cannot access the camera."},
		{"no stream", capture.ErrNoActiveStream, "The camera is not active. Open the camera and try again."},
		{"insufficient", fmt.Errorf("x: %w", enrollment.ErrInsufficientPhotos), "At least 3 photos are required."},
		{"full", enrollment.ErrCollectorFull, "At most 5 photos can be taken."},
		{"validation", &enrollment.ValidationError{Fields: []enrollment.FieldError{{Field: "full_name", Message: "Full Name is required"}}}, "Full Name is required."},
		{"duplicate", fmt.Errorf("enrolling: %w", recognition.ErrDuplicateIdentity), "An employee with this code is already enrolled."},
		{"rejected with reason", &recognition.RejectedError{Reason: "Already checked in today"}, "Already checked in today"},
		{"rejected without reason", &recognition.RejectedError{Reason: recognition.DefaultReason}, "Verification failed. Please try again with a new photo."},
		{"transport", &recognition.TransportError{Op: "checkin", Err: errors.New("refused")}, "The recognition service is not reachable. Please try again."},
		{"data fetch", &attendance.DataFetchError{Op: "stats", Err: errors.New("down")}, "Failed to load attendance data. Please try again."},
		{"unknown", errors.New("boom"), genericMessage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UserMessage(tc.err))
		})
	}
}
