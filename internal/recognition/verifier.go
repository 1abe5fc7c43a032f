package recognition

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"go.uber.org/zap"
)

// Kind selects the attendance operation of a verification.
type Kind int

const (
	KindCheckIn Kind = iota
	KindCheckOut
)

func (k Kind) String() string {
	switch k {
	case KindCheckIn:
		return "checkin"
	case KindCheckOut:
		return "checkout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k Kind) endpoint() string {
	return "/api/attendance/" + k.String()
}

// ParseKind parses "checkin" or "checkout".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "checkin", "check-in":
		return KindCheckIn, nil
	case "checkout", "check-out":
		return KindCheckOut, nil
	}
	return 0, fmt.Errorf("unknown verification kind %q", s)
}

// Boundary is the part of the recognition service used for attendance.
type Boundary interface {
	CheckIn(ctx context.Context, artifact *capture.Artifact) (*Verification, error)
	CheckOut(ctx context.Context, artifact *capture.Artifact) (*Verification, error)
}

// Verifier submits one capture per call and hands the artifact off to the service.
type Verifier struct {
	boundary Boundary
	logger   *zap.Logger
}

// NewVerifier creates a verifier on top of the boundary.
func NewVerifier(boundary Boundary, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{boundary: boundary, logger: logger.Named("verifier")}
}

// Verify submits the artifact for the given kind. The artifact is released
// whatever the outcome; a retry needs a new capture. Errors are
// *RejectedError or *TransportError.
func (v *Verifier) Verify(ctx context.Context, kind Kind, artifact *capture.Artifact) (*Verification, error) {
	if artifact == nil || artifact.Released() {
		return nil, fmt.Errorf("%s: %w", kind, ErrNoArtifact)
	}
	defer artifact.Release()

	var (
		result *Verification
		err    error
	)
	switch kind {
	case KindCheckIn:
		result, err = v.boundary.CheckIn(ctx, artifact)
	case KindCheckOut:
		result, err = v.boundary.CheckOut(ctx, artifact)
	default:
		return nil, fmt.Errorf("unknown verification kind %d", int(kind))
	}
	if err != nil {
		v.logger.Info("verification failed",
			zap.Stringer("kind", kind),
			zap.Uint64("seq", artifact.Seq),
			zap.Error(err),
		)
		return nil, err
	}

	v.logger.Info("verification succeeded",
		zap.Stringer("kind", kind),
		zap.Uint64("seq", artifact.Seq),
		zap.String("employee_code", result.Employee.Code),
		zap.Float64("confidence", result.Confidence),
	)
	return result, nil
}

var _ Boundary = (*Client)(nil)
