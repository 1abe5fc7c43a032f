package capture

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

var sequence atomic.Uint64

// Artifact is a captured still image waiting to be submitted.
// Seq increases monotonically across all artifacts created by this process.
type Artifact struct {
	Seq         uint64
	Data        []byte
	ContentType string
	Width       int
	Height      int
	CapturedAt  time.Time
}

// NewArtifact wraps JPEG data in an artifact with the next sequence number.
func NewArtifact(data []byte, width, height int) *Artifact {
	return &Artifact{
		Seq:         sequence.Add(1),
		Data:        data,
		ContentType: "image/jpeg",
		Width:       width,
		Height:      height,
		CapturedAt:  time.Now(),
	}
}

// Filename returns the name used when the artifact is uploaded.
func (a *Artifact) Filename() string {
	return fmt.Sprintf("photo_%d.jpg", a.Seq)
}

// Release drops the image data once ownership moved to the recognition service.
func (a *Artifact) Release() {
	a.Data = nil
}

// Released reports whether the image data has been handed off.
func (a *Artifact) Released() bool {
	return a.Data == nil
}

// ArtifactFromUpload turns an uploaded still image of any supported format into
// a JPEG artifact, scaled to fit the capture resolution.
func ArtifactFromUpload(data []byte, quality int) (*Artifact, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	img = fitWithin(img, constants.CaptureWidth, constants.CaptureHeight)
	if quality < 1 || quality > 100 {
		quality = constants.CaptureJPEGQuality
	}
	encoded, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return NewArtifact(encoded, b.Dx(), b.Dy()), nil
}
