package evidence

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// JPEG quality for captured frames, matching what the mobile UI encodes.
const captureQuality = 80

// FrameSource is an exclusive capture resource yielding single frames. At
// most one source is open per capture session and it must be released before
// the next one opens.
type FrameSource interface {
	// Frame grabs one frame from the source.
	Frame() (image.Image, error)
	// Close releases the underlying resource. Safe to call more than once.
	Close() error
}

// CaptureFrame grabs a single frame from src, encodes it as a JPEG data URL
// and releases the source. The source is closed on every exit path,
// including grab and encode failures.
func CaptureFrame(src FrameSource) (string, error) {
	defer src.Close()

	frame, err := src.Frame()
	if err != nil {
		return "", fmt.Errorf("failed to grab frame: %w", err)
	}

	var buf bytes.Buffer
	err = imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(captureQuality))
	if err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}

	return EncodeDataURL("image/jpeg", buf.Bytes()), nil
}
