// Package evidence handles photo evidence for failing checklist items:
// acquiring a frame from a capture source, reading picked files, and
// converting between data URLs and upload-ready binaries.
package evidence

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

var ErrMalformedDataURL = errors.New("malformed data URL")

// DecodeDataURL parses a "data:<mime>;base64,<payload>" string into its MIME
// type and raw bytes. Malformed input returns a nil blob and
// ErrMalformedDataURL; it never panics.
func DecodeDataURL(s string) (mime string, data []byte, err error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, ErrMalformedDataURL
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, ErrMalformedDataURL
	}

	mime, encoding, hasEncoding := strings.Cut(header, ";")
	if !hasEncoding || encoding != "base64" {
		return "", nil, ErrMalformedDataURL
	}
	if mime == "" {
		mime = "text/plain"
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
	}
	return mime, data, nil
}

// EncodeDataURL renders raw bytes as a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ReadFile loads a picked image file into data-URL form, sniffing the MIME
// type from the content.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read photo file: %w", err)
	}
	return EncodeDataURL(http.DetectContentType(data), data), nil
}
