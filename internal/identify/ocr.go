// Package identify resolves a physical device to its register entry. The
// primary path is the QR code on the fire-system register tag; nameplate OCR
// is the fallback for devices whose tag is missing or damaged.
package identify

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Fire-safety device serials: 2-3 alpha vendor code followed by 8-12 digits,
// with an optional dash.
var serialPattern = regexp.MustCompile(`[A-Z]{2,3}-?\d{8,12}`)

// ReadNameplate runs OCR over a photo of a device nameplate and returns the
// raw recognized text.
func ReadNameplate(imageBytes []byte) (string, error) {
	// 1. Decode image
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// 2. Preprocessing for better OCR
	// - Convert to Grayscale
	// - Increase contrast
	// - Sharpen
	processedImg := imaging.Grayscale(img)
	processedImg = imaging.AdjustContrast(processedImg, 20)
	processedImg = imaging.Sharpen(processedImg, 0.5)

	buf := new(bytes.Buffer)
	err = imaging.Encode(buf, processedImg, imaging.JPEG)
	if err != nil {
		return "", fmt.Errorf("failed to encode processed image: %w", err)
	}

	// 3. OCR with Tesseract
	client := gosseract.NewClient()
	defer client.Close()

	err = client.SetImageFromBytes(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to set image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// ExtractSerial picks the first plausible device serial out of OCR text.
// Nameplates carry order numbers and certification marks alongside the
// serial, so matching is token by token.
func ExtractSerial(text string) (string, bool) {
	for _, token := range strings.Fields(text) {
		if match := serialPattern.FindString(token); match != "" {
			return match, true
		}
	}
	return "", false
}
