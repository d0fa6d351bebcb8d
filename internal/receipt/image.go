package receipt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxImageSize is the largest receipt image accepted, in bytes.
const MaxImageSize = 5 * 1024 * 1024

var (
	ErrEmptyImage       = errors.New("image is required")
	ErrImageTooLarge    = errors.New("image must be at most 5MB")
	ErrUnsupportedImage = errors.New("image must be JPEG or PNG")
	ErrMalformedImage   = errors.New("image must be a base64 data URL")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// normalizeType lowercases a MIME type and maps the non-standard image/jpg to image/jpeg.
func normalizeType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "image/jpg" {
		return "image/jpeg"
	}
	return contentType
}

// CheckImage validates a receipt image before it is sent anywhere.
func CheckImage(contentType string, size int) error {
	if size == 0 {
		return ErrEmptyImage
	}
	if size > MaxImageSize {
		return ErrImageTooLarge
	}
	if !allowedTypes[normalizeType(contentType)] {
		return ErrUnsupportedImage
	}
	return nil
}

// EncodeImage validates data and returns it as a data URL suitable for ScanReceipt.
func EncodeImage(contentType string, data []byte) (string, error) {
	if err := CheckImage(contentType, len(data)); err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", normalizeType(contentType), base64.StdEncoding.EncodeToString(data)), nil
}

// DecodeImage parses a data URL and validates the decoded bytes. The declared
// type must match the sniffed content.
func DecodeImage(dataURL string) (contentType string, data []byte, err error) {
	if strings.TrimSpace(dataURL) == "" {
		return "", nil, ErrEmptyImage
	}
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", nil, ErrMalformedImage
	}
	declared := normalizeType(strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"))

	// Reject oversized payloads before decoding them.
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize+2 {
		return "", nil, ErrImageTooLarge
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	if err := CheckImage(declared, len(data)); err != nil {
		return "", nil, err
	}
	if sniffed := http.DetectContentType(data); sniffed != declared {
		return "", nil, fmt.Errorf("%w: content is %s", ErrUnsupportedImage, sniffed)
	}
	return declared, data, nil
}
