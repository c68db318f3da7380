// Package storage saves uploaded crop photos and vets uploaded files before
// anything is sent over the network.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"farmwise-api-server/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrEmpty    = fmt.Errorf("%w: file is empty", models.ErrValidation)
	ErrNotImage = fmt.Errorf("%w: file must be an image", models.ErrValidation)
	ErrNotAudio = fmt.Errorf("%w: file must be an audio recording", models.ErrValidation)
	ErrTooLarge = errors.New("file is too large")
)

// ImageStore persists an image and returns the URL it is served from.
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ValidateImage checks size and content and returns the detected image type.
// The declared type is not trusted. SVG is refused: it is markup and can
// carry script.
func ValidateImage(data []byte, maxBytes int64) (string, error) {
	if err := checkSize(data, maxBytes); err != nil {
		return "", err
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") || mt.Is("image/svg+xml") {
		return "", ErrNotImage
	}
	return mt.String(), nil
}

// ValidateAudio accepts audio and video containers. Browsers record webm,
// which may be sniffed as video, and some send application/octet-stream.
func ValidateAudio(data []byte, declared string, maxBytes int64) (string, error) {
	if err := checkSize(data, maxBytes); err != nil {
		return "", err
	}
	sniffed := mimetype.Detect(data).String()
	declared = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])

	switch {
	case isAudio(sniffed):
		return sniffed, nil
	case isAudio(declared):
		return declared, nil
	case declared == "application/octet-stream":
		return declared, nil
	}
	return "", ErrNotAudio
}

// NewObjectKey returns prefix + a random hex name. The extension comes from
// the sniffed content type only, never from the client's filename, so the
// file is served with the type it was validated as.
func NewObjectKey(prefix, contentType string) string {
	var ext string
	if mt := mimetype.Lookup(contentType); mt != nil {
		ext = mt.Extension()
	}
	if ext == "" {
		ext = ".jpg"
	}
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

func checkSize(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrTooLarge, len(data), maxBytes)
	}
	return nil
}

func isAudio(contentType string) bool {
	return strings.HasPrefix(contentType, "audio/") || strings.HasPrefix(contentType, "video/")
}
