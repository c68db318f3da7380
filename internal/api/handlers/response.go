// server/internal/api/handlers/response.go
package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/repository"
	"farmwise-api-server/internal/session"
	"farmwise-api-server/internal/storage"
	"farmwise-api-server/internal/upload"
	"farmwise-api-server/internal/upstream"
	"farmwise-api-server/internal/voice"

	"github.com/gin-gonic/gin"
)

// errorStatus maps a domain error to its HTTP status.
func errorStatus(err error) int {
	var se *upstream.StatusError
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrCropNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrControlBusy),
		errors.Is(err, session.ErrSendInFlight),
		errors.Is(err, voice.ErrAlreadyRecording):
		return http.StatusConflict
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, voice.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upstream.ErrNotConfigured),
		errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, upstream.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &se), errors.Is(err, upstream.ErrInvalidPayload):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorBody renders the tagged error shape every endpoint answers with.
func errorBody(err error) gin.H {
	body := gin.H{"error": true, "message": errorMessage(err)}
	var se *upstream.StatusError
	if errors.As(err, &se) {
		body["upstream_status"] = se.StatusCode
		body["upstream_status_text"] = se.Status
	}
	return body
}

func errorMessage(err error) string {
	if errors.Is(err, repository.ErrUnavailable) {
		return "Database not available"
	}
	return err.Error()
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), errorBody(err))
}

// bindJSON wraps ShouldBindJSON so that malformed bodies are validation errors.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

// readFormFile reads one multipart field into memory, refusing anything over
// maxBytes.
func readFormFile(c *gin.Context, field string, maxBytes int64) (upload.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return upload.File{}, &models.ValidationError{Field: field, Reason: "file is required"}
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return upload.File{}, fmt.Errorf("%w: limit is %d bytes", storage.ErrTooLarge, maxBytes)
	}

	f, err := header.Open()
	if err != nil {
		return upload.File{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return upload.File{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return upload.File{}, fmt.Errorf("%w: limit is %d bytes", storage.ErrTooLarge, maxBytes)
	}

	return upload.File{
		Name:        header.Filename,
		ContentType: strings.TrimSpace(header.Header.Get("Content-Type")),
		Data:        data,
	}, nil
}

// decodeImage decodes a base64 photo from a JSON body, with or without a data
// URL prefix, and vets it like an uploaded file. An empty string is no photo.
func decodeImage(field, encoded string, maxBytes int64) (string, []byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", nil, nil
	}
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ";base64,"); i >= 0 {
			encoded = encoded[i+len(";base64,"):]
		}
	}
	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(encoded))) > maxBytes+2 {
		return "", nil, fmt.Errorf("%w: limit is %d bytes", storage.ErrTooLarge, maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, &models.ValidationError{Field: field, Reason: "must be base64 encoded"}
	}
	if _, err := storage.ValidateImage(data, maxBytes); err != nil {
		return "", nil, fmt.Errorf("%s: %w", field, err)
	}
	return encoded, data, nil
}
