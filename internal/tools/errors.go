package tools

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Sentinel errors shared across the tools.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrFileNotFound   = errors.New("file not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrDriveAPIError  = errors.New("drive API error")
	ErrSlidesAPIError = errors.New("slides API error")
)

// statusCode extracts the HTTP status from a Google API error, or 0 when the
// error carries none.
func statusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// isNotFoundError checks if an error indicates a resource was not found.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if statusCode(err) == http.StatusNotFound {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "notFound") ||
		strings.Contains(errStr, "not found")
}

// isForbiddenError checks if an error indicates access was denied.
func isForbiddenError(err error) bool {
	if err == nil {
		return false
	}
	switch statusCode(err) {
	case http.StatusForbidden, http.StatusUnauthorized:
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "permission denied")
}
