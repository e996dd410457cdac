// Package validation checks configuration values before they reach Google Cloud or the HTTP listener.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Pub/Sub rejects ordering keys longer than this many bytes.
const maxOrderingKeyBytes = 1024

var gcpProjectIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$`)

// Error represents a validation error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewError creates a new validation error.
func NewError(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// RequiredString validates that a string is not blank.
func RequiredString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewError(fieldName, "is required")
	}
	return nil
}

// GCPProjectID validates a GCP project ID: 6-30 characters of lowercase
// letters, digits, and hyphens, starting with a letter and not ending with a hyphen.
func GCPProjectID(fieldName, projectID string) error {
	if len(projectID) < 6 || len(projectID) > 30 {
		return NewError(fieldName, "GCP project ID must be 6-30 characters")
	}
	if !gcpProjectIDPattern.MatchString(projectID) {
		return NewError(fieldName, "invalid GCP project ID format")
	}
	return nil
}

// OrderingKey validates a Pub/Sub ordering key. Empty disables ordering and is valid.
func OrderingKey(fieldName, key string) error {
	if len(key) > maxOrderingKeyBytes {
		return NewError(fieldName, fmt.Sprintf("must be at most %d bytes", maxOrderingKeyBytes))
	}
	return nil
}

// Port validates a TCP port given as a string.
func Port(fieldName, port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return NewError(fieldName, "must be a number")
	}
	if n < 1 || n > 65535 {
		return NewError(fieldName, "must be between 1 and 65535")
	}
	return nil
}
