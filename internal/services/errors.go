// Package services defines the business logic for certificate issuance and
// verification. This file centralizes service-level error values and types so
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrCertificateNotFound indicates that no certificate exists for the
	// requested public identifier.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrUnsupportedImage is returned when an uploaded file fails the image
	// extension allow-list check. Nothing is persisted in that case.
	ErrUnsupportedImage = errors.New("unsupported image file format")
)

// ValidationError aggregates every missing required submission field so the
// operator sees one complete message rather than failing on the first absent
// key.
type ValidationError struct {
	// Missing lists the form field names that were absent or empty.
	Missing []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// IsInputError reports whether err represents an operator input problem
// (missing fields or a disallowed upload) as opposed to an infrastructure
// failure. Handlers map input errors to 400 responses.
func IsInputError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrUnsupportedImage)
}
