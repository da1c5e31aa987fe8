// Package ident generates the opaque public identifiers used in all
// externally visible certificate URLs.
package ident

import (
	"strings"

	"github.com/google/uuid"
)

// Length is the exact size of a public identifier in characters.
const Length = 31

// New returns a fresh public identifier: a cryptographically random 128-bit
// value rendered as hyphen-free lowercase hex and truncated to 31 characters.
//
// Uniqueness is probabilistic; callers do not re-check before insertion and
// rely on the database unique constraint to reject the (negligible) collision
// case as a fatal error.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:Length]
}

// Valid reports whether s has the shape of a public identifier: exactly 31
// lowercase hexadecimal characters. It is a cheap syntactic check used to
// reject obviously malformed lookups before touching the database.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
