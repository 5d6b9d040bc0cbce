// Package domain holds the typed identifiers shared across scolaris modules.
package domain

import (
	"strings"

	dErrors "scolaris/pkg/domain-errors"
)

// StudentID is the opaque student identifier carried by the legacy schema.
// It is the join key for dossiers, registrations, and credit tracking, so it
// is never rewritten by merges or overrides.
type StudentID string

func (s StudentID) String() string { return string(s) }

// IsZero reports whether the identifier is empty.
func (s StudentID) IsZero() bool { return s == "" }

// ParseStudentID validates an incoming identifier.
func ParseStudentID(raw string) (StudentID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeValidation, "student id is required")
	}
	if len(raw) > 64 {
		return "", dErrors.New(dErrors.CodeValidation, "student id must be at most 64 characters")
	}
	return StudentID(raw), nil
}

// GroupID identifies a persisted duplicate group.
type GroupID int64

// JobID identifies an in-memory scan job. Job ids are UUID strings minted by
// the scan registry.
type JobID string

func (j JobID) String() string { return string(j) }
