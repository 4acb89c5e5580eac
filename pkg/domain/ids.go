// Package domain holds typed identifiers shared across modules. Typed IDs
// prevent cross-type assignment at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "veriterra/pkg/domain-errors"
)

// ProjectID identifies one restoration project submission target.
type ProjectID uuid.UUID

// ParseProjectID validates and converts a string into a ProjectID.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseProjectID(s string) (ProjectID, error) {
	if s == "" {
		return ProjectID{}, dErrors.New(dErrors.CodeInvalidInput, "project id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ProjectID{}, dErrors.New(dErrors.CodeInvalidInput, "project id must be a valid UUID")
	}
	if u == uuid.Nil {
		return ProjectID{}, dErrors.New(dErrors.CodeInvalidInput, "project id cannot be the nil UUID")
	}
	return ProjectID(u), nil
}

// MustProjectID parses a ProjectID, panicking if invalid. Test helper.
func MustProjectID(s string) ProjectID {
	id, err := ParseProjectID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the canonical UUID string form.
func (p ProjectID) String() string {
	return uuid.UUID(p).String()
}

// IsZero returns true if this is the zero value (uninitialized).
func (p ProjectID) IsZero() bool {
	return uuid.UUID(p) == uuid.Nil
}

// MarshalText renders the ID as its canonical UUID string, so JSON
// payloads carry "7f9c24e8-..." rather than a byte array.
func (p ProjectID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the canonical UUID string form.
func (p *ProjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseProjectID(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
