// Package idhash derives identifiers for simulation sessions and their history rows.
package idhash

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// NewSessionID returns a random UUIDv4 rendered in base58 (Bitcoin alphabet),
// at most 22 characters.
func NewSessionID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}

// ParseSessionID decodes a session ID back into its UUID.
func ParseSessionID(s string) (uuid.UUID, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode session id %q: %w", s, err)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("session id %q: %w", s, err)
	}
	return id, nil
}
