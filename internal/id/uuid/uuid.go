// Package uuid generates and validates request identifiers.
package uuid

import (
	"github.com/google/uuid"
)

// Generator creates time-ordered UUID v7 strings.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string, falling back to v4 if the v7 source fails.
func (Generator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Reuse returns candidate when it is a well-formed UUID, otherwise a fresh id.
// Inbound X-Request-ID headers are only propagated when they parse.
func (g Generator) Reuse(candidate string) string {
	if candidate != "" {
		if parsed, err := uuid.Parse(candidate); err == nil {
			return parsed.String()
		}
	}
	return g.NewID()
}
