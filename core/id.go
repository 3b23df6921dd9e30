package core

import "github.com/google/uuid"

// NewID returns a new random identifier used for runs and synthetic call ids.
func NewID() string { return uuid.NewString() }
