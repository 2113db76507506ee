package id

import "github.com/google/uuid"

// Generator produces opaque identifiers for orders placed through the facade.
type Generator interface {
	NewID() string
}

type uuidGenerator struct{}

func NewUUIDGenerator() Generator { return uuidGenerator{} }

func (uuidGenerator) NewID() string { return uuid.NewString() }
