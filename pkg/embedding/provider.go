package embedding

import (
	"context"
	"errors"
)

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// ErrCapability marks a provider transport or protocol failure. Callers
// distinguish it from an empty-but-valid result.
var ErrCapability = errors.New("embedding capability unavailable")
