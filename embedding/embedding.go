// Package embedding turns text into vectors for similarity search.
package embedding

import "context"

// Embedder produces a fixed-dimension vector for a piece of text.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length this embedder produces.
	Dimensions() int
}
