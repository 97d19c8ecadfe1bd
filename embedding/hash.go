package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultHashDimensions matches the Google embedder width so the two
// are interchangeable against the same vector store schema.
const DefaultHashDimensions = 768

// HashEmbedder is a deterministic, offline bag-of-words embedder.
// Token hashes bucket into the vector, which is then L2-normalized, so
// texts sharing vocabulary score high cosine similarity. Used in tests
// and API-key-less local runs; it is not a semantic model.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder. dims <= 0 selects the default.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the embedding width.
func (h *HashEmbedder) Dimensions() int { return h.dims }

// Embed produces the normalized bag-of-words vector for text.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]{}")
		if token == "" {
			continue
		}
		f := fnv.New32a()
		_, _ = f.Write([]byte(token))
		vec[int(f.Sum32())%h.dims]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec, nil
	}
	n := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}
