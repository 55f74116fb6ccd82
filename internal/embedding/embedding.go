// Package embedding turns text into vectors for the incident similarity
// index. Backends implement Embedder; Ollama is the stock one.
package embedding

import "context"

// Embedder computes a semantic vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
