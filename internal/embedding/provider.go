package embedding

import "context"

// Provider generates embeddings from text.
type Provider interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector width, or 0 when the width is
	// left to the model.
	Dimensions() int
}
