// Package embedding turns article field text into vectors via an external
// embedding model, with cross-run caching and bounded fan-out.
package embedding

// Cache persists embeddings across runs, keyed by model and exact input text.
type Cache interface {
	// GetEmbedding returns a cached vector and whether it was present.
	GetEmbedding(model, text string) ([]float64, bool)

	// PutEmbedding stores a vector for later runs.
	PutEmbedding(model, text string, vector []float64) error
}

// ProgressReporter receives progress updates during batch embedding.
type ProgressReporter interface {
	Progress(current, total int)
}

// ProgressFunc adapts a function to the ProgressReporter interface.
type ProgressFunc func(current, total int)

// Progress implements ProgressReporter.
func (f ProgressFunc) Progress(current, total int) {
	f(current, total)
}
