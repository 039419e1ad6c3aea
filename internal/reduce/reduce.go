// Package reduce projects high-dimensional embedding batches down to 2D and
// 3D layouts, with method-specific preprocessing.
package reduce

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Supported reduction method names.
const (
	MethodPCA  = "pca"
	MethodTSNE = "tsne"
	MethodUMAP = "umap"
)

const (
	// DefaultSeed feeds every stochastic reducer so runs are reproducible.
	DefaultSeed = 42

	// DefaultPerplexity is the t-SNE neighborhood size before clamping.
	DefaultPerplexity = 30
)

// Params carries the per-method knobs a reducer may honor.
type Params struct {
	Seed       int64
	Perplexity float64
}

// Reducer projects a batch of vectors down to a target dimensionality.
type Reducer interface {
	// Method returns the method name this reducer serves.
	Method() string

	// Reduce projects vectors to dim components each.
	Reduce(ctx context.Context, vectors [][]float64, dim int, params Params) ([][]float64, error)
}

// ReductionError reports one failed method and dimension combination. Other
// combinations in the same run keep going.
type ReductionError struct {
	Method string
	Dim    int
	Items  int
	Err    error
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("%s reduction to %dd failed for %d items: %v", e.Method, e.Dim, e.Items, e.Err)
}

func (e *ReductionError) Unwrap() error {
	return e.Err
}

// Adapter dispatches reductions to registered reducers and owns the
// preprocessing each method expects: PCA and t-SNE read standardized input
// while UMAP-style reducers normalize internally, and t-SNE neighborhoods
// are clamped on small batches.
type Adapter struct {
	reducers   map[string]Reducer
	seed       int64
	perplexity float64
	notify     func(msg string)
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithSeed sets the seed passed to stochastic reducers.
func WithSeed(seed int64) AdapterOption {
	return func(a *Adapter) {
		a.seed = seed
	}
}

// WithPerplexity sets the t-SNE neighborhood size.
func WithPerplexity(p float64) AdapterOption {
	return func(a *Adapter) {
		if p > 0 {
			a.perplexity = p
		}
	}
}

// WithNotify sets a sink for human-readable notices, such as parameter
// clamping on small batches.
func WithNotify(fn func(msg string)) AdapterOption {
	return func(a *Adapter) {
		a.notify = fn
	}
}

// NewAdapter creates an adapter with no reducers registered.
func NewAdapter(opts ...AdapterOption) *Adapter {
	a := &Adapter{
		reducers:   make(map[string]Reducer),
		seed:       DefaultSeed,
		perplexity: DefaultPerplexity,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds a reducer, replacing any previous one for the same method.
func (a *Adapter) Register(r Reducer) {
	a.reducers[r.Method()] = r
}

// Has reports whether a reducer is registered for the method.
func (a *Adapter) Has(method string) bool {
	_, ok := a.reducers[method]
	return ok
}

// Methods returns the registered method names in sorted order.
func (a *Adapter) Methods() []string {
	methods := make([]string, 0, len(a.reducers))
	for m := range a.reducers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Reduce runs one method over the batch and validates the returned layout
// shape. All failures come back as a *ReductionError.
func (a *Adapter) Reduce(ctx context.Context, method string, vectors [][]float64, dim int) ([][]float64, error) {
	n := len(vectors)
	fail := func(err error) error {
		return &ReductionError{Method: method, Dim: dim, Items: n, Err: err}
	}

	r, ok := a.reducers[method]
	if !ok {
		return nil, fail(fmt.Errorf("no reducer registered for method %q", method))
	}
	if n == 0 {
		return nil, fail(errors.New("no vectors to reduce"))
	}
	if dim <= 0 {
		return nil, fail(fmt.Errorf("invalid target dimension %d", dim))
	}

	input := vectors
	if method == MethodPCA || method == MethodTSNE {
		input = Standardize(vectors)
	}

	params := Params{Seed: a.seed, Perplexity: a.perplexity}
	if method == MethodTSNE && params.Perplexity >= float64(n-1) {
		clamped := n - 2
		if clamped < 1 {
			clamped = 1
		}
		a.notifyf("perplexity %g is too large for %d items, using %d", params.Perplexity, n, clamped)
		params.Perplexity = float64(clamped)
	}

	layout, err := r.Reduce(ctx, input, dim, params)
	if err != nil {
		return nil, fail(err)
	}

	if len(layout) != n {
		return nil, fail(fmt.Errorf("reducer returned %d points for %d vectors", len(layout), n))
	}
	for i, p := range layout {
		if len(p) != dim {
			return nil, fail(fmt.Errorf("point %d has %d components, want %d", i, len(p), dim))
		}
	}

	return layout, nil
}

func (a *Adapter) notifyf(format string, args ...any) {
	if a.notify != nil {
		a.notify(fmt.Sprintf(format, args...))
	}
}
