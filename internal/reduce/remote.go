package reduce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultRemoteTimeout allows for slow iterative reducers on large
	// batches.
	DefaultRemoteTimeout = 2 * time.Minute

	// apiPathReduce is the reduction sidecar endpoint.
	apiPathReduce = "/reduce"
)

// RemoteReducer calls a sidecar reduction service for methods that have no
// in-process implementation, such as t-SNE and UMAP.
type RemoteReducer struct {
	baseURL string
	method  string
	client  *http.Client
}

// RemoteOption configures a RemoteReducer.
type RemoteOption func(*RemoteReducer)

// WithRemoteTimeout sets the HTTP client timeout.
func WithRemoteTimeout(timeout time.Duration) RemoteOption {
	return func(r *RemoteReducer) {
		r.client.Timeout = timeout
	}
}

// NewRemoteReducer creates a reducer that serves one method through the
// sidecar at baseURL.
func NewRemoteReducer(baseURL, method string, opts ...RemoteOption) *RemoteReducer {
	r := &RemoteReducer{
		baseURL: baseURL,
		method:  method,
		client:  &http.Client{Timeout: DefaultRemoteTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Method implements Reducer.
func (r *RemoteReducer) Method() string {
	return r.method
}

// Reduce implements Reducer by POSTing the batch to the sidecar.
func (r *RemoteReducer) Reduce(ctx context.Context, vectors [][]float64, dim int, params Params) ([][]float64, error) {
	reqBody := remoteReduceRequest{
		Method:     r.method,
		Vectors:    vectors,
		Components: dim,
		Seed:       params.Seed,
	}
	if r.method == MethodTSNE {
		reqBody.Params = &remoteReduceParams{Perplexity: params.Perplexity}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+apiPathReduce, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reducer returned status %d: %s", resp.StatusCode, respBody)
	}

	var result remoteReduceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return result.Layout, nil
}

// remoteReduceRequest is the request body for the reduction sidecar.
type remoteReduceRequest struct {
	Method     string              `json:"method"`
	Vectors    [][]float64         `json:"vectors"`
	Components int                 `json:"components"`
	Seed       int64               `json:"seed"`
	Params     *remoteReduceParams `json:"params,omitempty"`
}

// remoteReduceParams carries method-specific knobs.
type remoteReduceParams struct {
	Perplexity float64 `json:"perplexity,omitempty"`
}

// remoteReduceResponse is the response from the reduction sidecar.
type remoteReduceResponse struct {
	Layout [][]float64 `json:"layout"`
}
