package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultScorerTimeout is the timeout for one scoring request.
	DefaultScorerTimeout = 60 * time.Second

	// DefaultRateLimit is the request rate the scorer sidecar is asked to
	// sustain, in requests per second.
	DefaultRateLimit = 10.0

	// apiPathScore is the scoring sidecar endpoint.
	apiPathScore = "/score"
)

// Common errors returned by the remote scorer.
var (
	// ErrAuth indicates a missing or rejected scorer API key.
	ErrAuth = errors.New("scorer authentication failed")

	// ErrRateLimited indicates the scorer asked us to back off.
	ErrRateLimited = errors.New("scorer rate limit exceeded")
)

// Scorer rates how related two texts are.
type Scorer interface {
	// Score returns a relatedness score for the pair. Implementations are
	// symmetric in practice but not necessarily bit-exact across orderings.
	Score(ctx context.Context, textA, textB string) (float64, error)

	// ModelName returns the scoring model identifier.
	ModelName() string
}

// RemoteScorer is a rate-limited client for the scoring sidecar.
type RemoteScorer struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// ScorerOption configures a RemoteScorer.
type ScorerOption func(*RemoteScorer)

// WithScorerAPIKey sets the API key for authenticated requests.
func WithScorerAPIKey(key string) ScorerOption {
	return func(s *RemoteScorer) {
		s.apiKey = key
	}
}

// WithScorerTimeout sets the HTTP client timeout.
func WithScorerTimeout(timeout time.Duration) ScorerOption {
	return func(s *RemoteScorer) {
		s.client.Timeout = timeout
	}
}

// WithScorerRateLimit sets the sustained request rate in requests per
// second.
func WithScorerRateLimit(rps float64) ScorerOption {
	return func(s *RemoteScorer) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewRemoteScorer creates a client for the scoring sidecar at baseURL,
// scoring with the named model. The SCORER_API_KEY environment variable
// supplies the API key unless an option overrides it.
func NewRemoteScorer(baseURL, model string, opts ...ScorerOption) *RemoteScorer {
	s := &RemoteScorer{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: DefaultScorerTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
	}

	if key := os.Getenv("SCORER_API_KEY"); key != "" {
		s.apiKey = key
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ModelName implements Scorer.
func (s *RemoteScorer) ModelName() string {
	return s.model
}

// Score implements Scorer.
func (s *RemoteScorer) Score(ctx context.Context, textA, textB string) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(scoreRequest{
		Model: s.model,
		TextA: textA,
		TextB: textB,
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+apiPathScore, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	var result scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}

	return result.Score, nil
}

// checkStatus maps HTTP failures onto the scorer's error taxonomy.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("scorer returned status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

// scoreRequest is the request body for the scoring sidecar.
type scoreRequest struct {
	Model string `json:"model"`
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

// scoreResponse is the response from the scoring sidecar.
type scoreResponse struct {
	Score float64 `json:"score"`
}
