package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// defaultTimeout bounds a single stage call when no explicit timeout is
// configured.
const defaultTimeout = 30 * time.Second

// HTTPStage invokes a remote stage service by POSTing the order payload as
// JSON to its well-known endpoint. It is stateless and safe for concurrent
// use across many simultaneously running order instances.
type HTTPStage struct {
	name   string
	url    string
	client *http.Client
	logger *slog.Logger
}

// Option configures an HTTPStage.
type Option func(*HTTPStage)

// WithClient sets a custom HTTP client. The caller owns its lifecycle.
func WithClient(c *http.Client) Option {
	return func(s *HTTPStage) { s.client = c }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPStage) { s.client.Timeout = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *HTTPStage) { s.logger = l }
}

// NewHTTPStage creates a stage backed by the HTTP endpoint at url.
func NewHTTPStage(name, url string, opts ...Option) *HTTPStage {
	s := &HTTPStage{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name returns the stage name.
func (s *HTTPStage) Name() string { return s.name }

// Invoke POSTs the payload to the stage endpoint and decodes the JSON
// response. Transport problems and non-2xx answers are returned as a
// *Failure; a well-formed response is returned as-is, including responses
// whose status field signals a business-level rejection.
func (s *HTTPStage) Invoke(ctx context.Context, p Payload) (Payload, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("stage %s: marshal payload: %w", s.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("stage %s: build request: %w", s.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug("invoking stage",
		slog.String("stage", s.name),
		slog.String("order_id", p.OrderID()),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classify(s.name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read path

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Failure{Stage: s.name, Kind: FailureNonOKResponse, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Failure{
			Stage: s.name,
			Kind:  FailureNonOKResponse,
			Err:   fmt.Errorf("endpoint returned %s: %s", resp.Status, excerpt(data)),
		}
	}

	var result Payload
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &Failure{Stage: s.name, Kind: FailureNonOKResponse, Err: fmt.Errorf("decode response: %w", err)}
	}
	return result, nil
}

// excerpt trims a response body for inclusion in an error message.
func excerpt(data []byte) string {
	const max = 200
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
