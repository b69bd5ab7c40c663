package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/directoryd/internal/config"
	"github.com/fyrsmithlabs/directoryd/internal/directory"
	"github.com/fyrsmithlabs/directoryd/internal/logging"
)

// maxBodySize caps the size of a collection response.
const maxBodySize = 16 << 20

// Fetch errors.
var (
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrUnexpectedPayload = errors.New("payload is neither an array nor an object with a data array")
	ErrBodyTooLarge      = errors.New("response body too large")
)

// FetchError reports a failed fetch of one resource. StatusCode is zero when
// no response was received.
type FetchError struct {
	Resource   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Resource, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPFetcher implements directory.Fetcher against the upstream REST API.
// It never retries; a failed fetch is reported to the loader as is.
type HTTPFetcher struct {
	baseURL string
	token   config.Secret
	client  *http.Client
	limiter *rate.Limiter
	logger  *logging.Logger
}

var _ directory.Fetcher = (*HTTPFetcher)(nil)

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client. Its Timeout is kept as is.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithFetchLogger sets the fetcher's logger.
func WithFetchLogger(l *logging.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewHTTPFetcher creates a fetcher from the source settings.
func NewHTTPFetcher(cfg config.SourceConfig, opts ...FetcherOption) (*HTTPFetcher, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("source base_url is required")
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	f := &HTTPFetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout.Duration()},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("fetcher")
	return f, nil
}

// Fetch issues GET <base_url><resource> and decodes the record list.
func (f *HTTPFetcher) Fetch(ctx context.Context, resource string) ([]directory.Record, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Resource: resource, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+resource, nil)
	if err != nil {
		return nil, &FetchError{Resource: resource, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if f.token.IsSet() {
		req.Header.Set("Authorization", "Bearer "+f.token.Value())
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	f.logger.Debug(ctx, "requesting collection",
		zap.String("url", req.URL.String()),
		logging.Secret("token", f.token),
	)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &FetchError{Resource: resource, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}
	if len(body) > maxBodySize {
		return nil, &FetchError{Resource: resource, StatusCode: resp.StatusCode, Err: ErrBodyTooLarge}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, snippet(body)),
		}
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, &FetchError{Resource: resource, StatusCode: resp.StatusCode, Err: err}
	}
	return records, nil
}

// decodeRecords accepts a top-level array or {"data": [...]}.
func decodeRecords(body []byte) ([]directory.Record, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	return recordsOf(payload, "data")
}

// recordsOf extracts the record list from payload: either payload itself or
// the array held under one of keys.
func recordsOf(payload any, keys ...string) ([]directory.Record, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, k := range keys {
			if list, ok := v[k].([]any); ok {
				return list, nil
			}
		}
	}
	return nil, ErrUnexpectedPayload
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
