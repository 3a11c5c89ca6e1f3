package healthlake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"hios/internal/domain"
)

// RestClient performs direct create/read/update/delete calls against the
// HealthLake FHIR REST API. Requests are signed manually because no SDK
// signing helper is available for this path.
type RestClient struct {
	endpoint    string
	datastoreID string
	signer      *Signer
	httpClient  *http.Client
	logger      *slog.Logger
	now         func() time.Time

	// attempts/backoff form a small bounded-retry policy for transient
	// transport failures. attempts == 1 disables retries (the default).
	attempts int
	backoff  time.Duration
}

// ClientOption configures a RestClient.
type ClientOption func(*RestClient)

// WithHTTPClient overrides the HTTP client used to send requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(r *RestClient) { r.httpClient = c }
}

// WithClock overrides the timestamp source. The same timestamp is used for
// signing and the sent x-amz-date header.
func WithClock(now func() time.Time) ClientOption {
	return func(r *RestClient) { r.now = now }
}

// WithTransportRetry enables bounded retries with a fixed backoff for
// transport-level failures. HTTP error statuses are never retried.
func WithTransportRetry(attempts int, backoff time.Duration) ClientOption {
	return func(r *RestClient) {
		if attempts > 0 {
			r.attempts = attempts
		}
		r.backoff = backoff
	}
}

// NewRestClient creates a client for one datastore behind the given endpoint.
func NewRestClient(endpoint, datastoreID string, signer *Signer, logger *slog.Logger, opts ...ClientOption) *RestClient {
	c := &RestClient{
		endpoint:    endpoint,
		datastoreID: datastoreID,
		signer:      signer,
		httpClient:  http.DefaultClient,
		logger:      logger,
		now:         time.Now,
		attempts:    1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendRequest signs and sends one request to
// {endpoint}/datastore/{id}/r4/{resourceType}[/{resourceId}] and returns the
// response body. Statuses outside {200, 201, 204} are returned as a
// RequestError carrying the status code and body.
func (c *RestClient) SendRequest(ctx context.Context, method, resourceType, resourceID, payload string) (string, error) {
	target := c.endpoint + "/datastore/" + c.datastoreID + "/r4/" + resourceType
	if resourceID != "" {
		target += "/" + resourceID
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse request url %q: %w", target, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		body, err := c.sendOnce(ctx, method, u, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		var reqErr *domain.RequestError
		if errors.As(err, &reqErr) {
			// HTTP-level rejection, not transient.
			return "", err
		}
		if attempt < c.attempts {
			c.logger.Warn("request transport failure, retrying", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff):
			}
		}
	}
	return "", lastErr
}

func (c *RestClient) sendOnce(ctx context.Context, method string, u *url.URL, payload string) (string, error) {
	// One timestamp per request, reused bit-identically between the
	// signature and the sent header.
	timestamp := c.now()
	signed := c.signer.Sign(method, u.Host, u.Path, u.RawQuery, []byte(payload), timestamp)

	var bodyReader io.Reader
	if method == http.MethodPost || method == http.MethodPut {
		bodyReader = bytes.NewReader([]byte(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/fhir+json")
	req.Header.Set("X-Amz-Date", signed.Timestamp)
	req.Header.Set("Authorization", signed.Authorization(c.signer.AccessKeyID))

	c.logger.Debug("sending signed request", "method", method, "url", u.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return string(body), nil
	default:
		return "", &domain.RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}
