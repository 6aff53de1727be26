// Package hunter is a client for the Hunter.io Email Finder API.
package hunter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.hunter.io/v2"

// Client finds email addresses for a person at a domain.
type Client interface {
	FindEmail(ctx context.Context, req FindEmailRequest) (*FindEmailResponse, error)
}

// FindEmailRequest identifies the person and company to look up.
type FindEmailRequest struct {
	Domain    string
	Company   string
	FirstName string
	LastName  string
	FullName  string
}

// FindEmailResponse is the decoded data object from GET /email-finder.
type FindEmailResponse struct {
	Email       string `json:"email"`
	Score       int    `json:"score"`
	Position    string `json:"position"`
	PhoneNumber string `json:"phone_number"`
	LinkedInURL string `json:"linkedin_url"`
}

// APIError is a non-2xx response from the Hunter API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hunter: status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps requests per second to stay inside plan quotas.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Hunter API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FindEmail(ctx context.Context, req FindEmailRequest) (*FindEmailResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "hunter: rate limiter wait")
		}
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	if req.Domain != "" {
		q.Set("domain", req.Domain)
	} else if req.Company != "" {
		q.Set("company", req.Company)
	}
	if req.FullName != "" {
		q.Set("full_name", req.FullName)
	} else {
		q.Set("first_name", req.FirstName)
		q.Set("last_name", req.LastName)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/email-finder?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Data FindEmailResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "hunter: unmarshal response")
	}

	return &result.Data, nil
}
