// Package aeroleads is a client for the AeroLeads email lookup API.
package aeroleads

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

const defaultBaseURL = "https://aeroleads.com/apis"

// Client resolves a person and company to an email address.
type Client interface {
	EmailFromName(ctx context.Context, req EmailRequest) (*EmailResponse, error)
}

// EmailRequest identifies the person to look up.
type EmailRequest struct {
	FirstName   string
	LastName    string
	CompanyName string
}

// EmailResponse is the decoded response from GET /email_from_name.
type EmailResponse struct {
	Email      string `json:"email"`
	Status     string `json:"status"`
	Confidence int    `json:"confidence"`
}

// APIError is a non-2xx response from the AeroLeads API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aeroleads: status %d: %s", e.StatusCode, e.Body)
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

// WithRateLimit caps requests per second.
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

// NewClient creates an AeroLeads API client.
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

func (c *httpClient) EmailFromName(ctx context.Context, req EmailRequest) (*EmailResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "aeroleads: rate limiter wait")
		}
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("first_name", req.FirstName)
	q.Set("last_name", req.LastName)
	q.Set("company_name", req.CompanyName)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/email_from_name?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "aeroleads: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "aeroleads: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "aeroleads: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result EmailResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "aeroleads: unmarshal response")
	}

	return &result, nil
}
