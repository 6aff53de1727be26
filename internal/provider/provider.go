// Package provider defines the common interface over external identity and
// email-finding services, plus the adapters that implement it.
package provider

import (
	"context"
	"sync"

	"github.com/sells-group/prospect-cli/internal/model"
)

// LookupRequest identifies the person and company to resolve.
type LookupRequest struct {
	ContactName string
	CompanyName string
	// Domain is the company's bare domain (no scheme, www, path, or port).
	// Adapters for domain-sensitive services require it.
	Domain string
}

// LookupResult is a successful resolution from one provider.
type LookupResult struct {
	Email       string `json:"email"`
	Confidence  int    `json:"confidence"` // 0-100
	Title       string `json:"title,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// Provider is a single email-lookup service.
type Provider interface {
	// Name is the provider identifier used in config and logs.
	Name() string
	// Tag is the completed-search marker recorded on contacts.
	Tag() model.SearchTag
	// CostPerLookup is the estimated marginal cost of one lookup in USD.
	CostPerLookup() float64
	// Lookup resolves the request to an email. A negative result is a
	// *ProviderError with KindNotFound, not a nil-nil return.
	Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error)
}

// Registry holds the available providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider by name, or nil.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
