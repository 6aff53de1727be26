package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/hunter"
)

// HunterProvider adapts the Hunter.io email finder.
type HunterProvider struct {
	client hunter.Client
	cost   float64
}

// NewHunterProvider creates the Hunter adapter. A nil client marks the
// provider unconfigured; lookups fail fast with KindUnavailable.
func NewHunterProvider(client hunter.Client, costPerLookup float64) *HunterProvider {
	return &HunterProvider{client: client, cost: costPerLookup}
}

func (p *HunterProvider) Name() string           { return "hunter" }
func (p *HunterProvider) Tag() model.SearchTag   { return model.SearchTagHunter }
func (p *HunterProvider) CostPerLookup() float64 { return p.cost }

func (p *HunterProvider) Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	if p.client == nil {
		return nil, NewError(p.Name(), KindUnavailable, eris.New("api key not configured"))
	}
	if req.Domain == "" && req.CompanyName == "" {
		return nil, NewError(p.Name(), KindNotFound, eris.New("no domain or company name"))
	}

	first, last := splitName(req.ContactName)
	resp, err := p.client.FindEmail(ctx, hunter.FindEmailRequest{
		Domain:    req.Domain,
		Company:   req.CompanyName,
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		var apiErr *hunter.APIError
		if errors.As(err, &apiErr) {
			return nil, NewError(p.Name(), classifyStatus(apiErr.StatusCode), err)
		}
		return nil, NewError(p.Name(), KindTransient, err)
	}

	if resp.Email == "" {
		return nil, NewError(p.Name(), KindNotFound, nil)
	}

	return &LookupResult{
		Email:       resp.Email,
		Confidence:  model.ClampScore(resp.Score),
		Title:       resp.Position,
		Phone:       resp.PhoneNumber,
		LinkedInURL: resp.LinkedInURL,
	}, nil
}
