package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/aeroleads"
)

// aeroleadsDefaultConfidence applies when the API reports a hit without a
// confidence value of its own.
const aeroleadsDefaultConfidence = 65

// AeroleadsProvider adapts the AeroLeads email lookup.
type AeroleadsProvider struct {
	client aeroleads.Client
	cost   float64
}

// NewAeroleadsProvider creates the AeroLeads adapter. A nil client marks
// the provider unconfigured.
func NewAeroleadsProvider(client aeroleads.Client, costPerLookup float64) *AeroleadsProvider {
	return &AeroleadsProvider{client: client, cost: costPerLookup}
}

func (p *AeroleadsProvider) Name() string           { return "aeroleads" }
func (p *AeroleadsProvider) Tag() model.SearchTag   { return model.SearchTagAeroleads }
func (p *AeroleadsProvider) CostPerLookup() float64 { return p.cost }

func (p *AeroleadsProvider) Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	if p.client == nil {
		return nil, NewError(p.Name(), KindUnavailable, eris.New("api key not configured"))
	}
	if req.CompanyName == "" {
		return nil, NewError(p.Name(), KindNotFound, eris.New("no company name"))
	}

	first, last := splitName(req.ContactName)
	resp, err := p.client.EmailFromName(ctx, aeroleads.EmailRequest{
		FirstName:   first,
		LastName:    last,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		var apiErr *aeroleads.APIError
		if errors.As(err, &apiErr) {
			return nil, NewError(p.Name(), classifyStatus(apiErr.StatusCode), err)
		}
		return nil, NewError(p.Name(), KindTransient, err)
	}

	if resp.Email == "" {
		return nil, NewError(p.Name(), KindNotFound, nil)
	}

	confidence := resp.Confidence
	if confidence == 0 {
		confidence = aeroleadsDefaultConfidence
	}

	return &LookupResult{
		Email:      resp.Email,
		Confidence: model.ClampScore(confidence),
	}, nil
}
