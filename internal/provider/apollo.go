package provider

import (
	"context"
	"errors"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/apollo"
)

const (
	// apolloVerifiedConfidence is reported when Apollo marks the email as
	// verified; extrapolated matches carry Apollo's own confidence estimate.
	apolloVerifiedConfidence = 90
	// apolloFallbackConfidence covers unverified matches with no
	// extrapolated score.
	apolloFallbackConfidence = 70
)

// ApolloProvider adapts the Apollo.io people-match endpoint.
type ApolloProvider struct {
	client apollo.Client
	cost   float64
}

// NewApolloProvider creates the Apollo adapter. A nil client marks the
// provider unconfigured.
func NewApolloProvider(client apollo.Client, costPerLookup float64) *ApolloProvider {
	return &ApolloProvider{client: client, cost: costPerLookup}
}

func (p *ApolloProvider) Name() string           { return "apollo" }
func (p *ApolloProvider) Tag() model.SearchTag   { return model.SearchTagApollo }
func (p *ApolloProvider) CostPerLookup() float64 { return p.cost }

func (p *ApolloProvider) Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	if p.client == nil {
		return nil, NewError(p.Name(), KindUnavailable, eris.New("api key not configured"))
	}

	person, err := p.client.MatchPerson(ctx, apollo.MatchRequest{
		Name:             req.ContactName,
		OrganizationName: req.CompanyName,
		Domain:           req.Domain,
	})
	if err != nil {
		var apiErr *apollo.APIError
		if errors.As(err, &apiErr) {
			return nil, NewError(p.Name(), classifyStatus(apiErr.StatusCode), err)
		}
		return nil, NewError(p.Name(), KindTransient, err)
	}

	if person == nil || person.Email == "" {
		return nil, NewError(p.Name(), KindNotFound, nil)
	}

	confidence := apolloVerifiedConfidence
	if person.EmailStatus != "verified" {
		if person.ExtrapolatedScore > 0 {
			confidence = int(math.Round(person.ExtrapolatedScore * 100))
		} else {
			confidence = apolloFallbackConfidence
		}
	}

	return &LookupResult{
		Email:       person.Email,
		Confidence:  model.ClampScore(confidence),
		Title:       person.Title,
		Phone:       person.PhoneNumber,
		LinkedInURL: person.LinkedInURL,
	}, nil
}
