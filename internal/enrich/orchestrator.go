// Package enrich walks email providers in tier order to resolve a
// contact's address, persisting progress after every step.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/monitoring"
	"github.com/sells-group/prospect-cli/internal/provider"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/score"
)

// ContactStore is the slice of the persistence layer the orchestrator
// needs. Each provider step is written back before the next begins, so a
// crash mid-walk resumes idempotently off the completed-searches tags.
type ContactStore interface {
	GetContact(ctx context.Context, id string) (*model.Contact, error)
	UpdateContact(ctx context.Context, id string, patch model.ContactPatch) (*model.Contact, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
}

// Options modify one enrichment walk.
type Options struct {
	// ForceRefresh re-runs providers already in completed-searches.
	ForceRefresh bool
}

// Orchestrator runs the tiered provider walk.
type Orchestrator struct {
	cfg      *Config
	registry *provider.Registry
	store    ContactStore
	breakers *resilience.ProviderBreakers
	retry    resilience.RetryConfig
	metrics  *monitoring.Collector

	nowFunc func() time.Time
}

// NewOrchestrator creates an orchestrator over the given provider
// registry and store.
func NewOrchestrator(cfg *Config, registry *provider.Registry, store ContactStore) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = provider.IsRetryable
	breakerCfg := resilience.DefaultBreakerConfig()
	// A miss is a normal outcome, not a provider failure.
	breakerCfg.ShouldTrip = func(err error) bool {
		return err != nil && !provider.IsNotFound(err)
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		store:    store,
		breakers: resilience.NewProviderBreakers(breakerCfg),
		retry:    retry,
		nowFunc:  time.Now,
	}
}

// WithMetrics attaches a collector that counts lookups and spend. A nil
// collector is valid and records nothing.
func (o *Orchestrator) WithMetrics(c *monitoring.Collector) *Orchestrator {
	o.metrics = c
	return o
}

// WithRetryConfig overrides the per-provider retry policy.
func (o *Orchestrator) WithRetryConfig(cfg resilience.RetryConfig) *Orchestrator {
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = provider.IsRetryable
	}
	o.retry = cfg
	return o
}

// Enrich resolves the best available email for the contact, walking
// providers in tier order and stopping at the first accepted hit.
// Provider failures never abort the walk; if every provider misses the
// contact is returned unchanged with StateExhausted.
func (o *Orchestrator) Enrich(ctx context.Context, contactID string, opts Options) (*Result, error) {
	contact, err := o.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: load contact %s", contactID)
	}

	company, err := o.store.GetCompany(ctx, contact.CompanyID)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: load company %s", contact.CompanyID)
	}

	req := provider.LookupRequest{
		ContactName: contact.Name,
		CompanyName: company.Name,
		Domain:      provider.NormalizeDomain(company.Website),
	}

	result := &Result{Contact: contact, State: StatePending}
	invoked := false

	for _, pc := range o.cfg.Providers {
		p := o.registry.Get(pc.Name)
		if p == nil {
			result.Attempts = append(result.Attempts, Attempt{
				Provider: pc.Name, Skipped: true, SkipReason: SkipNotRegistered,
			})
			continue
		}

		if contact.HasSearch(p.Tag()) && !opts.ForceRefresh {
			result.Attempts = append(result.Attempts, Attempt{
				Provider: p.Name(), Tag: p.Tag(), Skipped: true, SkipReason: SkipAlreadySearched,
			})
			continue
		}

		if cost := p.CostPerLookup(); cost > 0 && result.SpentUSD+cost > o.cfg.MaxCostUSD {
			zap.L().Info("enrich: provider budget exhausted",
				zap.String("provider", p.Name()),
				zap.Float64("spent", result.SpentUSD),
				zap.Float64("budget", o.cfg.MaxCostUSD),
			)
			result.Attempts = append(result.Attempts, Attempt{
				Provider: p.Name(), Tag: p.Tag(), Skipped: true, SkipReason: SkipBudgetExceeded,
			})
			continue
		}

		invoked = true
		res, lookupErr := o.lookup(ctx, p, req)

		attempt := Attempt{Provider: p.Name(), Tag: p.Tag()}

		switch {
		case lookupErr == nil:
			attempt.Hit = true
			attempt.Email = res.Email
			attempt.Confidence = res.Confidence
			attempt.CostUSD = p.CostPerLookup()
			result.SpentUSD += p.CostPerLookup()
			o.metrics.RecordLookup(p.Name(), monitoring.OutcomeHit, p.CostPerLookup())

			if err := o.recordHit(ctx, contact, p, res); err != nil {
				return nil, err
			}

			if res.Confidence >= o.cfg.MinHitConfidence {
				result.Attempts = append(result.Attempts, attempt)
				result.Found = res
				result.State = StateFound
				result.Contact = contact
				return result, nil
			}
			// Weak hit: merged, but keep walking for a stronger one.

		case provider.IsNotFound(lookupErr):
			// A genuine miss still uses up the provider for this contact.
			attempt.CostUSD = p.CostPerLookup()
			result.SpentUSD += p.CostPerLookup()
			o.metrics.RecordLookup(p.Name(), monitoring.OutcomeMiss, p.CostPerLookup())
			if err := o.recordMiss(ctx, contact, p); err != nil {
				return nil, err
			}

		default:
			// Errored providers are skipped for this attempt only; the tag
			// is not recorded so a later walk can retry them.
			attempt.Error = lookupErr.Error()
			o.metrics.RecordLookup(p.Name(), monitoring.OutcomeError, 0)
			zap.L().Warn("enrich: provider failed",
				zap.String("provider", p.Name()),
				zap.String("contact", contact.ID),
				zap.String("kind", string(provider.KindOf(lookupErr))),
				zap.Error(lookupErr),
			)
		}

		result.Attempts = append(result.Attempts, attempt)
	}

	if invoked {
		now := o.nowFunc().UTC()
		updated, err := o.store.UpdateContact(ctx, contact.ID, model.ContactPatch{
			LastEnrichedAt: &now,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "enrich: finalize contact %s", contact.ID)
		}
		contact = updated
	}

	result.Contact = contact
	if result.Found != nil {
		result.State = StateFound
	} else if invoked || len(result.Attempts) > 0 {
		result.State = StateExhausted
	}
	return result, nil
}

// lookup wraps one provider call in the circuit breaker and retry policy.
func (o *Orchestrator) lookup(ctx context.Context, p provider.Provider, req provider.LookupRequest) (*provider.LookupResult, error) {
	retry := o.retry
	retry.OnRetry = resilience.LogRetries(p.Name(), "lookup")
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*provider.LookupResult, error) {
		return resilience.ExecuteVal(ctx, o.breakers.Get(p.Name()), func(ctx context.Context) (*provider.LookupResult, error) {
			return p.Lookup(ctx, req)
		})
	})
}

// recordHit merges a provider hit into the contact and persists it.
func (o *Orchestrator) recordHit(ctx context.Context, contact *model.Contact, p provider.Provider, res *provider.LookupResult) error {
	now := o.nowFunc().UTC()

	contact.MergeEmail(res.Email)
	contact.RecordSearch(p.Tag())
	if res.Confidence > contact.AIConfidence {
		contact.AIConfidence = model.ClampScore(res.Confidence)
	}
	if contact.Role == "" && res.Title != "" {
		contact.Role = res.Title
	}
	if contact.Phone == "" && res.Phone != "" {
		contact.Phone = res.Phone
	}
	if contact.LinkedInURL == "" && res.LinkedInURL != "" {
		contact.LinkedInURL = res.LinkedInURL
	}
	contact.Probability = score.Recompute(contact)

	patch := model.ContactPatch{
		Email:             &contact.Email,
		AlternateEmails:   &contact.AlternateEmails,
		Probability:       &contact.Probability,
		AIConfidence:      &contact.AIConfidence,
		CompletedSearches: &contact.CompletedSearches,
		LastValidatedAt:   &now,
		LastEnrichedAt:    &now,
	}
	if contact.Role != "" {
		patch.Role = &contact.Role
	}
	if contact.Phone != "" {
		patch.Phone = &contact.Phone
	}
	if contact.LinkedInURL != "" {
		patch.LinkedInURL = &contact.LinkedInURL
	}

	updated, err := o.store.UpdateContact(ctx, contact.ID, patch)
	if err != nil {
		return eris.Wrapf(err, "enrich: persist hit from %s", p.Name())
	}
	*contact = *updated
	return nil
}

// recordMiss tags the provider as consumed and persists the contact.
func (o *Orchestrator) recordMiss(ctx context.Context, contact *model.Contact, p provider.Provider) error {
	now := o.nowFunc().UTC()
	contact.RecordSearch(p.Tag())

	updated, err := o.store.UpdateContact(ctx, contact.ID, model.ContactPatch{
		CompletedSearches: &contact.CompletedSearches,
		LastValidatedAt:   &now,
	})
	if err != nil {
		return eris.Wrapf(err, "enrich: persist miss from %s", p.Name())
	}
	*contact = *updated
	return nil
}
