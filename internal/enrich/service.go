package enrich

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/sells-group/prospect-cli/internal/finder"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/monitoring"
	"github.com/sells-group/prospect-cli/internal/score"
	"github.com/sells-group/prospect-cli/internal/store"
)

// defaultConcurrency bounds parallel contact enrichments within one
// company so provider rate limits are shared sanely.
const defaultConcurrency = 4

// Service exposes the enrichment subsystem's operations: single and bulk
// contact enrichment, decision-maker discovery, and feedback.
type Service struct {
	store       store.Store
	orch        *Orchestrator
	finder      *finder.Finder
	concurrency int
	fold        cases.Caser
	metrics     *monitoring.Collector
}

// WithMetrics attaches a collector that counts discovery runs. A nil
// collector is valid and records nothing.
func (s *Service) WithMetrics(c *monitoring.Collector) *Service {
	s.metrics = c
	return s
}

// NewService wires the service. finder may be nil when discovery is not
// configured; discovery calls then fail cleanly.
func NewService(st store.Store, orch *Orchestrator, f *finder.Finder, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		store:       st,
		orch:        orch,
		finder:      f,
		concurrency: concurrency,
		fold:        cases.Fold(),
	}
}

// EnrichContact runs the tiered email search for one contact.
func (s *Service) EnrichContact(ctx context.Context, contactID string, opts Options) (*Result, error) {
	return s.orch.Enrich(ctx, contactID, opts)
}

// EnrichCompany enriches every contact at the company with bounded
// concurrency. A failed contact is logged and skipped; the returned slice
// holds the results of the contacts that completed.
func (s *Service) EnrichCompany(ctx context.Context, companyID string, opts Options) ([]*Result, error) {
	contacts, err := s.store.ListContacts(ctx, store.ContactFilter{CompanyID: companyID})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: list contacts for company %s", companyID)
	}

	var (
		mu      sync.Mutex
		results []*Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, contact := range contacts {
		g.Go(func() error {
			res, err := s.orch.Enrich(gctx, contact.ID, opts)
			if err != nil {
				zap.L().Warn("enrich: contact failed",
					zap.String("contact", contact.ID),
					zap.String("company", companyID),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, eris.Wrap(err, "enrich: company walk")
	}
	return results, nil
}

// DiscoverContacts finds likely decision-makers at the company and stores
// the new ones as contacts. Known names (case-insensitive) are skipped.
// When enrichAfter is set, each new contact immediately gets an email walk.
func (s *Service) DiscoverContacts(ctx context.Context, companyID string, enrichAfter bool) ([]model.Contact, error) {
	if s.finder == nil {
		return nil, eris.New("enrich: discovery not configured")
	}

	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: load company %s", companyID)
	}

	approach, err := s.store.GetActiveSearchApproach(ctx)
	if err != nil && !store.IsNotFound(err) {
		return nil, eris.Wrap(err, "enrich: load search approach")
	}

	candidates, err := s.finder.Find(ctx, company, approach)
	s.metrics.RecordDiscovery(err != nil)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: discover at %s", company.Name)
	}

	existing, err := s.store.ListContacts(ctx, store.ContactFilter{CompanyID: companyID})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: list existing contacts for %s", companyID)
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[s.fold.String(c.Name)] = true
	}

	var created []model.Contact
	for _, cand := range candidates {
		key := s.fold.String(cand.Name)
		if known[key] {
			continue
		}
		known[key] = true

		contact := &model.Contact{
			CompanyID:    companyID,
			Name:         cand.Name,
			Role:         cand.Role,
			AIConfidence: cand.Confidence,
		}
		contact.Probability = score.Recompute(contact)

		saved, err := s.store.CreateContact(ctx, contact)
		if err != nil {
			zap.L().Warn("enrich: create discovered contact failed",
				zap.String("company", companyID),
				zap.String("name", cand.Name),
				zap.Error(err),
			)
			continue
		}
		created = append(created, *saved)
	}

	if enrichAfter {
		for i, c := range created {
			res, err := s.orch.Enrich(ctx, c.ID, Options{})
			if err != nil {
				zap.L().Warn("enrich: post-discovery enrichment failed",
					zap.String("contact", c.ID),
					zap.Error(err),
				)
				continue
			}
			created[i] = *res.Contact
		}
	}
	return created, nil
}

// AddFeedback records a rating for a contact and returns it with its
// user score and fused probability recomputed.
func (s *Service) AddFeedback(ctx context.Context, contactID string, ft model.FeedbackType) (*model.Contact, error) {
	if !ft.Valid() {
		return nil, eris.Errorf("enrich: invalid feedback type %q", ft)
	}
	return s.store.AddContactFeedback(ctx, contactID, ft)
}
