package enrich

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/monitoring"
	"github.com/sells-group/prospect-cli/internal/provider"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// memStore is an in-memory ContactStore for orchestrator tests.
type memStore struct {
	contacts  map[string]*model.Contact
	companies map[string]*model.Company
	updates   int
}

func newMemStore(contact *model.Contact, company *model.Company) *memStore {
	return &memStore{
		contacts:  map[string]*model.Contact{contact.ID: contact},
		companies: map[string]*model.Company{company.ID: company},
	}
}

func (s *memStore) GetContact(_ context.Context, id string) (*model.Contact, error) {
	c, ok := s.contacts[id]
	if !ok {
		return nil, eris.Errorf("contact %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) UpdateContact(_ context.Context, id string, patch model.ContactPatch) (*model.Contact, error) {
	c, ok := s.contacts[id]
	if !ok {
		return nil, eris.Errorf("contact %s not found", id)
	}
	patch.Apply(c, time.Now().UTC())
	s.updates++
	cp := *c
	return &cp, nil
}

func (s *memStore) GetCompany(_ context.Context, id string) (*model.Company, error) {
	c, ok := s.companies[id]
	if !ok {
		return nil, eris.Errorf("company %s not found", id)
	}
	cp := *c
	return &cp, nil
}

// stubProvider returns a canned result or error and counts invocations.
type stubProvider struct {
	name   string
	tag    model.SearchTag
	cost   float64
	result *provider.LookupResult
	err    error
	calls  int
}

func (p *stubProvider) Name() string              { return p.name }
func (p *stubProvider) Tag() model.SearchTag      { return p.tag }
func (p *stubProvider) CostPerLookup() float64    { return p.cost }
func (p *stubProvider) Lookup(context.Context, provider.LookupRequest) (*provider.LookupResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func notFound(name string) error {
	return provider.NewError(name, provider.KindNotFound, nil)
}

func fastOrchestrator(cfg *Config, reg *provider.Registry, store ContactStore) *Orchestrator {
	o := NewOrchestrator(cfg, reg, store)
	return o.WithRetryConfig(resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		JitterFraction: 0,
	})
}

func testContact() *model.Contact {
	return &model.Contact{ID: "ct-1", CompanyID: "co-1", Name: "Alex Eu"}
}

func testCompany() *model.Company {
	return &model.Company{ID: "co-1", Name: "Teamshares", Website: "https://www.teamshares.com/about"}
}

func TestEnrich_PatternMissThenHunterHit(t *testing.T) {
	store := newMemStore(testContact(), testCompany())
	reg := provider.NewRegistry()

	pattern := &stubProvider{name: "pattern", tag: model.SearchTagPattern, err: notFound("pattern")}
	hunter := &stubProvider{
		name: "hunter", tag: model.SearchTagHunter, cost: 0.034,
		result: &provider.LookupResult{Email: "aeu@teamshares.com", Confidence: 85, Title: "VP Sales"},
	}
	apollo := &stubProvider{name: "apollo", tag: model.SearchTagApollo, cost: 0.10,
		result: &provider.LookupResult{Email: "never@called.com", Confidence: 99}}
	reg.Register(pattern)
	reg.Register(hunter)
	reg.Register(apollo)

	o := fastOrchestrator(DefaultConfig(), reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, StateFound, res.State)
	require.NotNil(t, res.Found)
	assert.Equal(t, "aeu@teamshares.com", res.Found.Email)

	c := res.Contact
	assert.Equal(t, "aeu@teamshares.com", c.Email)
	assert.Empty(t, c.AlternateEmails)
	assert.Equal(t, 85, c.AIConfidence)
	assert.Equal(t, "VP Sales", c.Role)
	assert.ElementsMatch(t, []model.SearchTag{model.SearchTagPattern, model.SearchTagHunter}, c.CompletedSearches)
	assert.NotNil(t, c.LastValidatedAt)
	assert.NotNil(t, c.LastEnrichedAt)

	// Walk stopped at the hit.
	assert.Equal(t, 0, apollo.calls)
	assert.InDelta(t, 0.034, res.SpentUSD, 1e-9)
}

func TestEnrich_ReEnrichAddsAlternate(t *testing.T) {
	contact := testContact()
	contact.Email = "aeu@teamshares.com"
	contact.CompletedSearches = []model.SearchTag{model.SearchTagPattern, model.SearchTagHunter}
	store := newMemStore(contact, testCompany())

	reg := provider.NewRegistry()
	reg.Register(&stubProvider{name: "pattern", tag: model.SearchTagPattern, err: notFound("pattern")})
	reg.Register(&stubProvider{name: "hunter", tag: model.SearchTagHunter, cost: 0.034, err: notFound("hunter")})
	reg.Register(&stubProvider{name: "aeroleads", tag: model.SearchTagAeroleads, cost: 0.05, err: notFound("aeroleads")})
	reg.Register(&stubProvider{
		name: "apollo", tag: model.SearchTagApollo, cost: 0.10,
		result: &provider.LookupResult{Email: "alex.eu@teamshares.com", Confidence: 90},
	})

	o := fastOrchestrator(DefaultConfig(), reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	c := res.Contact
	// Primary is never overwritten; the new address lands in alternates.
	assert.Equal(t, "aeu@teamshares.com", c.Email)
	assert.Equal(t, []string{"alex.eu@teamshares.com"}, c.AlternateEmails)
	assert.True(t, c.HasSearch(model.SearchTagApollo))
}

func TestEnrich_SkipsCompletedSearches(t *testing.T) {
	contact := testContact()
	contact.CompletedSearches = []model.SearchTag{model.SearchTagPattern, model.SearchTagHunter}
	store := newMemStore(contact, testCompany())

	pattern := &stubProvider{name: "pattern", tag: model.SearchTagPattern, err: notFound("pattern")}
	hunter := &stubProvider{name: "hunter", tag: model.SearchTagHunter, cost: 0.034, err: notFound("hunter")}
	aero := &stubProvider{name: "aeroleads", tag: model.SearchTagAeroleads, cost: 0.05, err: notFound("aeroleads")}
	apollo := &stubProvider{name: "apollo", tag: model.SearchTagApollo, cost: 0.10, err: notFound("apollo")}

	reg := provider.NewRegistry()
	for _, p := range []*stubProvider{pattern, hunter, aero, apollo} {
		reg.Register(p)
	}

	o := fastOrchestrator(DefaultConfig(), reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 0, pattern.calls)
	assert.Equal(t, 0, hunter.calls)
	assert.Equal(t, 1, aero.calls)
	assert.Equal(t, 1, apollo.calls)

	skipped := 0
	for _, a := range res.Attempts {
		if a.Skipped {
			skipped++
			assert.Equal(t, SkipAlreadySearched, a.SkipReason)
		}
	}
	assert.Equal(t, 2, skipped)
}

func TestEnrich_ForceRefreshReRunsProviders(t *testing.T) {
	contact := testContact()
	contact.Email = "aeu@teamshares.com"
	contact.CompletedSearches = []model.SearchTag{model.SearchTagHunter}
	store := newMemStore(contact, testCompany())

	hunter := &stubProvider{
		name: "hunter", tag: model.SearchTagHunter, cost: 0.034,
		result: &provider.LookupResult{Email: "aeu@teamshares.com", Confidence: 91},
	}
	reg := provider.NewRegistry()
	reg.Register(hunter)

	cfg := &Config{MaxCostUSD: 1, Providers: []ProviderConfig{{Name: "hunter", Tier: 1}}}
	o := fastOrchestrator(cfg, reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{ForceRefresh: true})
	require.NoError(t, err)

	assert.Equal(t, 1, hunter.calls)
	assert.Equal(t, StateFound, res.State)
	// Same email re-confirmed: no alternate appended, confidence raised.
	assert.Empty(t, res.Contact.AlternateEmails)
	assert.Equal(t, 91, res.Contact.AIConfidence)
	// Tag list stays deduplicated.
	assert.Equal(t, []model.SearchTag{model.SearchTagHunter}, res.Contact.CompletedSearches)
}

func TestEnrich_BudgetSkipsExpensiveProviders(t *testing.T) {
	store := newMemStore(testContact(), testCompany())

	hunter := &stubProvider{name: "hunter", tag: model.SearchTagHunter, cost: 0.034, err: notFound("hunter")}
	apollo := &stubProvider{name: "apollo", tag: model.SearchTagApollo, cost: 0.10,
		result: &provider.LookupResult{Email: "x@y.com", Confidence: 90}}

	reg := provider.NewRegistry()
	reg.Register(hunter)
	reg.Register(apollo)

	cfg := &Config{
		MaxCostUSD: 0.05,
		Providers: []ProviderConfig{
			{Name: "hunter", Tier: 1},
			{Name: "apollo", Tier: 2},
		},
	}
	o := fastOrchestrator(cfg, reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 0, apollo.calls)

	var apolloAttempt *Attempt
	for i := range res.Attempts {
		if res.Attempts[i].Provider == "apollo" {
			apolloAttempt = &res.Attempts[i]
		}
	}
	require.NotNil(t, apolloAttempt)
	assert.True(t, apolloAttempt.Skipped)
	assert.Equal(t, SkipBudgetExceeded, apolloAttempt.SkipReason)
}

func TestEnrich_ErrorDoesNotConsumeProvider(t *testing.T) {
	store := newMemStore(testContact(), testCompany())

	hunter := &stubProvider{
		name: "hunter", tag: model.SearchTagHunter, cost: 0.034,
		err: provider.NewError("hunter", provider.KindUnauthorized, eris.New("bad key")),
	}
	apollo := &stubProvider{
		name: "apollo", tag: model.SearchTagApollo, cost: 0.10,
		result: &provider.LookupResult{Email: "alex@teamshares.com", Confidence: 88},
	}
	reg := provider.NewRegistry()
	reg.Register(hunter)
	reg.Register(apollo)

	cfg := &Config{
		MaxCostUSD: 1,
		Providers: []ProviderConfig{
			{Name: "hunter", Tier: 1},
			{Name: "apollo", Tier: 2},
		},
	}
	o := fastOrchestrator(cfg, reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, StateFound, res.State)
	c := res.Contact
	// The errored provider's tag is not recorded, so a later run retries it.
	assert.False(t, c.HasSearch(model.SearchTagHunter))
	assert.True(t, c.HasSearch(model.SearchTagApollo))
	// The failed lookup cost nothing.
	assert.InDelta(t, 0.10, res.SpentUSD, 1e-9)

	var hunterAttempt *Attempt
	for i := range res.Attempts {
		if res.Attempts[i].Provider == "hunter" {
			hunterAttempt = &res.Attempts[i]
		}
	}
	require.NotNil(t, hunterAttempt)
	assert.False(t, hunterAttempt.Hit)
	assert.NotEmpty(t, hunterAttempt.Error)
}

func TestEnrich_TransientErrorRetriedThenSucceeds(t *testing.T) {
	store := newMemStore(testContact(), testCompany())

	calls := 0
	flaky := &funcProvider{
		name: "hunter", tag: model.SearchTagHunter, cost: 0.034,
		fn: func() (*provider.LookupResult, error) {
			calls++
			if calls == 1 {
				return nil, provider.NewError("hunter", provider.KindTransient, eris.New("connection reset"))
			}
			return &provider.LookupResult{Email: "aeu@teamshares.com", Confidence: 85}, nil
		},
	}
	reg := provider.NewRegistry()
	reg.Register(flaky)

	cfg := &Config{MaxCostUSD: 1, Providers: []ProviderConfig{{Name: "hunter", Tier: 1}}}
	o := fastOrchestrator(cfg, reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, StateFound, res.State)
}

func TestEnrich_UnregisteredProviderSkipped(t *testing.T) {
	store := newMemStore(testContact(), testCompany())
	reg := provider.NewRegistry()

	cfg := &Config{MaxCostUSD: 1, Providers: []ProviderConfig{{Name: "clearbit", Tier: 1}}}
	o := fastOrchestrator(cfg, reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	require.Len(t, res.Attempts, 1)
	assert.True(t, res.Attempts[0].Skipped)
	assert.Equal(t, SkipNotRegistered, res.Attempts[0].SkipReason)
	// Nothing was invoked, so the contact is untouched.
	assert.Nil(t, res.Contact.LastEnrichedAt)
}

func TestEnrich_WeakHitKeepsWalking(t *testing.T) {
	store := newMemStore(testContact(), testCompany())

	weak := &stubProvider{
		name: "aeroleads", tag: model.SearchTagAeroleads, cost: 0.05,
		result: &provider.LookupResult{Email: "a.eu@teamshares.com", Confidence: 40},
	}
	strong := &stubProvider{
		name: "apollo", tag: model.SearchTagApollo, cost: 0.10,
		result: &provider.LookupResult{Email: "alex.eu@teamshares.com", Confidence: 92},
	}
	reg := provider.NewRegistry()
	reg.Register(weak)
	reg.Register(strong)

	cfg := &Config{
		MinHitConfidence: 60,
		MaxCostUSD:       1,
		Providers: []ProviderConfig{
			{Name: "aeroleads", Tier: 1},
			{Name: "apollo", Tier: 2},
		},
	}
	o := fastOrchestrator(cfg, reg, store)
	res, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, StateFound, res.State)
	c := res.Contact
	// The weak hit set the primary; the strong one became an alternate.
	assert.Equal(t, "a.eu@teamshares.com", c.Email)
	assert.Equal(t, []string{"alex.eu@teamshares.com"}, c.AlternateEmails)
	assert.Equal(t, 92, c.AIConfidence)
	assert.InDelta(t, 0.15, res.SpentUSD, 1e-9)
}

// funcProvider delegates Lookup to a closure.
type funcProvider struct {
	name string
	tag  model.SearchTag
	cost float64
	fn   func() (*provider.LookupResult, error)
}

func (p *funcProvider) Name() string           { return p.name }
func (p *funcProvider) Tag() model.SearchTag   { return p.tag }
func (p *funcProvider) CostPerLookup() float64 { return p.cost }
func (p *funcProvider) Lookup(context.Context, provider.LookupRequest) (*provider.LookupResult, error) {
	return p.fn()
}

func TestLoadConfig(t *testing.T) {
	path := t.TempDir() + "/enrichment.yaml"
	data := []byte(`enrichment:
  min_hit_confidence: 50
  max_cost_usd: 0.25
  providers:
    - name: pattern
      tier: 0
    - name: apollo
      tier: 2
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MinHitConfidence)
	assert.Equal(t, 0.25, cfg.MaxCostUSD)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "apollo", cfg.Providers[1].Name)
}

func TestLoadConfig_DefaultsBackfilled(t *testing.T) {
	path := t.TempDir() + "/enrichment.yaml"
	require.NoError(t, os.WriteFile(path, []byte("enrichment: {}\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxCostUSD, cfg.MaxCostUSD)
	assert.Equal(t, DefaultConfig().Providers, cfg.Providers)
}

func TestEnrich_RecordsMetrics(t *testing.T) {
	store := newMemStore(testContact(), testCompany())
	reg := provider.NewRegistry()

	pattern := &stubProvider{name: "pattern", tag: model.SearchTagPattern, err: notFound("pattern")}
	hunter := &stubProvider{
		name: "hunter", tag: model.SearchTagHunter, cost: 0.034,
		result: &provider.LookupResult{Email: "aeu@teamshares.com", Confidence: 85},
	}
	reg.Register(pattern)
	reg.Register(hunter)

	metrics := monitoring.NewCollector()
	o := fastOrchestrator(DefaultConfig(), reg, store).WithMetrics(metrics)

	_, err := o.Enrich(context.Background(), "ct-1", Options{})
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, 1, snap.Providers["pattern"].Misses)
	assert.Equal(t, 1, snap.Providers["hunter"].Hits)
	assert.InDelta(t, 0.034, snap.TotalSpendUSD, 1e-9)
}
