package finder

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

const (
	// defaultMinConfidence drops candidates the search barely supports.
	defaultMinConfidence = 30
	// defaultMaxContacts caps how many candidates one discovery returns.
	defaultMaxContacts = 10
	// defaultCacheTTL keeps discovery answers for a day: org charts don't
	// move faster than that.
	defaultCacheTTL = 24 * time.Hour
)

// Finder runs the tiered decision-maker search for a company.
type Finder struct {
	search  perplexity.Client
	extract Extractor
	cache   *cache.TTL[[]Candidate]
	fold    cases.Caser
	costs   *cost.Calculator
}

// Option configures a Finder.
type Option func(*Finder)

// WithCosts attaches a pricing calculator so each discovery logs its
// search spend.
func WithCosts(calc *cost.Calculator) Option {
	return func(f *Finder) { f.costs = calc }
}

// WithCacheTTL overrides how long discovery answers are kept.
// Non-positive values keep the default.
func WithCacheTTL(ttl time.Duration) Option {
	return func(f *Finder) {
		if ttl > 0 {
			f.cache = cache.NewTTL[[]Candidate](ttl)
		}
	}
}

// New creates a Finder. extract may be nil, in which case the JSON/line
// parser is used without an LLM fallback.
func New(search perplexity.Client, extract Extractor, opts ...Option) *Finder {
	if extract == nil {
		extract = JSONExtractor{}
	}
	f := &Finder{
		search:  search,
		extract: extract,
		cache:   cache.NewTTL[[]Candidate](defaultCacheTTL),
		fold:    cases.Fold(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find discovers decision-makers at the company, walking role tiers from
// most to least senior. A failed tier is logged and skipped; the walk
// fails only when every tier fails.
func (f *Finder) Find(ctx context.Context, company *model.Company, approach *model.SearchApproach) ([]Candidate, error) {
	if company == nil || company.Name == "" {
		return nil, eris.New("finder: company name required")
	}

	cfg := model.ApproachConfig{}
	prompt := ""
	if approach != nil {
		cfg = approach.Config
		prompt = approach.Prompt
	}

	cacheKey := f.fold.String(company.Name) + "|" + company.Website
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached, nil
	}

	tiers := Tiers(cfg)
	var (
		all     []Candidate
		failed  int
		queries int
	)
	for _, tier := range tiers {
		answer, err := f.search.Search(ctx, buildPrompt(company, tier, prompt))
		queries++
		if err != nil {
			failed++
			zap.L().Warn("finder: tier search failed",
				zap.String("company", company.Name),
				zap.String("tier", tier.Name),
				zap.Error(err),
			)
			continue
		}

		candidates, err := f.extract.Extract(ctx, answer)
		if err != nil {
			failed++
			zap.L().Warn("finder: tier extraction failed",
				zap.String("company", company.Name),
				zap.String("tier", tier.Name),
				zap.Error(err),
			)
			continue
		}
		for i := range candidates {
			candidates[i].Source = tier.Name
		}
		all = append(all, candidates...)
	}

	if f.costs != nil {
		zap.L().Info("finder: discovery spend",
			zap.String("company", company.Name),
			zap.Int("queries", queries),
			zap.Float64("spend_usd", float64(queries)*f.costs.PerplexityQuery()),
		)
	}

	if failed == len(tiers) && len(tiers) > 0 {
		return nil, eris.Errorf("finder: all %d tiers failed for %s", len(tiers), company.Name)
	}

	result := f.filter(all, cfg)
	f.cache.Set(cacheKey, result)
	return result, nil
}

// filter dedupes candidates case-insensitively, drops placeholders and
// low-confidence entries, and caps the result size. The first occurrence
// wins a dedupe tie, so earlier (more senior) tiers take precedence.
func (f *Finder) filter(candidates []Candidate, cfg model.ApproachConfig) []Candidate {
	minConfidence := cfg.MinConfidence
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	maxContacts := cfg.MaxContacts
	if maxContacts <= 0 {
		maxContacts = defaultMaxContacts
	}

	seen := make(map[string]bool, len(candidates))
	var out []Candidate
	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if name == "" || isPlaceholderName(name) {
			continue
		}
		if c.Confidence < minConfidence {
			continue
		}
		key := f.fold.String(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		c.Name = name
		c.Role = strings.TrimSpace(c.Role)
		c.Confidence = model.ClampScore(c.Confidence)
		out = append(out, c)

		if len(out) >= maxContacts {
			break
		}
	}
	return out
}

// isPlaceholderName catches non-answers models produce instead of an
// empty list.
func isPlaceholderName(name string) bool {
	switch strings.ToLower(name) {
	case "unknown", "n/a", "none", "not available", "not found":
		return true
	}
	return false
}
