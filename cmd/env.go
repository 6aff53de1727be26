package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/finder"
	"github.com/sells-group/prospect-cli/internal/monitoring"
	"github.com/sells-group/prospect-cli/internal/provider"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/aeroleads"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/apollo"
	"github.com/sells-group/prospect-cli/pkg/hunter"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

// env bundles the wired subsystems a command needs.
type env struct {
	Store   store.Store
	Service *enrich.Service
	Metrics *monitoring.Collector
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// openStore connects to the configured backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	var st store.Store
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MinConns: int32(cfg.Store.MinConns),
			MaxConns: int32(cfg.Store.MaxConns),
		})
		if err != nil {
			return nil, err
		}
		st = pg
	case "sqlite":
		sq, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = sq
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// buildRegistry registers every provider with an API key, plus the free
// pattern provider fed by confirmed same-domain emails.
func buildRegistry(st store.Store) *provider.Registry {
	registry := provider.NewRegistry()

	registry.Register(provider.NewPatternProvider(store.ExemplarSource{Store: st}))

	if cfg.Hunter.Key != "" && !cfg.Hunter.Disabled {
		client := hunter.NewClient(cfg.Hunter.Key,
			hunter.WithBaseURL(cfg.Hunter.BaseURL),
			hunter.WithRateLimit(cfg.Hunter.RateRPS),
		)
		registry.Register(provider.NewHunterProvider(client, cfg.Hunter.CostUSD))
	}
	if cfg.AeroLeads.Key != "" && !cfg.AeroLeads.Disabled {
		client := aeroleads.NewClient(cfg.AeroLeads.Key,
			aeroleads.WithBaseURL(cfg.AeroLeads.BaseURL),
			aeroleads.WithRateLimit(cfg.AeroLeads.RateRPS),
		)
		registry.Register(provider.NewAeroleadsProvider(client, cfg.AeroLeads.CostUSD))
	}
	if cfg.Apollo.Key != "" && !cfg.Apollo.Disabled {
		client := apollo.NewClient(cfg.Apollo.Key,
			apollo.WithBaseURL(cfg.Apollo.BaseURL),
			apollo.WithRateLimit(cfg.Apollo.RateRPS),
		)
		registry.Register(provider.NewApolloProvider(client, cfg.Apollo.CostUSD))
	}

	return registry
}

// buildFinder wires the LLM discovery chain: Perplexity search plus a
// Claude extractor when an Anthropic key is present. Returns nil when
// discovery is not configured.
func buildFinder() *finder.Finder {
	if cfg.Perplexity.Key == "" {
		return nil
	}

	search := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)

	var extract finder.Extractor
	if cfg.Anthropic.Key != "" {
		extract = finder.NewClaudeExtractor(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.HaikuModel)
	}
	return finder.New(search, extract,
		finder.WithCosts(cost.NewCalculator(cost.DefaultRates())),
		finder.WithCacheTTL(time.Duration(cfg.Enrichment.CacheTTLHours)*time.Hour),
	)
}

// initEnv wires the full enrichment service.
func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	enrichCfg := enrich.DefaultConfig()
	if cfg.Enrichment.ConfigPath != "" {
		enrichCfg, err = enrich.LoadConfig(cfg.Enrichment.ConfigPath)
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
	}

	metrics := monitoring.NewCollector()
	orch := enrich.NewOrchestrator(enrichCfg, buildRegistry(st), st).WithMetrics(metrics)
	svc := enrich.NewService(st, orch, buildFinder(), cfg.Batch.MaxConcurrentContacts).WithMetrics(metrics)

	return &env{Store: st, Service: svc, Metrics: metrics}, nil
}
