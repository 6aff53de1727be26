package enrich

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config is the tiered-search configuration: provider order, hit
// acceptance, and spend limits.
type Config struct {
	// MinHitConfidence is the confidence below which a hit is merged but
	// the walk continues to the next provider. 0 accepts any hit.
	MinHitConfidence int `yaml:"min_hit_confidence"`

	// MaxCostUSD bounds paid-provider spend for one contact enrichment.
	MaxCostUSD float64 `yaml:"max_cost_usd"`

	// Providers lists providers in walk order: free/local tiers first,
	// then paid tiers in increasing cost order.
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig is one entry in the walk order.
type ProviderConfig struct {
	Name string `yaml:"name"`
	Tier int    `yaml:"tier"` // 0 = free/local, higher = costlier
}

// DefaultConfig returns the built-in walk order.
func DefaultConfig() *Config {
	return &Config{
		MinHitConfidence: 0,
		MaxCostUSD:       0.50,
		Providers: []ProviderConfig{
			{Name: "pattern", Tier: 0},
			{Name: "hunter", Tier: 1},
			{Name: "aeroleads", Tier: 1},
			{Name: "apollo", Tier: 2},
		},
	}
}

// LoadConfig reads a search-tier config from a YAML file. The file has a
// top-level "enrichment" key.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: read config %s", path)
	}

	var wrapper struct {
		Enrichment Config `yaml:"enrichment"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "enrich: parse config")
	}

	cfg := &wrapper.Enrichment
	if len(cfg.Providers) == 0 {
		cfg.Providers = DefaultConfig().Providers
	}
	if cfg.MaxCostUSD <= 0 {
		cfg.MaxCostUSD = DefaultConfig().MaxCostUSD
	}
	return cfg, nil
}
