package enrich

import (
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
)

// AttemptState is the outcome of one enrichment walk for a contact.
type AttemptState string

const (
	// StatePending means no provider has been consulted yet.
	StatePending AttemptState = "pending"
	// StateFound means a provider returned an accepted hit.
	StateFound AttemptState = "found"
	// StateExhausted means every eligible provider was consulted without
	// an accepted hit.
	StateExhausted AttemptState = "exhausted"
)

// SkipReason explains why a provider was not invoked.
type SkipReason string

const (
	SkipAlreadySearched SkipReason = "already_searched"
	SkipBudgetExceeded  SkipReason = "budget_exceeded"
	SkipNotRegistered   SkipReason = "not_registered"
)

// Attempt records one provider step in the walk, hit or miss.
type Attempt struct {
	Provider   string          `json:"provider"`
	Tag        model.SearchTag `json:"tag"`
	Hit        bool            `json:"hit"`
	Email      string          `json:"email,omitempty"`
	Confidence int             `json:"confidence,omitempty"`
	Skipped    bool            `json:"skipped,omitempty"`
	SkipReason SkipReason      `json:"skip_reason,omitempty"`
	Error      string          `json:"error,omitempty"`
	CostUSD    float64         `json:"cost_usd,omitempty"`
}

// Result is the full outcome of enriching one contact.
type Result struct {
	Contact  *model.Contact         `json:"contact"`
	State    AttemptState           `json:"state"`
	Attempts []Attempt              `json:"attempts"`
	Found    *provider.LookupResult `json:"found,omitempty"`
	SpentUSD float64                `json:"spent_usd"`
}
