// Package finder discovers likely decision-makers at a company by running
// tiered web-grounded LLM queries and extracting structured candidates
// from the answers.
package finder

import (
	"fmt"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

// RoleTier is one query tier: a named band of seniority with the titles
// the search prompt asks about.
type RoleTier struct {
	Name   string
	Titles []string
}

// roleTiers is the walk order: highest-signal roles first.
var roleTiers = []RoleTier{
	{Name: "executive", Titles: []string{"CEO", "Founder", "Owner", "President"}},
	{Name: "revenue", Titles: []string{"Chief Revenue Officer", "VP of Sales", "Head of Business Development"}},
	{Name: "operations", Titles: []string{"COO", "VP of Operations", "General Manager"}},
	{Name: "finance", Titles: []string{"CFO", "Controller", "Head of Procurement"}},
}

// Tiers returns the tiers enabled by the approach config, or all tiers
// when the config does not restrict them.
func Tiers(cfg model.ApproachConfig) []RoleTier {
	if len(cfg.EnabledSearches) == 0 {
		return roleTiers
	}
	enabled := make(map[string]bool, len(cfg.EnabledSearches))
	for _, name := range cfg.EnabledSearches {
		enabled[strings.ToLower(name)] = true
	}
	var out []RoleTier
	for _, t := range roleTiers {
		if enabled[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// buildPrompt renders the search prompt for one tier. The approach prompt,
// when set, steers the query; company industry and services narrow it.
func buildPrompt(company *model.Company, tier RoleTier, approachPrompt string) string {
	var b strings.Builder

	if approachPrompt != "" {
		b.WriteString(approachPrompt)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Find the current %s at %s", strings.Join(tier.Titles, ", "), company.Name)
	if company.Website != "" {
		fmt.Fprintf(&b, " (%s)", company.Website)
	}
	if company.Industry != "" {
		fmt.Fprintf(&b, ", a company in the %s industry", company.Industry)
	}
	b.WriteString(".\n\n")
	b.WriteString("Answer ONLY with a JSON array. Each element: ")
	b.WriteString(`{"name": "Full Name", "role": "Exact Title", "confidence": 0-100}. `)
	b.WriteString("Use confidence to express how certain you are the person currently holds the role. ")
	b.WriteString("If you cannot identify anyone, answer with [].")

	return b.String()
}
