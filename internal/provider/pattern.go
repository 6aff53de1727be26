package provider

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// PatternExample is a confirmed name/email pair at a domain, used to infer
// the company's address pattern.
type PatternExample struct {
	Name  string
	Email string
}

// PatternSource supplies confirmed emails at a domain. Backed by the
// contact store in production.
type PatternSource interface {
	Examples(ctx context.Context, domain string) ([]PatternExample, error)
}

// patternForm derives a candidate local part from a first/last name.
type patternForm struct {
	name  string
	apply func(first, last string) string
}

var patternForms = []patternForm{
	{"first.last", func(f, l string) string { return f + "." + l }},
	{"firstlast", func(f, l string) string { return f + l }},
	{"flast", func(f, l string) string { return f[:1] + l }},
	{"f.last", func(f, l string) string { return f[:1] + "." + l }},
	{"first_last", func(f, l string) string { return f + "_" + l }},
	{"first", func(f, l string) string { return f }},
	{"last.first", func(f, l string) string { return l + "." + f }},
}

const (
	patternBaseConfidence  = 40
	patternPerExampleBoost = 15
	patternMaxConfidence   = 75
)

// PatternProvider is the free, local tier: it infers the company's email
// pattern from confirmed addresses at the same domain and applies it to
// the target contact. With no confirmed exemplars it reports KindNotFound.
type PatternProvider struct {
	source PatternSource
}

// NewPatternProvider creates the pattern heuristic provider.
func NewPatternProvider(source PatternSource) *PatternProvider {
	return &PatternProvider{source: source}
}

func (p *PatternProvider) Name() string           { return "pattern" }
func (p *PatternProvider) Tag() model.SearchTag   { return model.SearchTagPattern }
func (p *PatternProvider) CostPerLookup() float64 { return 0 }

func (p *PatternProvider) Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	if req.Domain == "" {
		return nil, NewError(p.Name(), KindNotFound, eris.New("no domain to match against"))
	}
	first, last := splitName(req.ContactName)
	if first == "" {
		return nil, NewError(p.Name(), KindParse, eris.Errorf("unparseable contact name %q", req.ContactName))
	}

	examples, err := p.source.Examples(ctx, req.Domain)
	if err != nil {
		return nil, NewError(p.Name(), KindTransient, eris.Wrap(err, "pattern: load examples"))
	}
	if len(examples) == 0 {
		return nil, NewError(p.Name(), KindNotFound, eris.Errorf("no confirmed emails at %s", req.Domain))
	}

	form, votes := inferForm(examples, req.Domain)
	if form == nil {
		return nil, NewError(p.Name(), KindNotFound, eris.Errorf("no recognizable pattern at %s", req.Domain))
	}

	local := applyForm(*form, first, last)
	if local == "" {
		return nil, NewError(p.Name(), KindNotFound, eris.Errorf("pattern %s needs a last name", form.name))
	}

	confidence := patternBaseConfidence + patternPerExampleBoost*votes
	if confidence > patternMaxConfidence {
		confidence = patternMaxConfidence
	}

	zap.L().Debug("pattern match",
		zap.String("domain", req.Domain),
		zap.String("form", form.name),
		zap.Int("votes", votes),
	)

	return &LookupResult{
		Email:      local + "@" + req.Domain,
		Confidence: confidence,
	}, nil
}

// inferForm votes each known form against the exemplars and returns the
// winner with its vote count. Nil when no exemplar matches any form.
func inferForm(examples []PatternExample, domain string) (*patternForm, int) {
	votes := make(map[string]int)
	for _, ex := range examples {
		local, exDomain, ok := strings.Cut(strings.ToLower(ex.Email), "@")
		if !ok || exDomain != domain {
			continue
		}
		first, last := splitName(ex.Name)
		if first == "" {
			continue
		}
		for _, form := range patternForms {
			if applyForm(form, first, last) == local {
				votes[form.name]++
				break
			}
		}
	}

	var best *patternForm
	bestVotes := 0
	for i := range patternForms {
		if v := votes[patternForms[i].name]; v > bestVotes {
			best = &patternForms[i]
			bestVotes = v
		}
	}
	return best, bestVotes
}

func applyForm(form patternForm, first, last string) string {
	first = sanitizeToken(first)
	last = sanitizeToken(last)
	if first == "" {
		return ""
	}
	if last == "" && form.name != "first" {
		return ""
	}
	if last == "" {
		return form.apply(first, last)
	}
	return form.apply(first, last)
}

// sanitizeToken lowercases a name token and drops characters that never
// appear in email local parts.
func sanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
