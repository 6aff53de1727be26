package finder

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

const (
	defaultExtractModel = "claude-haiku-4-5-20251001"
	extractMaxTokens    = 1024

	extractSystemPrompt = `You extract people from research notes. Given text that
discusses employees of a company, respond ONLY with a JSON array of
{"name": "Full Name", "role": "Exact Title", "confidence": 0-100}.
Confidence reflects how clearly the text supports that the person
currently holds the role. Respond with [] when no person is named.`
)

// ClaudeExtractor re-extracts structured candidates from a search answer
// with a small Claude model. Used when the search model ignores the JSON
// format and a line heuristic is not enough.
type ClaudeExtractor struct {
	client anthropic.Client
	model  string
}

// NewClaudeExtractor creates an extractor backed by the Anthropic API.
// An empty model selects the default Haiku model.
func NewClaudeExtractor(client anthropic.Client, model string) *ClaudeExtractor {
	if model == "" {
		model = defaultExtractModel
	}
	return &ClaudeExtractor{client: client, model: model}
}

func (e *ClaudeExtractor) Extract(ctx context.Context, answer string) ([]Candidate, error) {
	// Cheap path first: most answers already follow the requested format.
	if c, err := parseJSONCandidates(answer); err == nil {
		return c, nil
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: extractMaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(extractSystemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: answer}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "finder: claude extract")
	}
	resp.Usage.LogCost(e.model, "finder_extract")

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return parseJSONCandidates(text)
}
