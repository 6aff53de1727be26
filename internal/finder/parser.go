package finder

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Candidate is one person extracted from a search answer.
type Candidate struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Confidence int    `json:"confidence"`
	Source     string `json:"source,omitempty"` // tier name
}

// Extractor turns a raw search answer into structured candidates.
type Extractor interface {
	Extract(ctx context.Context, answer string) ([]Candidate, error)
}

// JSONExtractor parses the JSON array the search prompt asks for, falling
// back to a line heuristic when the model wraps or ignores the format.
type JSONExtractor struct{}

func (JSONExtractor) Extract(_ context.Context, answer string) ([]Candidate, error) {
	if c, err := parseJSONCandidates(answer); err == nil {
		return c, nil
	}
	return parseLineCandidates(answer), nil
}

// jsonArrayRe finds the first JSON array in the answer, tolerating prose
// and markdown fences around it.
var jsonArrayRe = regexp.MustCompile(`(?s)\[\s*(\{.*?\}\s*(,\s*\{.*?\}\s*)*)?\]`)

func parseJSONCandidates(answer string) ([]Candidate, error) {
	raw := jsonArrayRe.FindString(answer)
	if raw == "" {
		return nil, eris.New("finder: no JSON array in answer")
	}
	var candidates []Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, eris.Wrap(err, "finder: parse candidates")
	}
	return candidates, nil
}

// lineRe matches listing formats like "1. Jane Doe - VP of Sales" or
// "- Jane Doe, CEO (confidence: 80)".
var (
	lineRe       = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s*([A-Z][\w.'-]+(?: [A-Z][\w.'-]+)+)\s*[-–,:]\s*([^(\n]+?)\s*(?:\(.*?\))?\s*$`)
	confidenceRe = regexp.MustCompile(`(?i)confidence[:\s]+(\d{1,3})`)
)

// lineDefaultConfidence is assigned when a listing line carries no
// explicit confidence figure.
const lineDefaultConfidence = 50

func parseLineCandidates(answer string) []Candidate {
	var candidates []Candidate
	for _, line := range strings.Split(answer, "\n") {
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		confidence := lineDefaultConfidence
		if cm := confidenceRe.FindStringSubmatch(line); cm != nil {
			if v, err := strconv.Atoi(cm[1]); err == nil {
				confidence = v
			}
		}
		candidates = append(candidates, Candidate{
			Name:       strings.TrimSpace(m[1]),
			Role:       strings.TrimSpace(m[2]),
			Confidence: confidence,
		})
	}
	return candidates
}
