// Package reasoning implements the recursive reasoning engine: structural
// component extraction, base reasoning against the concept graph, bounded
// recursive refinement, and content-keyed memoization.
package reasoning

import "strings"

// Components are the structural pieces extracted from a query.
type Components struct {
	Entities    []string `json:"entities"`
	Relations   []string `json:"relations"`
	Quantifiers []string `json:"quantifiers"`
	Modalities  []string `json:"modalities"`
	Actions     []string `json:"actions"`
}

// ComponentExtractor turns raw query text into structural components. The
// default is a lexical heuristic; a real NLP extractor can be swapped in
// without touching the certainty or emergence math.
type ComponentExtractor interface {
	Extract(query string) Components
}

var (
	pronouns = map[string]bool{
		"I": true, "you": true, "he": true, "she": true,
		"it": true, "we": true, "they": true,
	}
	relationWords = map[string]bool{
		"is": true, "has": true, "can": true, "does": true,
		"will": true, "should": true, "must": true,
	}
	quantifierWords = map[string]bool{
		"all": true, "every": true, "some": true, "no": true, "none": true,
	}
	modalityWords = map[string]bool{
		"possible": true, "necessary": true, "impossible": true,
	}
)

// LexicalExtractor classifies tokens by surface form: capitalized tokens and
// pronouns are entities, a fixed copula/modal vocabulary gives relations,
// and "-ing"/"-ed" suffixes mark actions. Each token lands in at most one
// bucket, tested in that order.
type LexicalExtractor struct{}

// Extract implements ComponentExtractor.
func (LexicalExtractor) Extract(query string) Components {
	var c Components
	for _, word := range strings.Fields(query) {
		lower := strings.ToLower(word)
		switch {
		case isEntityToken(word):
			c.Entities = append(c.Entities, word)
		case relationWords[lower]:
			c.Relations = append(c.Relations, lower)
		case quantifierWords[lower]:
			c.Quantifiers = append(c.Quantifiers, lower)
		case modalityWords[lower]:
			c.Modalities = append(c.Modalities, lower)
		case strings.HasSuffix(lower, "ing") || strings.HasSuffix(lower, "ed"):
			c.Actions = append(c.Actions, lower)
		}
	}
	return c
}

func isEntityToken(word string) bool {
	if pronouns[word] {
		return true
	}
	if len(word) <= 2 {
		return false
	}
	first := rune(word[0])
	return first >= 'A' && first <= 'Z'
}

// tokens flattens the component set for lexical scans.
func (c Components) tokens() string {
	parts := make([]string, 0,
		len(c.Entities)+len(c.Relations)+len(c.Quantifiers)+len(c.Modalities)+len(c.Actions))
	parts = append(parts, c.Entities...)
	parts = append(parts, c.Relations...)
	parts = append(parts, c.Quantifiers...)
	parts = append(parts, c.Modalities...)
	parts = append(parts, c.Actions...)
	return strings.ToLower(strings.Join(parts, " "))
}
