// internal/pipeline/retrieve/keywords.go
package retrieve

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords covers common English filler plus domain-generic words that
// would match nearly every evidence chunk.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "before": {},
	"being": {}, "between": {}, "could": {}, "does": {}, "from": {},
	"have": {}, "into": {}, "more": {}, "most": {}, "much": {},
	"other": {}, "over": {}, "please": {}, "should": {}, "some": {},
	"sustainable": {}, "sustainability": {}, "tell": {}, "than": {},
	"that": {}, "their": {}, "them": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "under": {}, "very": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "will": {}, "with": {},
	"would": {}, "your": {}, "product": {}, "products": {},
	"environmental": {}, "impact": {}, "values": {}, "value": {},
}

// extractDomainTerms pulls up to max candidate search terms out of a
// question, longest first so the most specific material or product words
// win. The result is deterministic for a given question.
func extractDomainTerms(question string, max int) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	seen := make(map[string]int) // term -> first position
	var terms []string
	for i, f := range fields {
		f = strings.Trim(f, "-")
		if len(f) < 4 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = i
		terms = append(terms, f)
	}

	sort.SliceStable(terms, func(a, b int) bool {
		if len(terms[a]) != len(terms[b]) {
			return len(terms[a]) > len(terms[b])
		}
		return seen[terms[a]] < seen[terms[b]]
	})

	if len(terms) > max {
		terms = terms[:max]
	}
	return terms
}
