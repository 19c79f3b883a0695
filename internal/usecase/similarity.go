package usecase

import (
	"strings"
	"unicode"

	"github.com/user/toolscout-service/internal/entity"
)

// Similarity weights. Content carries most of the signal; the URL term only
// fires on an exact match.
const (
	simWeightTitle   = 0.3
	simWeightContent = 0.6
	simWeightURL     = 0.1

	// contentPrefixRunes bounds the content comparison. Long pages mostly
	// differ in their tails; the opening text is what identifies a duplicate.
	contentPrefixRunes = 200
)

// tokenSet lowercases s and splits it into a set of alphanumeric tokens.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard is |a ∩ b| / |a ∪ b| over token sets; 0 for two empty sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func contentPrefix(s string) string {
	runes := []rune(s)
	if len(runes) > contentPrefixRunes {
		runes = runes[:contentPrefixRunes]
	}
	return string(runes)
}

// overallSimilarity scores two collected items: title 0.3, content prefix
// 0.6, exact URL match 0.1.
func overallSimilarity(a, b entity.CollectedInformation) float64 {
	sim := simWeightTitle * jaccard(tokenSet(a.Title), tokenSet(b.Title))
	sim += simWeightContent * jaccard(tokenSet(contentPrefix(a.Content)), tokenSet(contentPrefix(b.Content)))
	if a.URL != "" && a.URL == b.URL {
		sim += simWeightURL
	}
	return sim
}
