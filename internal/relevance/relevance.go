// Package relevance holds the fixed vocabulary used to decide whether a
// discovered item belongs in the catalog at all.
package relevance

import "strings"

// Keywords is the relevance vocabulary. An item is relevant when any keyword
// appears in its name, description, readme, or manifest.
var Keywords = []string{
	"model context protocol",
	"mcp",
	"mcp server",
	"mcp-server",
	"anthropic",
	"claude",
	"claude desktop",
}

// Matches reports whether any keyword occurs in any of the given texts.
// Matching is case-insensitive; the short "mcp" keyword requires a word
// boundary so that names like "pmcpy" do not slip through.
func Matches(texts ...string) bool {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, kw := range Keywords {
			if len(kw) <= 3 {
				if containsWord(lower, kw) {
					return true
				}
				continue
			}
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
