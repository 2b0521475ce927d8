package analyze

import (
	"sort"
	"strings"
	"unicode"

	"rulesmith/internal/rules"
)

// stopwords are tokens too generic to become rule keywords.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "our": true,
	"you": true, "will": true, "are": true, "that": true, "this": true,
	"your": true, "into": true, "from": true, "all": true, "day": true,
	"team": true, "work": true, "daily": true, "keep": true, "job": true,
	"role": true, "hiring": true, "seeking": true, "experience": true,
	"required": true, "preferred": true, "support": true, "system": true,
	"systems": true, "company": true, "manage": true, "handle": true,
}

// Tokenize lowercases text and splits on non-letter runs, dropping short
// tokens and stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) < 4 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ExtractKeywords mines cluster fragments for candidate keywords: tokens
// ranked by frequency (ties alphabetical) that the table does not already
// use as keywords anywhere. Deterministic for a given input.
func ExtractKeywords(fragments []string, table *rules.Table, max int) []string {
	known := table.AllKeywords()

	freq := make(map[string]int)
	for _, f := range fragments {
		seen := make(map[string]bool)
		for _, tok := range Tokenize(f) {
			if known[tok] || seen[tok] {
				continue
			}
			seen[tok] = true // count once per fragment
			freq[tok]++
		}
	}

	tokens := make([]string, 0, len(freq))
	for tok := range freq {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if freq[tokens[i]] != freq[tokens[j]] {
			return freq[tokens[i]] > freq[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})

	if len(tokens) > max {
		tokens = tokens[:max]
	}
	return tokens
}
