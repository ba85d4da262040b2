package search

import "strings"

// tokenize lowercases text and splits it on whitespace. No stemming and no
// punctuation stripping: code identifiers and filenames keep their exact
// shape, which the filename substring boosts depend on.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
