package scoring

import "unicode"

// Tokenize splits text into lowercase alphanumeric tokens on any
// non-alphanumeric boundary. It is deliberately simpler than a
// code-tokenizer (no camelCase/snake_case splitting): conceptrag scores
// natural-language chunks and titles, not identifiers.
func Tokenize(text string) []string {
	var tokens []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = current[:0]
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current = append(current, unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
