package expander

import "context"

// domainSynonyms maps natural-language terms a user might type to
// semantically related terms likely to appear in a personal document
// library: concept names, category labels, and common topic vocabulary.
// Unlike a code search tool's keyword-casing variants, this table targets
// prose retrieval, so every entry is a genuine synonym or near-synonym
// rather than a naming-convention spelling.
var domainSynonyms = map[string][]string{
	"book":       {"text", "volume", "work"},
	"article":    {"paper", "essay", "piece"},
	"paper":      {"article", "study", "report"},
	"chapter":    {"section", "part"},
	"summary":    {"overview", "synopsis", "abstract"},
	"concept":    {"idea", "notion", "topic"},
	"idea":       {"concept", "notion"},
	"topic":      {"subject", "theme", "concept"},
	"theme":      {"topic", "motif"},
	"category":   {"genre", "classification", "type"},
	"author":     {"writer", "creator"},
	"history":    {"background", "origin"},
	"strategy":   {"plan", "tactic", "approach"},
	"tactic":     {"strategy", "maneuver"},
	"pattern":    {"structure", "design", "template"},
	"design":     {"pattern", "architecture", "structure"},
	"method":     {"technique", "approach", "procedure"},
	"technique":  {"method", "approach"},
	"philosophy": {"doctrine", "ideology", "thought"},
	"economics":  {"finance", "commerce"},
	"war":        {"conflict", "battle", "combat"},
	"leadership": {"management", "command"},
	"psychology": {"behavior", "cognition", "mind"},
	"science":    {"research", "study"},
	"religion":   {"faith", "belief", "spirituality"},
	"politics":   {"governance", "policy"},
	"law":        {"legal", "legislation", "regulation"},
	"health":     {"wellness", "medicine"},
	"nutrition":  {"diet", "food"},
}

// StaticSource is the default LexicalSource: an in-process synonym table
// with no broader/narrower relation (hypernym/hyponym data requires an
// external taxonomy this module does not ship). It never errors.
type StaticSource struct {
	synonyms map[string][]string
}

// NewStaticSource builds a StaticSource from extra merged on top of the
// built-in domain table; extra entries for an existing term are appended,
// not replaced. A nil extra uses the built-in table unmodified.
func NewStaticSource(extra map[string][]string) *StaticSource {
	merged := make(map[string][]string, len(domainSynonyms)+len(extra))
	for k, v := range domainSynonyms {
		merged[k] = append([]string(nil), v...)
	}
	for k, v := range extra {
		merged[k] = append(merged[k], v...)
	}
	return &StaticSource{synonyms: merged}
}

// Relatives implements LexicalSource. StaticSource has no notion of
// broader/narrower terms, so those return values are always empty.
func (s *StaticSource) Relatives(_ context.Context, term string) (synonyms, broader, narrower []string, err error) {
	return s.synonyms[term], nil, nil, nil
}
