// Package expander implements the query expander of spec.md §4.9: given a
// query, return the original terms plus a bounded set of semantic
// relatives drawn from a lexical knowledge source.
package expander

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/conceptrag/conceptrag/internal/logging"
	"github.com/conceptrag/conceptrag/internal/resilience"
)

// DefaultMaxExpansions is the hard cap on expansion set size spec.md §4.9
// names: "Hard cap on expansion set size (default 10)".
const DefaultMaxExpansions = 10

// Result is the expander's output: the query's own terms plus the bounded
// set of relatives drawn from the lexical source.
type Result struct {
	OriginalTerms []string
	Expansions    []string
	// Degraded is set when at least one term's lexical source lookup
	// returned an error during this call (a source failure, or a refusal
	// by the resilience envelope such as an open circuit or exhausted
	// bulkhead), extending spec.md §4.9's "must not fail the query"
	// requirement with an observable signal.
	Degraded bool
}

// All returns the union of original terms and expansions, order-preserving
// and deduplicated, suitable for feeding into scoring.Score's
// expandedTerms parameter.
func (r Result) All() []string {
	seen := make(map[string]bool, len(r.OriginalTerms)+len(r.Expansions))
	out := make([]string, 0, len(r.OriginalTerms)+len(r.Expansions))
	for _, t := range r.OriginalTerms {
		lower := strings.ToLower(t)
		if !seen[lower] {
			seen[lower] = true
			out = append(out, t)
		}
	}
	for _, t := range r.Expansions {
		lower := strings.ToLower(t)
		if !seen[lower] {
			seen[lower] = true
			out = append(out, t)
		}
	}
	return out
}

// LexicalSource is a pluggable source of semantic relatives for a single
// term: synonyms, broader terms (hypernyms), and narrower terms
// (hyponyms). Implementations may call out to a dictionary file, a
// network service, or (the default) an in-process static map; any of
// them may fail, and failure must never fail the query (spec.md §4.9).
type LexicalSource interface {
	Relatives(ctx context.Context, term string) (synonyms, broader, narrower []string, err error)
}

// Expander expands search queries with domain synonyms and related
// concepts, degrading gracefully to the original terms whenever its
// lexical source errors.
type Expander struct {
	source    LexicalSource
	maxExpand int
	logger    *logging.Logger
	envelope  *resilience.Envelope
}

// Option configures an Expander.
type Option func(*Expander)

// WithMaxExpansions overrides DefaultMaxExpansions.
func WithMaxExpansions(n int) Option {
	return func(e *Expander) { e.maxExpand = n }
}

// WithEnvelope runs every lexical source call through env (timeout,
// circuit breaker, bulkhead, retry), per spec.md §4.3's resilient
// execution boundary applied to "the lexical knowledge source".
func WithEnvelope(env *resilience.Envelope) Option {
	return func(e *Expander) { e.envelope = env }
}

// New builds an Expander backed by source. A nil source is replaced by
// NewStaticSource(nil), i.e. the built-in domain synonym table.
func New(source LexicalSource, logger *logging.Logger, opts ...Option) *Expander {
	if source == nil {
		source = NewStaticSource(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Expander{source: source, maxExpand: DefaultMaxExpansions, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand implements the interface of spec.md §4.9: expand(text) ->
// {original_terms, expansions}. It never returns an error; a failing
// lexical source degrades to original-terms-only after logging a warning.
func (e *Expander) Expand(ctx context.Context, text string) Result {
	terms := dedupeTokens(tokenizeQuery(text))
	result := Result{OriginalTerms: terms}
	if len(terms) == 0 {
		return result
	}

	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		seen[strings.ToLower(t)] = true
	}

	var expansions []string
	for _, term := range terms {
		synonyms, broader, narrower, err := e.lookup(ctx, term)
		if err != nil {
			e.logger.Warn(ctx, "expander: lexical source failed, degrading to original terms",
				zap.String("term", term), zap.Error(err))
			result.Degraded = true
			continue
		}
		for _, candidates := range [][]string{synonyms, broader, narrower} {
			for _, c := range candidates {
				lower := strings.ToLower(c)
				if seen[lower] {
					continue
				}
				seen[lower] = true
				expansions = append(expansions, c)
				if len(expansions) >= e.maxExpand {
					result.Expansions = expansions
					return result
				}
			}
		}
	}
	result.Expansions = expansions
	return result
}

// lookup calls the lexical source, routing through the resilience
// envelope when one is configured so an open circuit or an exhausted
// bulkhead surfaces as an ordinary error Expand degrades on.
func (e *Expander) lookup(ctx context.Context, term string) (synonyms, broader, narrower []string, err error) {
	lower := strings.ToLower(term)
	if e.envelope == nil {
		return e.source.Relatives(ctx, lower)
	}
	err = e.envelope.Do(ctx, func(ctx context.Context) error {
		var doErr error
		synonyms, broader, narrower, doErr = e.source.Relatives(ctx, lower)
		if doErr != nil {
			return resilience.Transient(doErr)
		}
		return nil
	})
	return synonyms, broader, narrower, err
}

func tokenizeQuery(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}

func dedupeTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		lower := strings.ToLower(t)
		if !seen[lower] {
			seen[lower] = true
			out = append(out, t)
		}
	}
	return out
}
