package expander

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conceptrag/conceptrag/internal/resilience"
)

func TestExpandPreservesOriginalTerms(t *testing.T) {
	e := New(nil, nil)
	result := e.Expand(context.Background(), "custom unique specific")
	require.ElementsMatch(t, []string{"custom", "unique", "specific"}, result.OriginalTerms)
}

func TestExpandAddsDomainSynonyms(t *testing.T) {
	e := New(nil, nil)
	result := e.Expand(context.Background(), "book summary")
	require.Contains(t, result.Expansions, "text")
	require.Contains(t, result.Expansions, "overview")
}

func TestExpandHandlesEmptyQuery(t *testing.T) {
	e := New(nil, nil)
	result := e.Expand(context.Background(), "   ")
	require.Empty(t, result.OriginalTerms)
	require.Empty(t, result.Expansions)
}

func TestExpandDeduplicatesAgainstOriginalTerms(t *testing.T) {
	e := New(nil, nil)
	result := e.Expand(context.Background(), "strategy tactic")
	// "tactic" is both an original term and a synonym of "strategy"; it
	// must not also appear in Expansions.
	require.NotContains(t, result.Expansions, "tactic")
}

func TestExpandRespectsMaxExpansions(t *testing.T) {
	source := NewStaticSource(map[string][]string{
		"x": {"a", "b", "c", "d", "e", "f"},
	})
	e := New(source, nil, WithMaxExpansions(2))
	result := e.Expand(context.Background(), "x")
	require.LessOrEqual(t, len(result.Expansions), 2)
}

type failingSource struct{}

func (failingSource) Relatives(_ context.Context, _ string) ([]string, []string, []string, error) {
	return nil, nil, nil, errors.New("lexical source unavailable")
}

func TestExpandDegradesToOriginalTermsOnSourceFailure(t *testing.T) {
	e := New(failingSource{}, nil)
	result := e.Expand(context.Background(), "book summary")
	require.Equal(t, []string{"book", "summary"}, result.OriginalTerms)
	require.Empty(t, result.Expansions)
	require.True(t, result.Degraded)
}

func TestExpandNotDegradedOnSuccess(t *testing.T) {
	e := New(nil, nil)
	result := e.Expand(context.Background(), "book")
	require.False(t, result.Degraded)
}

func TestExpandReportsDegradedWhenEnvelopeCircuitIsOpen(t *testing.T) {
	breaker := &resilience.BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
		ResetWindow:      time.Minute,
	}
	env := resilience.NewEnvelope("lexical-test", resilience.EnvelopeConfig{Breaker: breaker}, nil)
	e := New(failingSource{}, nil, WithEnvelope(env))

	// First call trips the breaker; second call is refused outright while
	// open. Both degrade, but neither fails the query.
	_ = e.Expand(context.Background(), "book")
	result := e.Expand(context.Background(), "book")
	require.True(t, result.Degraded)
	require.Equal(t, []string{"book"}, result.OriginalTerms)
}

func TestResultAllDeduplicatesAndUnions(t *testing.T) {
	r := Result{OriginalTerms: []string{"Book", "summary"}, Expansions: []string{"text", "book"}}
	all := r.All()
	require.Equal(t, []string{"Book", "summary", "text"}, all)
}

func TestStaticSourceReturnsEmptyForUnknownTerm(t *testing.T) {
	s := NewStaticSource(nil)
	syn, broader, narrower, err := s.Relatives(context.Background(), "xyzzynotaword")
	require.NoError(t, err)
	require.Empty(t, syn)
	require.Empty(t, broader)
	require.Empty(t, narrower)
}

func TestNewStaticSourceMergesExtraWithoutMutatingBuiltins(t *testing.T) {
	s := NewStaticSource(map[string][]string{"book": {"codex"}})
	syn, _, _, err := s.Relatives(context.Background(), "book")
	require.NoError(t, err)
	require.Contains(t, syn, "codex")
	require.Contains(t, syn, "text")

	builtin := NewStaticSource(nil)
	syn2, _, _, _ := builtin.Relatives(context.Background(), "book")
	require.NotContains(t, syn2, "codex")
}
