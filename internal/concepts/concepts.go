// Package concepts implements the concept index builder of spec.md §4.7:
// normalization, cross-document deduplication, co-occurrence (adjacency)
// linking, lexical relatedness linking, and weight recomputation.
package concepts

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/conceptrag/conceptrag/internal/ids"
	"github.com/conceptrag/conceptrag/internal/store"
)

// DefaultAdjacencyCap is the default bound on adjacent_ids, per spec.md
// §4.7 step 3 ("N default 64").
const DefaultAdjacencyCap = 64

// DefaultRelatedCap bounds related_ids per concept, kept modest so the
// lexical-relatedness pass stays a ranking signal rather than a near-total
// graph over the concept set.
const DefaultRelatedCap = 16

// MinSharedWordLength is the spec.md §4.7 step 4 default for lexical
// relatedness: concepts sharing a word at least this long are related.
const MinSharedWordLength = 5

// stopwords excludes common short connective words from lexical-relatedness
// word matching, per spec.md's "fixed small list" (§4.7 step 4). The source
// does not pin an exact list (§9 Open Questions); this one covers English
// function words long enough to otherwise pass MinSharedWordLength.
var stopwords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "against": true,
	"before": true, "being": true, "below": true, "between": true, "during": true,
	"further": true, "having": true, "into": true, "other": true, "should": true,
	"their": true, "there": true, "these": true, "those": true, "through": true,
	"under": true, "until": true, "where": true, "which": true, "while": true,
	"would": true,
}

// ExtractedConcept is one (name, per-document summary) pair produced by the
// seeder's LLM extraction stage for a single document (spec.md §4.7 inputs).
type ExtractedConcept struct {
	Name    string
	Summary string
}

// DocumentContribution is one document's contribution to the concept index:
// its extracted concepts and categories, plus the chunk IDs that mention
// each concept (used to populate chunk_ids and, later, concept_density).
type DocumentContribution struct {
	CatalogID    uint32
	CatalogTitle string
	Concepts     []ExtractedConcept
	// ChunkIDsByConcept maps a normalized concept name to the chunk IDs in
	// this document whose text mentions it.
	ChunkIDsByConcept map[string][]uint32
}

// Builder accumulates concept contributions across documents and produces
// the final linked, weighted concept set.
type Builder struct {
	byID map[uint32]*store.Concept

	// coOccurrence counts how many documents contributed each adjacency
	// pair, keyed with the smaller id first so (a,b) and (b,a) collapse.
	coOccurrence map[[2]uint32]int

	adjacencyCap int
	relatedCap   int
}

// NewBuilder creates a Builder with default link caps.
func NewBuilder() *Builder {
	return &Builder{
		byID:         make(map[uint32]*store.Concept),
		coOccurrence: make(map[[2]uint32]int),
		adjacencyCap: DefaultAdjacencyCap,
		relatedCap:   DefaultRelatedCap,
	}
}

// Normalize lowercases, collapses internal whitespace, and strips leading
// and trailing punctuation from a raw concept name, per spec.md §4.7 step 1.
func Normalize(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	fields := strings.Fields(lower)
	collapsed := strings.Join(fields, " ")
	return strings.TrimFunc(collapsed, func(r rune) bool {
		return unicode.IsPunct(r) && !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// AddDocument merges one document's extracted concepts into the builder,
// implementing spec.md §4.7 steps 1–2 (normalize, deduplicate, merge).
func (b *Builder) AddDocument(doc DocumentContribution) {
	for _, ec := range doc.Concepts {
		name := Normalize(ec.Name)
		if name == "" {
			continue
		}
		id := ids.ConceptID(name)

		c, exists := b.byID[id]
		if !exists {
			c = &store.Concept{ID: id, Name: name}
			b.byID[id] = c
		}
		if c.Summary == "" && ec.Summary != "" {
			c.Summary = ec.Summary
		}
		c.CatalogIDs = appendUnique(c.CatalogIDs, doc.CatalogID)
		c.ChunkIDs = appendUniqueAll(c.ChunkIDs, doc.ChunkIDsByConcept[name])
	}

	// Adjacency: every pair of this document's concepts co-occurs.
	names := make([]string, 0, len(doc.Concepts))
	seen := map[string]bool{}
	for _, ec := range doc.Concepts {
		n := Normalize(ec.Name)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			b.recordCoOccurrence(names[i], names[j])
		}
	}
}

func (b *Builder) recordCoOccurrence(nameA, nameB string) {
	idA, idB := ids.ConceptID(nameA), ids.ConceptID(nameB)
	ca, ok := b.byID[idA]
	if !ok {
		return
	}
	cb, ok := b.byID[idB]
	if !ok {
		return
	}
	ca.AdjacentIDs = appendUnique(ca.AdjacentIDs, idB)
	cb.AdjacentIDs = appendUnique(cb.AdjacentIDs, idA)

	key := [2]uint32{idA, idB}
	if idA > idB {
		key = [2]uint32{idB, idA}
	}
	b.coOccurrence[key]++
}

// LinkLexicalRelations computes the related_ids link, spec.md §4.7 step 4:
// two concepts are related iff they share a word of length >= 5 after
// casefolding, excluding stopwords. Each concept keeps up to relatedCap
// links, ranked by shared-word count then by smaller id.
func (b *Builder) LinkLexicalRelations() {
	concepts := b.sortedConcepts()
	wordSets := make([]map[string]bool, len(concepts))
	for i, c := range concepts {
		wordSets[i] = significantWords(c.Name)
	}

	type candidate struct {
		id     uint32
		shared int
	}
	related := make(map[uint32][]candidate, len(concepts))

	for i := 0; i < len(concepts); i++ {
		for j := i + 1; j < len(concepts); j++ {
			shared := countSharedWords(wordSets[i], wordSets[j])
			if shared == 0 {
				continue
			}
			related[concepts[i].ID] = append(related[concepts[i].ID], candidate{id: concepts[j].ID, shared: shared})
			related[concepts[j].ID] = append(related[concepts[j].ID], candidate{id: concepts[i].ID, shared: shared})
		}
	}

	for _, c := range concepts {
		cands := related[c.ID]
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].shared != cands[j].shared {
				return cands[i].shared > cands[j].shared
			}
			return cands[i].id < cands[j].id
		})
		if len(cands) > b.relatedCap {
			cands = cands[:b.relatedCap]
		}
		ids := make([]uint32, len(cands))
		for i, cand := range cands {
			ids[i] = cand.id
		}
		c.RelatedIDs = ids
	}
}

// TrimAdjacency caps every concept's adjacent_ids to the top-N by
// co-occurrence count, per spec.md §4.7 step 3.
func (b *Builder) TrimAdjacency() {
	for _, c := range b.byID {
		if len(c.AdjacentIDs) <= b.adjacencyCap {
			continue
		}
		ranked := append([]uint32(nil), c.AdjacentIDs...)
		sort.Slice(ranked, func(i, j int) bool {
			ci := b.coOccurrenceCount(c.ID, ranked[i])
			cj := b.coOccurrenceCount(c.ID, ranked[j])
			if ci != cj {
				return ci > cj
			}
			return ranked[i] < ranked[j]
		})
		c.AdjacentIDs = ranked[:b.adjacencyCap]
	}
}

func (b *Builder) coOccurrenceCount(a, c uint32) int {
	key := [2]uint32{a, c}
	if a > c {
		key = [2]uint32{c, a}
	}
	return b.coOccurrence[key]
}

// RecomputeWeights applies spec.md §4.7 step 5:
// weight = clamp(log(1+chunk_count) / log(1+max_chunk_count), 0, 1).
func (b *Builder) RecomputeWeights() {
	maxChunks := 0
	for _, c := range b.byID {
		if len(c.ChunkIDs) > maxChunks {
			maxChunks = len(c.ChunkIDs)
		}
	}
	if maxChunks == 0 {
		return
	}
	denominator := math.Log(1 + float64(maxChunks))
	for _, c := range b.byID {
		if denominator == 0 {
			c.Weight = 0
			continue
		}
		w := math.Log(1+float64(len(c.ChunkIDs))) / denominator
		c.Weight = clamp01(w)
	}
}

// Concepts returns the final built concept set, sorted by id for
// deterministic output.
func (b *Builder) Concepts() []store.Concept {
	sorted := b.sortedConcepts()
	out := make([]store.Concept, len(sorted))
	for i, c := range sorted {
		out[i] = *c
	}
	return out
}

func (b *Builder) sortedConcepts() []*store.Concept {
	out := make([]*store.Concept, 0, len(b.byID))
	for _, c := range b.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// significantWords tokenizes name on non-alphanumeric boundaries and keeps
// words of length >= MinSharedWordLength that are not stopwords.
func significantWords(name string) map[string]bool {
	words := map[string]bool{}
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		w := current.String()
		current.Reset()
		if len(w) >= MinSharedWordLength && !stopwords[w] {
			words[w] = true
		}
	}
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

func countSharedWords(a, b map[string]bool) int {
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func appendUnique(slice []uint32, v uint32) []uint32 {
	for _, x := range slice {
		if x == v {
			return slice
		}
	}
	return append(slice, v)
}

func appendUniqueAll(slice []uint32, vs []uint32) []uint32 {
	for _, v := range vs {
		slice = appendUnique(slice, v)
	}
	return slice
}
