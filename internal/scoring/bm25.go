package scoring

import "math"

// BM25K1 and BM25B are the standard Okapi BM25 parameters spec.md §4.8
// pins: k1 = 1.2, b = 0.75.
const (
	BM25K1 = 1.2
	BM25B  = 0.75
)

// BM25Scores scores every document's tokens against queryTokens, computing
// inverse document frequency over the supplied candidate pool rather than
// the full corpus — spec.md §4.8 requires this so the operation stays
// incremental instead of depending on a corpus-wide index.
func BM25Scores(queryTokens []string, documents [][]string) []float64 {
	n := len(documents)
	scores := make([]float64, n)
	if n == 0 || len(queryTokens) == 0 {
		return scores
	}

	docLen := make([]int, n)
	var totalLen int
	termDocFreq := make(map[string]int)
	termFreqPerDoc := make([]map[string]int, n)

	for i, doc := range documents {
		docLen[i] = len(doc)
		totalLen += len(doc)
		freq := make(map[string]int, len(doc))
		for _, tok := range doc {
			freq[tok]++
		}
		termFreqPerDoc[i] = freq
		for tok := range freq {
			termDocFreq[tok]++
		}
	}
	avgDocLen := float64(totalLen) / float64(n)
	if avgDocLen == 0 {
		avgDocLen = 1
	}

	uniqueQueryTerms := dedupe(queryTokens)
	for i := 0; i < n; i++ {
		var score float64
		for _, term := range uniqueQueryTerms {
			tf := float64(termFreqPerDoc[i][term])
			if tf == 0 {
				continue
			}
			df := float64(termDocFreq[term])
			idf := math.Log(1 + (float64(n)-df+0.5)/(df+0.5))
			norm := 1 - BM25B + BM25B*float64(docLen[i])/avgDocLen
			score += idf * (tf * (BM25K1 + 1)) / (tf + BM25K1*norm)
		}
		scores[i] = score
	}
	return scores
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
