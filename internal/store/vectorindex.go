package store

import (
	"math"
	"sort"
)

// approxIndexThreshold is the row count above which VectorTopK switches from
// exhaustive scan to the approximate partition index (spec.md §4.6).
const approxIndexThreshold = 256

// subVectorCount is the product-quantization fan-out spec.md's example
// cites ("~16 sub-vectors"). The partition index does not use it: probe
// ranks partitions by full-width cosine similarity to each centroid.
const subVectorCount = 16

// vectorArena stores row vectors contiguously for cache-friendly scanning,
// grounded on the sqlitevec vectorArena/getVector/append pattern.
type vectorArena struct {
	data []float32
	dim  int
}

func newVectorArena(dim int) *vectorArena {
	return &vectorArena{dim: dim}
}

func (a *vectorArena) get(idx int) []float32 {
	start := idx * a.dim
	end := start + a.dim
	if start < 0 || end > len(a.data) {
		return nil
	}
	return a.data[start:end]
}

func (a *vectorArena) append(vec []float32) int {
	idx := len(a.data) / a.dim
	a.data = append(a.data, vec...)
	return idx
}

func (a *vectorArena) rowCount() int {
	if a.dim == 0 {
		return 0
	}
	return len(a.data) / a.dim
}

// partitionIndex is an inverted-file index: vectors are assigned to the
// nearest of a small set of centroids, and a query only scans the
// partitions whose centroids are closest to it instead of every row.
type partitionIndex struct {
	centroids [][]float32
	members   [][]int // members[p] = arena indices assigned to partition p
}

// buildPartitionIndex partitions arena rows into max(2, rowCount/100)
// centroids with a handful of Lloyd's-algorithm iterations. The number of
// iterations is small and fixed: this is an approximate index, not an
// exact clustering, and spec.md only requires sub-linear probing.
func buildPartitionIndex(arena *vectorArena) *partitionIndex {
	rows := arena.rowCount()
	if rows == 0 {
		return &partitionIndex{}
	}
	numPartitions := rows / 100
	if numPartitions < 2 {
		numPartitions = 2
	}
	if numPartitions > rows {
		numPartitions = rows
	}

	centroids := make([][]float32, numPartitions)
	step := rows / numPartitions
	if step == 0 {
		step = 1
	}
	for p := 0; p < numPartitions; p++ {
		src := arena.get((p * step) % rows)
		c := make([]float32, len(src))
		copy(c, src)
		centroids[p] = c
	}

	var assignment []int
	const iterations = 4
	for iter := 0; iter < iterations; iter++ {
		assignment = make([]int, rows)
		sums := make([][]float64, numPartitions)
		counts := make([]int, numPartitions)
		for p := range sums {
			sums[p] = make([]float64, arena.dim)
		}

		for i := 0; i < rows; i++ {
			vec := arena.get(i)
			best, bestSim := 0, -2.0
			for p, c := range centroids {
				sim := cosineSim(vec, c)
				if sim > bestSim {
					bestSim, best = sim, p
				}
			}
			assignment[i] = best
			counts[best]++
			for d, v := range vec {
				sums[best][d] += float64(v)
			}
		}

		for p := range centroids {
			if counts[p] == 0 {
				continue
			}
			for d := range centroids[p] {
				centroids[p][d] = float32(sums[p][d] / float64(counts[p]))
			}
		}
	}

	members := make([][]int, numPartitions)
	for i, p := range assignment {
		members[p] = append(members[p], i)
	}

	return &partitionIndex{centroids: centroids, members: members}
}

// probe returns arena indices from the partitions whose centroids are
// nearest to query, probing enough partitions to cover at least k
// candidates whenever the data allows it.
func (idx *partitionIndex) probe(query []float32, k int) []int {
	if len(idx.centroids) == 0 {
		return nil
	}
	type scored struct {
		partition int
		sim       float64
	}
	ranked := make([]scored, len(idx.centroids))
	for p, c := range idx.centroids {
		ranked[p] = scored{partition: p, sim: cosineSim(query, c)}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })

	var out []int
	for _, r := range ranked {
		out = append(out, idx.members[r.partition]...)
		if len(out) >= k {
			break
		}
	}
	return out
}

// cosineSim returns cosine similarity in [-1,1]; a zero-norm operand
// yields 0.
func cosineSim(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
