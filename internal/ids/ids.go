// Package ids provides deterministic 32-bit identifiers for store entities
// and content-addressed cache keys.
//
// FNV-1a is the single source of truth for every entity id in conceptrag:
// there are no incrementing counters anywhere in the store. Two processes
// hashing the same canonical string always agree on the id without any
// coordination, which is what lets the seeder resume across runs and lets
// the concept index merge contributions from independent documents.
package ids

const (
	offsetBasis32 uint32 = 2166136261
	prime32       uint32 = 16777619
)

// Of hashes s with 32-bit FNV-1a and returns the result as an unsigned
// entity id. It is pure and deterministic: the same input always produces
// the same output, on any platform, in any process.
func Of(s string) uint32 {
	h := offsetBasis32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// OfBytes is Of for raw bytes, used for content-addressed cache keys where
// the input is not naturally a string (e.g. file contents).
func OfBytes(b []byte) uint32 {
	h := offsetBasis32
	for i := 0; i < len(b); i++ {
		h ^= uint32(b[i])
		h *= prime32
	}
	return h
}

// DocumentID derives a catalog entry id from its canonical source path.
func DocumentID(sourcePath string) uint32 {
	return Of(sourcePath)
}

// ChunkID derives a chunk id from the owning document's content hash and
// the chunk's position within that document.
func ChunkID(contentHash string, index int) uint32 {
	return Of(contentHash + "\x00" + itoa(index))
}

// ConceptID derives a concept id from its normalized (lowercased) name.
func ConceptID(normalizedName string) uint32 {
	return Of(normalizedName)
}

// CategoryID derives a category id from its normalized (lowercased) name.
func CategoryID(normalizedName string) uint32 {
	return Of(normalizedName)
}

// itoa avoids pulling in strconv just for this hot path; index values are
// always small and non-negative in practice (chunk position in a document).
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
