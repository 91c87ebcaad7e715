// Package bloom provides a space-efficient probabilistic set membership filter.
//
// A Bloom filter answers "definitely not in set" or "possibly in set" with a
// tunable false-positive rate, which makes it a cheap pre-filter in front of
// exact lookups that need lock acquisition or I/O.
//
// Bit positions are derived with the double-hashing technique of Kirsch and
// Mitzenmacher (2006): h(i) = h1 + i*h2 mod m, from a single FNV-128a digest.
package bloom

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"math/bits"
	"sync"
)

const bitsPerWord = 64

// ln2Squared is ln(2) squared, used in the optimal bit-array size formula.
const ln2Squared = math.Ln2 * math.Ln2

var (
	// ErrZeroN is returned when n (expected element count) is zero.
	ErrZeroN = errors.New("bloom: n must be positive")

	// ErrInvalidFP is returned when fp is not in the open interval (0, 1).
	ErrInvalidFP = errors.New("bloom: fp must be in the open interval (0, 1)")
)

// Filter is a thread-safe Bloom filter.
type Filter struct {
	mu    sync.RWMutex
	bits  []uint64
	m     uint // Total bits.
	k     uint // Number of hash functions.
	count uint // Approximate number of added elements.
}

// NewWithEstimates creates a Bloom filter sized for n expected elements at a
// false-positive rate of fp.
func NewWithEstimates(n uint, fp float64) (*Filter, error) {
	if n == 0 {
		return nil, ErrZeroN
	}

	if fp <= 0 || fp >= 1 {
		return nil, ErrInvalidFP
	}

	m := optimalM(n, fp)
	k := optimalK(m, n)
	words := (m + bitsPerWord - 1) / bitsPerWord

	return &Filter{
		bits: make([]uint64, words),
		m:    m,
		k:    k,
	}, nil
}

// Add inserts data into the filter.
func (f *Filter) Add(data []byte) {
	h1, h2 := hashKernel(data)

	f.mu.Lock()

	for i := range f.k {
		pos := (h1 + uint64(i)*h2) % uint64(f.m)
		f.bits[pos/bitsPerWord] |= 1 << (pos % bitsPerWord)
	}

	f.count++
	f.mu.Unlock()
}

// Test reports whether data is possibly in the filter. A false return
// guarantees the element was never added; true means it might have been
// (subject to the configured false-positive rate).
func (f *Filter) Test(data []byte) bool {
	h1, h2 := hashKernel(data)

	f.mu.RLock()
	defer f.mu.RUnlock()

	for i := range f.k {
		pos := (h1 + uint64(i)*h2) % uint64(f.m)
		if f.bits[pos/bitsPerWord]&(1<<(pos%bitsPerWord)) == 0 {
			return false
		}
	}

	return true
}

// EstimatedCount returns an approximation of the number of added elements.
func (f *Filter) EstimatedCount() uint {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.count
}

// FillRatio returns the fraction of set bits, in the range [0, 1].
func (f *Filter) FillRatio() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	total := uint(0)
	for _, word := range f.bits {
		total += uint(bits.OnesCount64(word))
	}

	return float64(total) / float64(f.m)
}

// Reset clears the filter without reallocating the bit array.
func (f *Filter) Reset() {
	f.mu.Lock()

	for i := range f.bits {
		f.bits[i] = 0
	}

	f.count = 0
	f.mu.Unlock()
}

// optimalM computes the optimal bit-array size for n elements at
// false-positive rate fp: m = ceil(-n * ln(fp) / ln(2)^2).
func optimalM(n uint, fp float64) uint {
	return uint(math.Ceil(-float64(n) * math.Log(fp) / ln2Squared))
}

// optimalK computes the optimal number of hash functions: k = round(m/n * ln(2)).
func optimalK(m, n uint) uint {
	k := uint(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		return 1
	}

	return k
}

// hashKernel computes two 64-bit hashes from data by splitting an FNV-128a
// digest. The second half is forced odd so the step through the bit array is
// coprime with any even m.
func hashKernel(data []byte) (h1, h2 uint64) {
	h := fnv.New128a()
	_, _ = h.Write(data)
	sum := h.Sum(nil)

	h1 = binary.BigEndian.Uint64(sum[:8])
	h2 = binary.BigEndian.Uint64(sum[8:]) | 1

	return h1, h2
}
