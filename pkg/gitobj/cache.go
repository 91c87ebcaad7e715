package gitobj

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gitsleuth/gitsleuth/pkg/alg/bloom"
)

// DefaultCacheSize is the default maximum memory held by the blob cache (256 MB).
const DefaultCacheSize = 256 * 1024 * 1024

const (
	bytesPerKB = 1024.0

	// averageBlobSizeEstimate sizes the Bloom pre-filter. Source files
	// average a few KB; under-estimating the size over-provisions the
	// filter, which keeps the false-positive rate low.
	averageBlobSizeEstimate = 4096

	// bloomFPRate short-circuits 99% of definite misses without taking
	// the cache lock.
	bloomFPRate = 0.01

	minBloomElements = 64

	// evictionSampleSize bounds the eviction scan to a constant number of
	// LRU-tail candidates.
	evictionSampleSize = 5
)

// CachedStore decorates a Store with an LRU blob cache and a commit memo.
//
// Blobs dominate read volume during an analysis run: a path modified in
// commit N re-reads the blob it introduced in an earlier commit, so recency
// tracks the walk closely. Commits are small metadata and are memoized
// without bound for the run. Trees are read once per commit and pass through.
type CachedStore struct {
	inner Store

	blobMu      sync.Mutex
	blobEntries map[Hash]*cacheEntry
	head        *cacheEntry // Most recently used.
	tail        *cacheEntry // Least recently used.
	filter      *bloom.Filter
	maxSize     int64
	currentSize int64

	commitMu sync.RWMutex
	commits  map[Hash]*Commit

	hits          atomic.Int64
	misses        atomic.Int64
	bloomFiltered atomic.Int64
}

// cacheEntry is a doubly-linked list node for LRU tracking.
type cacheEntry struct {
	blob        *Blob
	accessCount int64
	prev        *cacheEntry
	next        *cacheEntry
}

// evictionCost is AccessCount normalized by size in KB. Large, rarely
// accessed entries cost the least and are evicted first.
func (e *cacheEntry) evictionCost() float64 {
	sizeKB := float64(len(e.blob.Data)) / bytesPerKB
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// NewCachedStore wraps inner with a blob cache bounded to maxSize bytes.
// A maxSize of zero or less uses DefaultCacheSize.
func NewCachedStore(inner Store, maxSize int64) *CachedStore {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}

	expected := max(uint(maxSize/averageBlobSizeEstimate), minBloomElements)

	// Error is structurally impossible: expected > 0 and bloomFPRate is in (0, 1).
	filter, err := bloom.NewWithEstimates(expected, bloomFPRate)
	if err != nil {
		panic("gitobj: bloom filter initialization failed: " + err.Error())
	}

	return &CachedStore{
		inner:       inner,
		blobEntries: make(map[Hash]*cacheEntry),
		filter:      filter,
		maxSize:     maxSize,
		commits:     make(map[Hash]*Commit),
	}
}

// ResolveRef delegates to the wrapped store.
func (s *CachedStore) ResolveRef(ctx context.Context, name string) (Hash, error) {
	return s.inner.ResolveRef(ctx, name)
}

// ReadCommit returns the memoized commit or reads through and memoizes it.
func (s *CachedStore) ReadCommit(ctx context.Context, id Hash) (*Commit, error) {
	s.commitMu.RLock()
	commit, ok := s.commits[id]
	s.commitMu.RUnlock()

	if ok {
		return commit, nil
	}

	commit, err := s.inner.ReadCommit(ctx, id)
	if err != nil {
		return nil, err
	}

	s.commitMu.Lock()
	s.commits[id] = commit
	s.commitMu.Unlock()

	return commit, nil
}

// ReadTree delegates to the wrapped store.
func (s *CachedStore) ReadTree(ctx context.Context, id Hash) (*Tree, error) {
	return s.inner.ReadTree(ctx, id)
}

// ReadBlob returns the cached blob or reads through, caching the result.
// The Bloom pre-filter skips lock acquisition for definite misses.
func (s *CachedStore) ReadBlob(ctx context.Context, id Hash) (*Blob, error) {
	if blob := s.lookupBlob(id); blob != nil {
		return blob, nil
	}

	blob, err := s.inner.ReadBlob(ctx, id)
	if err != nil {
		return nil, err
	}

	s.storeBlob(blob)

	return blob, nil
}

// Close closes the wrapped store when it holds external resources.
func (s *CachedStore) Close() {
	if closer, ok := s.inner.(Closer); ok {
		closer.Close()
	}
}

// Stats returns cache performance counters.
func (s *CachedStore) Stats() CacheStats {
	s.blobMu.Lock()
	entries := len(s.blobEntries)
	current := s.currentSize
	s.blobMu.Unlock()

	return CacheStats{
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		BloomFiltered: s.bloomFiltered.Load(),
		Entries:       entries,
		CurrentSize:   current,
		MaxSize:       s.maxSize,
		BloomFill:     s.filter.FillRatio(),
	}
}

// CacheStats holds blob cache performance counters.
type CacheStats struct {
	Hits          int64
	Misses        int64
	BloomFiltered int64 // Lookups short-circuited by the Bloom pre-filter.
	Entries       int
	CurrentSize   int64
	MaxSize       int64
	BloomFill     float64
}

// HitRate returns the cache hit rate in [0, 1].
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

func (s *CachedStore) lookupBlob(id Hash) *Blob {
	if !s.filter.Test(id[:]) {
		s.bloomFiltered.Add(1)
		s.misses.Add(1)

		return nil
	}

	s.blobMu.Lock()
	defer s.blobMu.Unlock()

	entry, ok := s.blobEntries[id]
	if !ok {
		s.misses.Add(1)

		return nil
	}

	s.hits.Add(1)

	entry.accessCount++
	s.moveToFront(entry)

	return entry.blob
}

func (s *CachedStore) storeBlob(blob *Blob) {
	size := int64(len(blob.Data))
	if size > s.maxSize {
		return
	}

	s.blobMu.Lock()
	defer s.blobMu.Unlock()

	if entry, ok := s.blobEntries[blob.ID]; ok {
		entry.accessCount++
		s.moveToFront(entry)

		return
	}

	for s.currentSize+size > s.maxSize && s.tail != nil {
		s.evictLowestCost()
	}

	if s.currentSize+size > s.maxSize {
		return
	}

	entry := &cacheEntry{blob: blob, accessCount: 1}
	s.blobEntries[blob.ID] = entry
	s.currentSize += size
	s.addToFront(entry)
	s.filter.Add(blob.ID[:])
}

func (s *CachedStore) moveToFront(entry *cacheEntry) {
	if entry == s.head {
		return
	}

	s.removeFromList(entry)
	s.addToFront(entry)
}

func (s *CachedStore) addToFront(entry *cacheEntry) {
	entry.prev = nil
	entry.next = s.head

	if s.head != nil {
		s.head.prev = entry
	}

	s.head = entry

	if s.tail == nil {
		s.tail = entry
	}
}

func (s *CachedStore) removeFromList(entry *cacheEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		s.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		s.tail = entry.prev
	}
}

// evictLowestCost removes the cheapest entry among a bounded sample taken
// from the LRU tail.
func (s *CachedStore) evictLowestCost() {
	if s.tail == nil {
		return
	}

	victim := s.tail
	lowest := victim.evictionCost()
	candidate := s.tail.prev

	for i := 1; i < evictionSampleSize && candidate != nil; i++ {
		if cost := candidate.evictionCost(); cost < lowest {
			lowest = cost
			victim = candidate
		}

		candidate = candidate.prev
	}

	s.removeFromList(victim)
	delete(s.blobEntries, victim.blob.ID)
	s.currentSize -= int64(len(victim.blob.Data))
}
