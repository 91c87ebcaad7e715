package blame

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// packedFile is the hibernated form of one fileState. The owner vector is
// delta-encoded and LZ4 block compressed; blame vectors are long runs of a
// single ordinal, so the deltas are almost all zero and pack tightly.
type packedFile struct {
	blob  gitobj.Hash
	lines int
	data  []byte
	// raw marks data as uncompressed little-endian words for the rare
	// vector LZ4 cannot shrink.
	raw bool
}

type packedState struct {
	files map[string]*packedFile
}

// park compresses the state's vectors and releases the live map. Shared
// fileState values are left untouched; packing works on copies.
func (s *branchState) park() error {
	if s.packed != nil || s.files == nil {
		return nil
	}
	packed := &packedState{files: make(map[string]*packedFile, len(s.files))}
	for path, fs := range s.files {
		pf, err := packOwners(fs)
		if err != nil {
			return fmt.Errorf("blame: hibernate %s: %w", path, err)
		}
		packed.files[path] = pf
	}
	s.packed = packed
	s.files = nil
	return nil
}

// wake restores a hibernated state. Waking a live state is a no-op.
func (s *branchState) wake() error {
	if s.packed == nil {
		return nil
	}
	files := make(map[string]*fileState, len(s.packed.files))
	for path, pf := range s.packed.files {
		owners, err := unpackOwners(pf)
		if err != nil {
			return fmt.Errorf("blame: wake %s: %w", path, err)
		}
		files[path] = &fileState{blob: pf.blob, owners: owners}
	}
	s.files = files
	s.packed = nil
	return nil
}

func packOwners(fs *fileState) (*packedFile, error) {
	words := make([]uint32, len(fs.owners))
	copy(words, fs.owners)
	deltaEncode(words)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, words); err != nil {
		return nil, err
	}
	raw := buf.Bytes()

	pf := &packedFile{blob: fs.blob, lines: len(fs.owners)}
	dst := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(raw) {
		pf.data = append([]byte(nil), raw...)
		pf.raw = true
		return pf, nil
	}
	pf.data = dst[:n]
	return pf, nil
}

func unpackOwners(pf *packedFile) ([]uint32, error) {
	size := pf.lines * 4
	raw := pf.data
	if !pf.raw {
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(pf.data, raw)
		if err != nil {
			return nil, err
		}
		raw = raw[:n]
	}
	if len(raw) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(raw))
	}
	words := make([]uint32, pf.lines)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, words); err != nil {
		return nil, err
	}
	deltaDecode(words)
	return words, nil
}

// deltaEncode rewrites each word as its difference from the predecessor,
// wrapping on underflow. deltaDecode reverses it with a prefix sum.
func deltaEncode(words []uint32) {
	for i := len(words) - 1; i > 0; i-- {
		words[i] -= words[i-1]
	}
}

func deltaDecode(words []uint32) {
	for i := 1; i < len(words); i++ {
		words[i] += words[i-1]
	}
}

// maybeHibernate packs retained states once enough are awake. The state
// just produced stays live since its first child is usually next.
func (e *Engine) maybeHibernate(current gitobj.Hash) error {
	if e.opts.HibernationThreshold <= 0 {
		return nil
	}
	awake := 0
	for id, st := range e.states {
		if id != current && st.packed == nil {
			awake++
		}
	}
	if awake < e.opts.HibernationThreshold {
		return nil
	}
	for id, st := range e.states {
		if id == current || st.packed != nil {
			continue
		}
		if err := st.park(); err != nil {
			return err
		}
	}
	return nil
}
