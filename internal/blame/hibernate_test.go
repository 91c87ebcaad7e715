package blame

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

func ownersRun(ord uint32, n int) []uint32 {
	owners := make([]uint32, n)
	for i := range owners {
		owners[i] = ord
	}
	return owners
}

func TestParkWake_Roundtrip(t *testing.T) {
	t.Parallel()

	state := newBranchState()
	state.files["runs.go"] = &fileState{blob: gitobj.Hash{1}, owners: append(ownersRun(3, 500), ownersRun(9, 250)...)}
	state.files["empty.go"] = &fileState{blob: gitobj.Hash{2}, owners: []uint32{}}
	state.files["single.go"] = &fileState{blob: gitobj.Hash{3}, owners: []uint32{7}}

	want := make(map[string][]uint32, len(state.files))
	for path, fs := range state.files {
		want[path] = append([]uint32{}, fs.owners...)
	}

	require.NoError(t, state.park())
	assert.Nil(t, state.files)
	require.NotNil(t, state.packed)

	require.NoError(t, state.wake())
	assert.Nil(t, state.packed)
	require.Len(t, state.files, len(want))
	for path, owners := range want {
		require.Equal(t, owners, state.files[path].owners, "owners of %s", path)
	}
	assert.Equal(t, gitobj.Hash{1}, state.files["runs.go"].blob)
}

func TestParkWake_Idempotent(t *testing.T) {
	t.Parallel()

	state := newBranchState()
	state.files["f"] = &fileState{owners: ownersRun(1, 10)}

	require.NoError(t, state.park())
	require.NoError(t, state.park())
	require.NoError(t, state.wake())
	require.NoError(t, state.wake())
	require.Equal(t, ownersRun(1, 10), state.files["f"].owners)
}

func TestPark_DoesNotMutateSharedVectors(t *testing.T) {
	t.Parallel()

	shared := []uint32{5, 5, 5, 12, 12}
	state := newBranchState()
	state.files["f"] = &fileState{owners: shared}

	require.NoError(t, state.park())
	assert.Equal(t, []uint32{5, 5, 5, 12, 12}, shared)
}

func TestPackOwners_RunsCompress(t *testing.T) {
	t.Parallel()

	fs := &fileState{owners: ownersRun(42, 4096)}
	pf, err := packOwners(fs)
	require.NoError(t, err)
	assert.False(t, pf.raw)
	assert.Less(t, len(pf.data), 4096*4/10, "run-heavy vector should compress by an order of magnitude")

	owners, err := unpackOwners(pf)
	require.NoError(t, err)
	require.Equal(t, fs.owners, owners)
}

func TestPackOwners_IncompressibleFallsBackToRaw(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	owners := make([]uint32, 64)
	for i := range owners {
		owners[i] = rng.Uint32()
	}

	pf, err := packOwners(&fileState{owners: owners})
	require.NoError(t, err)
	assert.True(t, pf.raw)

	got, err := unpackOwners(pf)
	require.NoError(t, err)
	require.Equal(t, owners, got)
}
