package bloom_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/pkg/alg/bloom"
)

const (
	testN          = uint(1000)
	testFP         = 0.01
	fpProbeCount   = 20_000
	fpMargin       = 1.5 // Allow 50 percent above the configured rate.
	concGoroutines = 32
	concOpsPerG    = 200
)

func TestNewWithEstimates_Errors(t *testing.T) {
	t.Parallel()

	_, err := bloom.NewWithEstimates(0, testFP)
	require.ErrorIs(t, err, bloom.ErrZeroN)

	_, err = bloom.NewWithEstimates(testN, 0)
	require.ErrorIs(t, err, bloom.ErrInvalidFP)

	_, err = bloom.NewWithEstimates(testN, 1)
	require.ErrorIs(t, err, bloom.ErrInvalidFP)
}

func TestAddTest_NoFalseNegatives(t *testing.T) {
	t.Parallel()

	f, err := bloom.NewWithEstimates(testN, testFP)
	require.NoError(t, err)

	for i := range int(testN) {
		f.Add(fmt.Appendf(nil, "element-%d", i))
	}

	for i := range int(testN) {
		assert.True(t, f.Test(fmt.Appendf(nil, "element-%d", i)))
	}

	assert.Equal(t, testN, f.EstimatedCount())
}

func TestFalsePositiveRate_WithinMargin(t *testing.T) {
	t.Parallel()

	f, err := bloom.NewWithEstimates(testN, testFP)
	require.NoError(t, err)

	for i := range int(testN) {
		f.Add(fmt.Appendf(nil, "member-%d", i))
	}

	falsePositives := 0

	for i := range fpProbeCount {
		if f.Test(fmt.Appendf(nil, "absent-%d", i)) {
			falsePositives++
		}
	}

	observed := float64(falsePositives) / float64(fpProbeCount)
	assert.Less(t, observed, testFP*fpMargin)
}

func TestReset_ClearsMembership(t *testing.T) {
	t.Parallel()

	f, err := bloom.NewWithEstimates(testN, testFP)
	require.NoError(t, err)

	f.Add([]byte("keep"))
	require.True(t, f.Test([]byte("keep")))

	f.Reset()

	assert.False(t, f.Test([]byte("keep")))
	assert.Equal(t, uint(0), f.EstimatedCount())
	assert.Zero(t, f.FillRatio())
}

func TestConcurrentAddAndTest(t *testing.T) {
	t.Parallel()

	f, err := bloom.NewWithEstimates(uint(concGoroutines*concOpsPerG), testFP)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for g := range concGoroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range concOpsPerG {
				key := fmt.Appendf(nil, "g%d-%d", g, i)
				f.Add(key)
				f.Test(key)
			}
		}()
	}

	wg.Wait()

	for g := range concGoroutines {
		for i := range concOpsPerG {
			require.True(t, f.Test(fmt.Appendf(nil, "g%d-%d", g, i)))
		}
	}
}
