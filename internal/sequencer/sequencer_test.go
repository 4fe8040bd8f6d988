package sequencer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int64) *int64 { return &n }

func TestStaleResponseRejected(t *testing.T) {
	s := New()
	require.True(t, s.Accept(seq(5)))
	assert.False(t, s.Accept(seq(3)))
	assert.Equal(t, int64(5), s.Last())
}

func TestEqualSequenceAccepted(t *testing.T) {
	s := New()
	require.True(t, s.Accept(seq(2)))
	assert.True(t, s.Accept(seq(2)))
}

func TestMissingSequenceAlwaysAccepted(t *testing.T) {
	s := New()
	require.True(t, s.Accept(seq(10)))
	assert.True(t, s.Accept(nil))
	assert.Equal(t, int64(10), s.Last())
}

func TestZeroIsATrackedSequence(t *testing.T) {
	s := New()
	assert.Equal(t, int64(-1), s.Last())
	require.True(t, s.Accept(seq(0)))
	assert.Equal(t, int64(0), s.Last())
}

func TestAcceptedSubsequenceIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(30)
		values := make([]int64, n)
		var max int64 = -1
		for i := range values {
			values[i] = int64(rng.Intn(20))
			if values[i] > max {
				max = values[i]
			}
		}
		rng.Shuffle(n, func(i, j int) { values[i], values[j] = values[j], values[i] })

		s := New()
		var accepted []int64
		for _, v := range values {
			if s.Accept(seq(v)) {
				accepted = append(accepted, v)
			}
		}

		for i := 1; i < len(accepted); i++ {
			require.LessOrEqual(t, accepted[i-1], accepted[i], "trial %d: %v", trial, values)
		}
		require.Equal(t, max, s.Last(), "trial %d: %v", trial, values)
	}
}
