package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gib(n int64) int64 { return n << 30 }

func TestAggregateSumsAcrossNodes(t *testing.T) {
	rows := []Row{
		{UserID: 1, NodeID: 1, LimitBytes: gib(10)},
		{UserID: 1, NodeID: 2, LimitBytes: gib(5)},
	}

	out := Aggregate([]int64{1}, rows, nil)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, int64(1), s.UserID)
	assert.Equal(t, LimitFixed, s.LimitKind)
	assert.Equal(t, gib(15), s.LimitBytes)
	assert.Equal(t, int64(0), s.UsedBytes)
	assert.Equal(t, gib(15), s.RemainingBytes)
	assert.False(t, s.Partial)
	assert.Empty(t, s.UnreachableNodes)
}

func TestAggregatePartialWhenNodeMissing(t *testing.T) {
	rows := []Row{
		{UserID: 1, NodeID: 1, LimitBytes: gib(10)},
	}

	// Node 2 was expected but contributed nothing.
	out := Aggregate([]int64{1}, rows, []int64{2})
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, gib(10), s.LimitBytes)
	assert.True(t, s.Partial)
	assert.Equal(t, []int64{2}, s.UnreachableNodes)
}

func TestAggregateCommutativeOverRowOrder(t *testing.T) {
	rows := []Row{
		{UserID: 1, NodeID: 1, LimitBytes: gib(10), UsedBytes: gib(2)},
		{UserID: 1, NodeID: 2, LimitBytes: gib(5), UsedBytes: gib(1)},
		{UserID: 2, NodeID: 1, LimitBytes: gib(20), UsedBytes: gib(3)},
		{UserID: 2, NodeID: 2, Unlimited: true},
	}
	users := []int64{1, 2}
	expected := []int64{3}

	want := Aggregate(users, rows, expected)

	perms := [][]int{
		{3, 2, 1, 0},
		{1, 0, 3, 2},
		{2, 3, 0, 1},
	}
	for _, perm := range perms {
		shuffled := make([]Row, len(rows))
		for i, j := range perm {
			shuffled[i] = rows[j]
		}
		assert.Equal(t, want, Aggregate(users, shuffled, expected))
	}
}

func TestAggregateIdempotent(t *testing.T) {
	rows := []Row{
		{UserID: 1, NodeID: 1, LimitBytes: gib(10), UsedBytes: gib(4)},
	}
	users := []int64{1}
	expected := []int64{2}

	first := Aggregate(users, rows, expected)
	second := Aggregate(users, rows, expected)
	assert.Equal(t, first, second)
}

func TestAggregateDuplicateRowLastWins(t *testing.T) {
	rows := []Row{
		{UserID: 1, NodeID: 1, LimitBytes: gib(10), UsedBytes: gib(1)},
		{UserID: 1, NodeID: 1, LimitBytes: gib(10), UsedBytes: gib(7)},
	}

	out := Aggregate([]int64{1}, rows, nil)
	require.Len(t, out, 1)
	assert.Equal(t, gib(7), out[0].UsedBytes)
	assert.Equal(t, gib(10), out[0].LimitBytes)
}

func TestAggregateUnlimitedDominates(t *testing.T) {
	rows := []Row{
		{UserID: 1, NodeID: 1, LimitBytes: gib(10), UsedBytes: gib(2)},
		{UserID: 1, NodeID: 2, Unlimited: true, UsedBytes: gib(9)},
	}

	out := Aggregate([]int64{1}, rows, nil)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, LimitUnlimited, s.LimitKind)
	assert.Equal(t, int64(0), s.LimitBytes)
	assert.Equal(t, int64(0), s.UsedBytes)
	assert.Equal(t, int64(0), s.RemainingBytes)
}

func TestAggregateZeroRowUserStillSummarized(t *testing.T) {
	// Degraded data, not an absent user: the summary exists and is flagged.
	out := Aggregate([]int64{9}, nil, []int64{7})
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, int64(9), s.UserID)
	assert.Equal(t, LimitFixed, s.LimitKind)
	assert.Equal(t, int64(0), s.LimitBytes)
	assert.Equal(t, int64(0), s.UsedBytes)
	assert.True(t, s.Partial)
	assert.Equal(t, []int64{7}, s.UnreachableNodes)
}

func TestAggregateFixedInvariant(t *testing.T) {
	rows := []Row{
		{UserID: 1, NodeID: 1, LimitBytes: gib(10), UsedBytes: gib(3)},
		{UserID: 1, NodeID: 2, LimitBytes: gib(5), UsedBytes: gib(5)},
		{UserID: 2, NodeID: 1, LimitBytes: gib(1)},
	}

	for _, s := range Aggregate([]int64{1, 2}, rows, nil) {
		if s.LimitKind == LimitFixed {
			assert.Equal(t, s.LimitBytes, s.UsedBytes+s.RemainingBytes, "user %d", s.UserID)
		}
	}
}

func TestAggregateIgnoresRowsOutsideUniverse(t *testing.T) {
	rows := []Row{
		{UserID: 1, NodeID: 1, LimitBytes: gib(10)},
		{UserID: 99, NodeID: 1, LimitBytes: gib(10)},
	}

	out := Aggregate([]int64{1}, rows, nil)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].UserID)
}

func TestAggregateOutputSortedByUserID(t *testing.T) {
	rows := []Row{
		{UserID: 3, NodeID: 1, LimitBytes: gib(1)},
		{UserID: 1, NodeID: 1, LimitBytes: gib(1)},
		{UserID: 2, NodeID: 1, LimitBytes: gib(1)},
	}

	out := Aggregate([]int64{3, 1, 2}, rows, nil)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0].UserID)
	assert.Equal(t, int64(2), out[1].UserID)
	assert.Equal(t, int64(3), out[2].UserID)
}
