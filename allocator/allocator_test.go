package allocator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cands(amounts ...int64) []Candidate {
	out := make([]Candidate, len(amounts))
	for i, a := range amounts {
		out[i] = Candidate{Ref: i, Amount: big.NewInt(a)}
	}
	return out
}

func TestSelectAllFit(t *testing.T) {
	res, err := Select(cands(5, 3, 8), 10, big.NewInt(100), AscendingAmount)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 3)
	assert.Equal(t, int64(16), res.Consumed.Int64())
	assert.Equal(t, 0, res.Unserved)
	assert.Nil(t, res.FirstExcluded)

	// ascending order
	assert.Equal(t, int64(3), res.Accepted[0].Amount.Int64())
	assert.Equal(t, int64(8), res.Accepted[2].Amount.Int64())
}

func TestSelectBalanceBound(t *testing.T) {
	// running sum must stay <= 10000000 and the first excluded
	// amount is reported
	res, err := Select(cands(4000000, 3000000, 2000000, 5000000), 100, big.NewInt(10000000), AscendingAmount)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 3) // 2M + 3M + 4M = 9M, 5M would break
	assert.Equal(t, int64(9000000), res.Consumed.Int64())
	assert.Equal(t, 1, res.Unserved)
	require.NotNil(t, res.FirstExcluded)
	assert.Equal(t, int64(5000000), res.FirstExcluded.Int64())
}

func TestSelectQuotaBound(t *testing.T) {
	res, err := Select(cands(1, 2, 3, 4), 2, big.NewInt(100), AscendingAmount)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 2)
	assert.Equal(t, int64(3), res.Consumed.Int64())
	assert.Equal(t, 2, res.Unserved)
	require.NotNil(t, res.FirstExcluded)
	assert.Equal(t, int64(3), res.FirstExcluded.Int64())
}

func TestSelectNoneFits(t *testing.T) {
	// balance below the smallest candidate is a reportable failure,
	// distinct from a partially served set
	_, err := Select(cands(10, 20), 5, big.NewInt(9), AscendingAmount)
	assert.ErrorIs(t, err, ErrNoneSelected)

	// quota zero likewise
	_, err = Select(cands(1), 0, big.NewInt(100), AscendingAmount)
	assert.ErrorIs(t, err, ErrNoneSelected)
}

func TestSelectEmptyInput(t *testing.T) {
	res, err := Select(nil, 5, big.NewInt(100), AscendingAmount)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 0)
	assert.Equal(t, 0, res.Unserved)
}

func TestSelectDescendingPolicy(t *testing.T) {
	res, err := Select(cands(1, 9, 5), 10, big.NewInt(14), DescendingAmount)
	require.NoError(t, err)
	// 9 + 5 fit, 1 breaks the budget at third place
	assert.Len(t, res.Accepted, 2)
	assert.Equal(t, int64(9), res.Accepted[0].Amount.Int64())
	assert.Equal(t, int64(14), res.Consumed.Int64())
	assert.Equal(t, 1, res.Unserved)
}

func TestSelectStableTies(t *testing.T) {
	in := []Candidate{
		{Ref: "a", Amount: big.NewInt(7)},
		{Ref: "b", Amount: big.NewInt(7)},
		{Ref: "c", Amount: big.NewInt(7)},
	}
	res, err := Select(in, 3, big.NewInt(21), AscendingAmount)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Accepted[0].Ref)
	assert.Equal(t, "b", res.Accepted[1].Ref)
	assert.Equal(t, "c", res.Accepted[2].Ref)
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	in := cands(9, 1, 5)
	_, err := Select(in, 3, big.NewInt(100), AscendingAmount)
	require.NoError(t, err)
	assert.Equal(t, int64(9), in[0].Amount.Int64())
	assert.Equal(t, int64(1), in[1].Amount.Int64())
}

func TestSelectRejectsBadInputs(t *testing.T) {
	_, err := Select(cands(1), -1, big.NewInt(1), AscendingAmount)
	assert.ErrorIs(t, err, ErrNegativeQuota)

	_, err = Select(cands(1), 1, big.NewInt(-1), AscendingAmount)
	assert.ErrorIs(t, err, ErrBalanceInvalid)

	_, err = Select([]Candidate{{Ref: 0, Amount: nil}}, 1, big.NewInt(1), AscendingAmount)
	assert.ErrorIs(t, err, ErrAmountInvalid)
}
