package mainnetman

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedLedgerMigrate(t *testing.T) {
	l := NewSimulatedLedger(2, big.NewInt(1000))
	ctx := context.Background()

	hash, err := l.Migrate(ctx, []Recipient{
		{Address: "alice", Amount: big.NewInt(300)},
		{Address: "bob", Amount: big.NewInt(200)},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	bal, err := l.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal.Int64())

	quota, balance, err := l.GetMigratorDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, quota)
	assert.Equal(t, int64(500), balance.Int64())
}

func TestSimulatedLedgerAtomicRejection(t *testing.T) {
	l := NewSimulatedLedger(1, big.NewInt(1000))
	ctx := context.Background()

	_, err := l.Migrate(ctx, []Recipient{
		{Address: "alice", Amount: big.NewInt(100)},
		{Address: "bob", Amount: big.NewInt(100)},
	})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, err = l.Migrate(ctx, []Recipient{
		{Address: "alice", Amount: big.NewInt(2000)},
	})
	assert.ErrorIs(t, err, ErrBalanceExceeded)

	// nothing from the rejected batches landed
	quota, balance, err := l.GetMigratorDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, quota)
	assert.Equal(t, int64(1000), balance.Int64())
	assert.Empty(t, l.MigratedBatches)
}

func TestSimulatedLedgerFailNext(t *testing.T) {
	l := NewSimulatedLedger(10, big.NewInt(1000))
	ctx := context.Background()

	l.FailNext = assert.AnError
	_, err := l.GiveBonuses(ctx, []BonusRecipient{
		{Address: "alice", Amount: big.NewInt(100)},
	}, nil)
	assert.Error(t, err)

	// the injected failure only fires once
	_, err = l.GiveBonuses(ctx, []BonusRecipient{
		{Address: "alice", Amount: big.NewInt(100), BlockOffset: 40},
	}, nil)
	require.NoError(t, err)
	require.Len(t, l.BonusBatches, 1)
	assert.Equal(t, uint32(40), l.BonusBatches[0][0].BlockOffset)
}
