package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *StateDB {
	t.Helper()
	sqlDB := GetMemoryDB()
	st, err := NewStateDB(sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Close()
		sqlDB.Close()
	})
	return st
}

func TestTrackAndGetRequest(t *testing.T) {
	st := newTestDB(t)
	vesting := true
	req := RandRequest(StatusSigValid, &vesting)

	require.NoError(t, st.TrackNewRequest(req))

	got, err := st.GetRequest(req.EthAddress, req.EthTxnHash)
	require.NoError(t, err)
	assert.Equal(t, req.EthAddress, got.EthAddress)
	assert.Equal(t, req.MainnetAddress, got.MainnetAddress)
	assert.Equal(t, StatusSigValid, got.Status)
	require.NotNil(t, got.IsVesting)
	assert.True(t, *got.IsVesting)
	assert.Nil(t, got.ERC20Amount)
	assert.Equal(t, int64(0), got.SwapBonusTokens.Int64())
}

func TestTrackRejectsDuplicates(t *testing.T) {
	st := newTestDB(t)
	req := RandRequest(StatusSigValid, nil)

	require.NoError(t, st.TrackNewRequest(req))
	err := st.TrackNewRequest(req)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestTrackRejectsLateStatuses(t *testing.T) {
	st := newTestDB(t)
	req := RandRequest(StatusTxnConfirmed, nil)
	assert.ErrorIs(t, st.TrackNewRequest(req), ErrIllegalTransition)
}

func TestGetRequestNotFound(t *testing.T) {
	st := newTestDB(t)
	_, err := st.GetRequest("deadbeef", "cafe")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestIsVestingTriState(t *testing.T) {
	st := newTestDB(t)

	vesting := true
	notVesting := false
	withBonus := RandRequest(StatusSigValid, &vesting)
	noBonus := RandRequest(StatusSigValid, &notVesting)
	afterWindow := RandRequest(StatusSigValid, nil)

	for _, r := range []*MigrationRequest{withBonus, noBonus, afterWindow} {
		require.NoError(t, st.TrackNewRequest(r))
	}

	got, err := st.GetRequest(afterWindow.EthAddress, afterWindow.EthTxnHash)
	require.NoError(t, err)
	assert.Nil(t, got.IsVesting)

	got, err = st.GetRequest(noBonus.EthAddress, noBonus.EthTxnHash)
	require.NoError(t, err)
	require.NotNil(t, got.IsVesting)
	assert.False(t, *got.IsVesting)
}

func TestLifecycleWrites(t *testing.T) {
	st := newTestDB(t)
	req := RandRequest(StatusSigValid, nil)
	require.NoError(t, st.TrackNewRequest(req))

	amount := big.NewInt(5000000000000)
	require.NoError(t, st.MarkRequestParsed(req.EthAddress, req.EthTxnHash, amount))

	got, err := st.GetRequest(req.EthAddress, req.EthTxnHash)
	require.NoError(t, err)
	assert.Equal(t, StatusTxnParsed, got.Status)
	assert.Equal(t, amount, got.ERC20Amount)

	require.NoError(t, st.MarkRequestConfirmed(req.EthAddress, req.EthTxnHash, 123456))
	got, _ = st.GetRequest(req.EthAddress, req.EthTxnHash)
	assert.Equal(t, StatusTxnConfirmed, got.Status)
	assert.Equal(t, uint64(123456), got.EthTxnBlockNumber)

	require.NoError(t, st.MarkInitialMigrationDone(req.EthAddress, req.EthTxnHash, "aa11", big.NewInt(5)))
	got, _ = st.GetRequest(req.EthAddress, req.EthTxnHash)
	assert.Equal(t, StatusInitialTransferDone, got.Status)
	assert.Equal(t, "aa11", got.MigrationTxnHash)
	assert.Equal(t, int64(5), got.MigrationTokens.Int64())

	require.NoError(t, st.UpdateBonuses(req.EthAddress, req.EthTxnHash, big.NewInt(7), big.NewInt(0)))
	require.NoError(t, st.MarkBonusTransferred(req.EthAddress, req.EthTxnHash, "bb22"))
	got, _ = st.GetRequest(req.EthAddress, req.EthTxnHash)
	assert.Equal(t, StatusBonusTransferred, got.Status)
	assert.Equal(t, "bb22", got.BonusTxnHash)
}

func TestGuardedWritesRejectIllegalTransitions(t *testing.T) {
	st := newTestDB(t)
	req := RandRequest(StatusSigValid, nil)
	require.NoError(t, st.TrackNewRequest(req))

	// cannot confirm a never-parsed request via MarkRequestConfirmed
	err := st.MarkRequestConfirmed(req.EthAddress, req.EthTxnHash, 1)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// cannot migrate before confirmation
	err = st.MarkInitialMigrationDone(req.EthAddress, req.EthTxnHash, "aa", big.NewInt(1))
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// invalid is absorbing
	require.NoError(t, st.MarkRequestInvalid(req.EthAddress, req.EthTxnHash))
	err = st.MarkRequestParsed(req.EthAddress, req.EthTxnHash, big.NewInt(1))
	assert.ErrorIs(t, err, ErrIllegalTransition)
	err = st.MarkRequestInvalid(req.EthAddress, req.EthTxnHash)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestMarkInvalidRejectedAfterMigration(t *testing.T) {
	st := newTestDB(t)
	req := RandRequest(StatusInitialTransferDone, nil)
	require.NoError(t, SeedRequest(st, req))

	err := st.MarkRequestInvalid(req.EthAddress, req.EthTxnHash)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestPendingQueries(t *testing.T) {
	st := newTestDB(t)
	vesting := true

	sigValid := RandRequest(StatusSigValid, nil)
	parsed := RandRequest(StatusTxnParsed, &vesting)
	confirmed := RandRequest(StatusTxnConfirmed, &vesting)
	migrated := RandRequest(StatusInitialTransferDone, &vesting)
	migratedNoWindow := RandRequest(StatusInitialTransferDone, nil)
	calculated := RandRequest(StatusBonusCalculated, &vesting)
	invalid := RandRequest(StatusInvalid, nil)

	for _, r := range []*MigrationRequest{sigValid, parsed, confirmed, migrated, migratedNoWindow, calculated, invalid} {
		require.NoError(t, SeedRequest(st, r))
	}

	pending, err := st.GetPendingMigrationRequests()
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	calc, err := st.GetPendingBonusCalcRequests()
	require.NoError(t, err)
	// migratedNoWindow has isVesting NULL: no bonus, ever
	require.Len(t, calc, 1)
	assert.Equal(t, migrated.EthAddress, calc[0].EthAddress)

	disp, err := st.GetPendingBonusDispRequests(100)
	require.NoError(t, err)
	require.Len(t, disp, 1)
	assert.Equal(t, calculated.EthAddress, disp[0].EthAddress)

	disp, err = st.GetPendingBonusDispRequests(0)
	require.NoError(t, err)
	assert.Len(t, disp, 0)
}

func TestGetStats(t *testing.T) {
	st := newTestDB(t)
	vesting := true

	a := RandRequest(StatusInitialTransferDone, &vesting)
	a.ERC20Amount = big.NewInt(4000000000000)
	a.MigrationTokens = big.NewInt(4)
	b := RandRequest(StatusSigValid, nil)

	require.NoError(t, SeedRequest(st, a))
	require.NoError(t, SeedRequest(st, b))

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.ByStatus[StatusInitialTransferDone])
	assert.Equal(t, int64(1), stats.ByStatus[StatusSigValid])
	assert.Equal(t, int64(1), stats.VestingOptedIn)
	assert.Equal(t, int64(4000000000000), stats.TotalERC20.Int64())
	assert.Equal(t, int64(4), stats.TotalMigrated.Int64())
}

func TestDeleteRequest(t *testing.T) {
	st := newTestDB(t)
	req := RandRequest(StatusSigValid, nil)
	require.NoError(t, st.TrackNewRequest(req))
	require.NoError(t, st.DeleteRequest(req.EthAddress, req.EthTxnHash))
	_, err := st.GetRequest(req.EthAddress, req.EthTxnHash)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestCountByStatus(t *testing.T) {
	st := newTestDB(t)
	vesting := true

	require.NoError(t, SeedRequest(st, RandRequest(StatusSigValid, &vesting)))
	require.NoError(t, SeedRequest(st, RandRequest(StatusTxnConfirmed, &vesting)))
	require.NoError(t, SeedRequest(st, RandRequest(StatusInitialTransferDone, nil)))

	n, err := st.CountByStatus(StatusSigValid, StatusTxnParsed, StatusTxnConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = st.CountByStatus(StatusBonusCalculated)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStoreCalculatedBonusesAtomic(t *testing.T) {
	st := newTestDB(t)
	vesting := true

	ok := RandRequest(StatusInitialTransferDone, &vesting)
	require.NoError(t, SeedRequest(st, ok))
	ok.SwapBonusTokens = big.NewInt(700)
	ok.VestingBonusTokens = big.NewInt(300)

	// not yet migrated, so its transition must fail
	bad := RandRequest(StatusTxnConfirmed, &vesting)
	require.NoError(t, SeedRequest(st, bad))
	bad.SwapBonusTokens = big.NewInt(1)
	bad.VestingBonusTokens = big.NewInt(1)

	err := st.StoreCalculatedBonuses([]*MigrationRequest{ok, bad})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// the failed batch left no partial writes behind
	got, err := st.GetRequest(ok.EthAddress, ok.EthTxnHash)
	require.NoError(t, err)
	assert.Equal(t, StatusInitialTransferDone, got.Status)
	assert.Equal(t, int64(0), got.SwapBonusTokens.Int64())

	require.NoError(t, st.StoreCalculatedBonuses([]*MigrationRequest{ok}))
	got, err = st.GetRequest(ok.EthAddress, ok.EthTxnHash)
	require.NoError(t, err)
	assert.Equal(t, StatusBonusCalculated, got.Status)
	assert.Equal(t, int64(700), got.SwapBonusTokens.Int64())
}
