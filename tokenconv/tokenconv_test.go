package tokenconv

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func bigFromStr(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad test amount %s", s)
	}
	return v
}

func TestToMainnetTokens(t *testing.T) {
	// exact conversion, 12 trailing zeros
	v := ToMainnetTokens(bigFromStr(t, "5000000000000"))
	assert.Equal(t, int64(5), v.Int64())

	// remainder is truncated
	v = ToMainnetTokens(bigFromStr(t, "5999999999999"))
	assert.Equal(t, int64(5), v.Int64())

	v = ToMainnetTokens(big.NewInt(0))
	assert.Equal(t, int64(0), v.Int64())

	// below one mainnet unit
	v = ToMainnetTokens(bigFromStr(t, "999999999999"))
	assert.Equal(t, int64(0), v.Int64())
}

func TestInitialMigrationTokens(t *testing.T) {
	vesting := true
	notVesting := false

	amount := bigFromStr(t, "10000000000000") // 10 mainnet units

	assert.Equal(t, int64(10), InitialMigrationTokens(amount, nil).Int64())
	assert.Equal(t, int64(10), InitialMigrationTokens(amount, &notVesting).Int64())
	assert.Equal(t, int64(5), InitialMigrationTokens(amount, &vesting).Int64())

	// odd converted amount floors
	odd := bigFromStr(t, "11000000000000") // 11 mainnet units
	assert.Equal(t, int64(5), InitialMigrationTokens(odd, &vesting).Int64())
	assert.Equal(t, int64(6), VestingRemainder(odd).Int64())
}

// Scenario from the production migration: halves of an odd converted
// amount must sum back exactly.
func TestVestingSplitExactness(t *testing.T) {
	vesting := true
	amount := bigFromStr(t, "9194775499990000000000")

	initial := InitialMigrationTokens(amount, &vesting)
	remainder := VestingRemainder(amount)
	total := ToMainnetTokens(amount)

	assert.Equal(t, "4597387749", initial.String())
	assert.Equal(t, "4597387750", remainder.String())
	assert.Equal(t, "9194775499", total.String())
	assert.Equal(t, total, new(big.Int).Add(initial, remainder))
}

func TestVestingSplitSumsForRange(t *testing.T) {
	vesting := true
	for i := int64(0); i < 64; i++ {
		amount := new(big.Int).Mul(big.NewInt(i), bigFromStr(t, "1000000000000"))
		// perturb so conversion truncates too
		amount.Add(amount, big.NewInt(12345))

		initial := InitialMigrationTokens(amount, &vesting)
		remainder := VestingRemainder(amount)
		total := ToMainnetTokens(amount)
		assert.Equal(t, total, new(big.Int).Add(initial, remainder), "amount=%v", amount)
	}
}
