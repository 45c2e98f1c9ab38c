// Conversion between ERC-20 smallest units (18 decimals) and mainnet
// smallest units (6 decimals).

package tokenconv

import (
	"math/big"
)

// ERC-20 token has 18 decimal places, mainnet has 6, so one mainnet
// unit is 10^12 ERC-20 units.
var scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

var one = big.NewInt(1)

// ToMainnetTokens converts an ERC-20 amount (smallest unit) to mainnet
// tokens (smallest unit). Integer division truncates: amounts with fewer
// than 12 trailing zero digits lose the remainder. This is accepted
// behavior, not a bug.
func ToMainnetTokens(erc20Amount *big.Int) *big.Int {
	return new(big.Int).Div(erc20Amount, scaleFactor)
}

// InitialMigrationTokens returns the mainnet tokens paid at initial
// migration. Vesting holders get half up front, floored when the
// converted amount is odd. isVesting == nil means the request was made
// after the bonus window and vesting never applies.
func InitialMigrationTokens(erc20Amount *big.Int, isVesting *bool) *big.Int {
	mainnet := ToMainnetTokens(erc20Amount)
	if isVesting != nil && *isVesting {
		return mainnet.Rsh(mainnet, 1)
	}
	return mainnet
}

// VestingRemainder returns the withheld half of a vesting migration,
// i.e. the ceiling of half the converted amount. For every amount,
// InitialMigrationTokens(a, vesting) + VestingRemainder(a) equals
// ToMainnetTokens(a) exactly.
func VestingRemainder(erc20Amount *big.Int) *big.Int {
	mainnet := ToMainnetTokens(erc20Amount)
	if mainnet.Bit(0) == 0 {
		return mainnet.Rsh(mainnet, 1)
	}
	return mainnet.Rsh(mainnet, 1).Add(mainnet, one)
}
