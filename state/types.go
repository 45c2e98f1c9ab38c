package state

import (
	"math/big"
)

// MigrationRequest is one row of the requests table: a holder's claim
// that the ERC-20 transfer identified by (EthAddress, EthTxnHash) moved
// tokens into the vault and should be honored on the mainnet.
type MigrationRequest struct {
	// Identity. EthAddress is the sender account in lowercase hex
	// without 0x prefix; EthTxnHash is the transfer transaction hash in
	// lowercase hex without prefix.
	EthAddress string
	EthTxnHash string

	// Mainnet recipient address, base58, validated at intake. Immutable.
	MainnetAddress string

	Status RequestStatus

	// Raw signature over the intake payload, hex. Kept for dispute
	// resolution.
	Signature string

	// nil when the request arrived after the bonus window closed:
	// vesting and bonus never apply then.
	IsVesting *bool

	// ERC-20 smallest units moved by the transfer. Set once the
	// transaction is decoded.
	ERC20Amount *big.Int

	// Block height of the transfer. Set at decode time, drives
	// confirmation depth and the bonus vesting offset.
	EthTxnBlockNumber uint64

	// Set once the initial disbursement lands.
	MigrationTxnHash string
	MigrationTokens  *big.Int

	// Set by the bonus pass. Zero until computed.
	SwapBonusTokens    *big.Int
	VestingBonusTokens *big.Int

	// Set once the bonus disbursement lands.
	BonusTxnHash string
}

// Stats are the aggregates served on the statistics route.
type Stats struct {
	TotalRequests     int64                   `json:"totalRequests"`
	ByStatus          map[RequestStatus]int64 `json:"byStatus"`
	VestingOptedIn    int64                   `json:"vestingOptedIn"`
	TotalERC20        *big.Int                `json:"totalErc20"`
	TotalMigrated     *big.Int                `json:"totalMigratedTokens"`
	TotalSwapBonus    *big.Int                `json:"totalSwapBonusTokens"`
	TotalVestingBonus *big.Int                `json:"totalVestingBonusTokens"`
}
