// Boundary to the destination ledger. The migration service only ever
// talks to the migrator pallet through this interface; RPCLedger is
// the production implementation, SimulatedLedger the test one.

package mainnetman

import (
	"context"
	"math/big"
)

// Recipient is one initial-migration payout.
type Recipient struct {
	Address string
	Amount  *big.Int
}

// BonusRecipient is one bonus payout. BlockOffset is how many mainnet
// blocks into the future the bonus vests, anchored to when the original
// transfer happened.
type BonusRecipient struct {
	Address     string
	Amount      *big.Int
	BlockOffset uint32
}

// LedgerClient is what the reconciliation driver and the bonus pass
// need from the mainnet node. Both disbursement calls are atomic: the
// whole batch lands in one block or none of it does. Implementations
// load the migrator's signing key only for the duration of a call and
// wipe it before returning.
type LedgerClient interface {
	// Migrate submits the initial payouts and returns the block hash
	// they landed in.
	Migrate(ctx context.Context, recipients []Recipient) (string, error)

	// GiveBonuses submits bonus payouts and returns the block hash.
	GiveBonuses(ctx context.Context, swapList, vestingList []BonusRecipient) (string, error)

	// GetMigratorDetails returns the remaining recipient quota and the
	// migrator account's free balance.
	GetMigratorDetails(ctx context.Context) (int, *big.Int, error)

	// GetBalance returns the free balance of an arbitrary account.
	GetBalance(ctx context.Context, address string) (*big.Int, error)
}
