// Proportional split of the two fixed bonus pools among migrated
// requests, plus preparation of the bonus disbursement batch.

package bonus

import (
	"errors"
	"math/big"

	"github.com/docknetwork/migration-go/common"
	"github.com/docknetwork/migration-go/state"
	"github.com/docknetwork/migration-go/tokenconv"
)

type Config struct {
	// The two pools, mainnet smallest units. Fixed for the whole
	// migration, configured at process start.
	SwapPool    *big.Int
	VestingPool *big.Int

	// MigrationStartBlock anchors the vesting time lock: bonus vesting
	// offsets are measured from this Ethereum block.
	MigrationStartBlock uint64

	// Block times, seconds. The offset conversion uses their floored
	// ratio.
	EthBlockTimeSec     int
	MainnetBlockTimeSec int

	// BatchSize caps how many rows one bonus dispatch pass reads.
	BatchSize int
}

// Validate rejects configurations that would break the passes at run
// time, in particular a zero mainnet block time that would make the
// offset ratio divide by zero inside a scheduler goroutine.
func (c *Config) Validate() error {
	if c.SwapPool == nil || c.SwapPool.Sign() < 0 || c.VestingPool == nil || c.VestingPool.Sign() < 0 {
		return errors.New("bonus pools must be non-negative amounts")
	}
	if c.EthBlockTimeSec <= 0 || c.MainnetBlockTimeSec <= 0 {
		return errors.New("block times must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("bonus batch size must be positive")
	}
	return nil
}

// Totals aggregates one calculation pass. TotalSwapBonus can fall short
// of the pool by floor-rounding crumbs; the difference is accepted loss
// and never redistributed.
type Totals struct {
	TotalTransferred        *big.Int
	TotalVestingTransferred *big.Int
	TotalSwapBonus          *big.Int
	TotalVestingBonus       *big.Int
}

// Calculate annotates reqs in place with their swap and vesting bonus.
//
// Each request's swap bonus is its share of SwapPool in proportion to
// its full converted transfer (not the halved initial payout); the
// vesting bonus works the same over VestingPool but only counts
// requests that opted in. Division only happens when the corresponding
// total is positive, which it is whenever at least one contributing
// request exists.
func Calculate(reqs []*state.MigrationRequest, cfg *Config) *Totals {
	totals := &Totals{
		TotalTransferred:        new(big.Int),
		TotalVestingTransferred: new(big.Int),
		TotalSwapBonus:          new(big.Int),
		TotalVestingBonus:       new(big.Int),
	}
	if len(reqs) == 0 {
		return totals
	}

	mainnetTokens := make([]*big.Int, len(reqs))
	for i, r := range reqs {
		mainnetTokens[i] = tokenconv.ToMainnetTokens(r.ERC20Amount)
		totals.TotalTransferred.Add(totals.TotalTransferred, mainnetTokens[i])
		if r.IsVesting != nil && *r.IsVesting {
			totals.TotalVestingTransferred.Add(totals.TotalVestingTransferred, mainnetTokens[i])
		}
	}

	for i, r := range reqs {
		swap := new(big.Int).Mul(mainnetTokens[i], cfg.SwapPool)
		swap.Div(swap, totals.TotalTransferred)
		r.SwapBonusTokens = swap
		totals.TotalSwapBonus.Add(totals.TotalSwapBonus, swap)

		if r.IsVesting != nil && *r.IsVesting {
			vesting := new(big.Int).Mul(mainnetTokens[i], cfg.VestingPool)
			vesting.Div(vesting, totals.TotalVestingTransferred)
			r.VestingBonusTokens = vesting
			totals.TotalVestingBonus.Add(totals.TotalVestingBonus, vesting)
		} else {
			r.VestingBonusTokens = new(big.Int)
		}
	}

	return totals
}

// Eligible is a request prepared for bonus allocation: TotalBonus is
// what its disbursement will consume, and for vesting requests it folds
// in the withheld half of the original transfer. The bonus payout
// catches up the deferred principal, not just the proportional bonus.
type Eligible struct {
	Req *state.MigrationRequest

	// SwapBonus as calculated; VestingPayout = vesting bonus + withheld
	// principal, zero for non-vesting requests.
	SwapBonus     *big.Int
	VestingPayout *big.Int
	TotalBonus    *big.Int
}

// PrepareEligible derives the allocation amounts for a dispatch pass.
// Shallow copies: the underlying rows are not mutated.
func PrepareEligible(reqs []*state.MigrationRequest) []*Eligible {
	out := make([]*Eligible, len(reqs))
	for i, r := range reqs {
		e := &Eligible{
			Req:           r,
			SwapBonus:     common.BigIntClone(r.SwapBonusTokens),
			VestingPayout: new(big.Int),
		}
		if r.IsVesting != nil && *r.IsVesting {
			// During initial migration only half the amount moved.
			e.VestingPayout = new(big.Int).Add(
				tokenconv.VestingRemainder(r.ERC20Amount),
				r.VestingBonusTokens,
			)
		}
		e.TotalBonus = new(big.Int).Add(e.SwapBonus, e.VestingPayout)
		out[i] = e
	}
	return out
}

// BlockOffset converts the Ethereum block of the original transfer into
// a mainnet-block vesting offset: earlier transfers vest sooner.
func BlockOffset(ethBlockNumber uint64, cfg *Config) uint32 {
	if ethBlockNumber <= cfg.MigrationStartBlock {
		return 0
	}
	ratio := uint64(cfg.EthBlockTimeSec / cfg.MainnetBlockTimeSec)
	return uint32((ethBlockNumber - cfg.MigrationStartBlock) * ratio)
}
