package bonus

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"

	"github.com/docknetwork/migration-go/alert"
	"github.com/docknetwork/migration-go/allocator"
	"github.com/docknetwork/migration-go/mainnetman"
	"github.com/docknetwork/migration-go/metrics"
	"github.com/docknetwork/migration-go/state"
)

var (
	// ErrMigrationsIncomplete means requests are still moving towards
	// initial_transfer_done, so the eligible population is not final
	// yet and splitting the pools now would over-allocate them.
	ErrMigrationsIncomplete = errors.New("initial migrations still pending, bonus calculation deferred")

	// ErrBonusesAlreadyCalculated means the pools were already split.
	// The calculation runs exactly once; rerunning it would hand out
	// fresh shares of the same pools.
	ErrBonusesAlreadyCalculated = errors.New("bonuses were already calculated")
)

// Pass runs the two bonus stages against the store: calculation over
// fully migrated requests, then batched disbursement of calculated
// ones. Both assume all initial migrations in their input are done.
type Pass struct {
	db      *state.StateDB
	ledger  mainnetman.LedgerClient
	alerter alert.Alerter
	cfg     *Config

	// Ordering for the dispatch allocator; ascending serves the most
	// requests per unit of balance.
	Ordering allocator.Ordering
}

func NewPass(db *state.StateDB, ledger mainnetman.LedgerClient, alerter alert.Alerter, cfg *Config) *Pass {
	return &Pass{
		db:       db,
		ledger:   ledger,
		alerter:  alerter,
		cfg:      cfg,
		Ordering: allocator.AscendingAmount,
	}
}

// CalculateAndStore splits the bonus pools over every migrated request
// and persists the shares atomically. Returns the pass totals.
//
// The split runs exactly once, over the complete eligible population:
// while any request is still on its way to initial_transfer_done the
// pass defers with ErrMigrationsIncomplete, and once any row carries a
// calculated bonus it refuses with ErrBonusesAlreadyCalculated. Each
// firing before those points would otherwise hand late arrivals a
// fresh share of the full pools.
func (p *Pass) CalculateAndStore(ctx context.Context) (*Totals, error) {
	pending, err := p.db.CountByStatus(state.StatusSigValid, state.StatusTxnParsed, state.StatusTxnConfirmed)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		logger.WithField("pending", pending).Info("bonus calculation deferred, initial migrations incomplete")
		return nil, ErrMigrationsIncomplete
	}
	calculated, err := p.db.CountByStatus(state.StatusBonusCalculated, state.StatusBonusTransferred)
	if err != nil {
		return nil, err
	}
	if calculated > 0 {
		return nil, ErrBonusesAlreadyCalculated
	}

	reqs, err := p.db.GetPendingBonusCalcRequests()
	if err != nil {
		return nil, err
	}

	totals := Calculate(reqs, p.cfg)
	logger.WithFields(logger.Fields{
		"requests":     len(reqs),
		"totalSwap":    totals.TotalSwapBonus,
		"totalVesting": totals.TotalVestingBonus,
	}).Info("calculated bonuses")

	// All rows land or none do, so a write failure leaves the whole
	// pass retryable instead of pinning part of the pools.
	if err := p.db.StoreCalculatedBonuses(reqs); err != nil {
		return nil, err
	}
	return totals, nil
}

// DispatchAndStore disburses calculated bonuses under the migrator's
// current quota and balance. Returns how many requests were served.
func (p *Pass) DispatchAndStore(ctx context.Context) (int, error) {
	quota, balance, err := p.ledger.GetMigratorDetails(ctx)
	if err != nil {
		return 0, err
	}
	p.alerter.MigratorLow(quota, balance)

	reqs, err := p.db.GetPendingBonusDispRequests(p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(reqs) == 0 {
		return 0, nil
	}

	eligible := PrepareEligible(reqs)
	candidates := make([]allocator.Candidate, len(eligible))
	for i, e := range eligible {
		// Sort key is the combined bonus, principal catch-up included.
		candidates[i] = allocator.Candidate{Ref: e, Amount: e.TotalBonus}
	}

	res, err := allocator.Select(candidates, quota, balance, p.Ordering)
	if err != nil {
		if err == allocator.ErrNoneSelected {
			metrics.AllocationExhaustions.WithLabelValues("bonus").Inc()
			p.alerter.AllocationExhausted("bonus", len(reqs))
		}
		return 0, err
	}
	if res.Unserved > 0 {
		logger.Warnf("%d requests could not be given bonus", res.Unserved)
	}

	// The vesting mechanism folded into the swap list: every bonus is
	// dispatched as a swap entry carrying the vesting offset, the
	// vesting list stays empty.
	swapList := make([]mainnetman.BonusRecipient, len(res.Accepted))
	selected := make([]*Eligible, len(res.Accepted))
	for i, c := range res.Accepted {
		e := c.Ref.(*Eligible)
		selected[i] = e
		swapList[i] = mainnetman.BonusRecipient{
			Address:     e.Req.MainnetAddress,
			Amount:      e.TotalBonus,
			BlockOffset: BlockOffset(e.Req.EthTxnBlockNumber, p.cfg),
		}
	}

	blockHash, err := p.ledger.GiveBonuses(ctx, swapList, nil)
	if err != nil {
		// nothing landed, nothing to persist; next pass retries
		return 0, err
	}
	logger.Infof("gave bonus to %d requests in block %s", len(selected), blockHash)

	for _, e := range selected {
		if err := p.db.MarkBonusTransferred(e.Req.EthAddress, e.Req.EthTxnHash, blockHash); err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"ethAddress": e.Req.EthAddress,
				"ethTxnHash": e.Req.EthTxnHash,
			}).Error("failed to mark bonus transferred")
		}
	}
	metrics.BonusesDispatched.Add(float64(len(selected)))
	return len(selected), nil
}
