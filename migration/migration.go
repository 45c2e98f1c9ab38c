// The reconciliation driver: the polling loop that advances migration
// requests from signature-checked to paid out. Each cycle re-reads
// authoritative state from the store, so a crash mid-cycle loses
// nothing; the next cycle re-derives what is still pending.

package migration

import (
	"context"
	"math/big"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/docknetwork/migration-go/alert"
	"github.com/docknetwork/migration-go/allocator"
	"github.com/docknetwork/migration-go/etherman"
	"github.com/docknetwork/migration-go/mainnetman"
	"github.com/docknetwork/migration-go/metrics"
	"github.com/docknetwork/migration-go/state"
	"github.com/docknetwork/migration-go/tokenconv"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultVerifyLimit  = 8
)

type Config struct {
	// PollInterval between reconciliation cycles.
	PollInterval time.Duration

	// VerifyConcurrency caps in-flight receipt lookups per cycle.
	VerifyConcurrency int
}

// transferVerifier is what the driver needs from the Ethereum side.
type transferVerifier interface {
	CurrentBlockNumber(ctx context.Context) (uint64, error)
	VerifyTransfer(ctx context.Context, claimedSender, txnHash string, currentBlock uint64) (*etherman.Verdict, error)
}

// Driver owns the full reconciliation cycle. Exactly one driver may
// run against a store: its quota and balance bookkeeping is only
// consistent within a single process between ledger reads.
type Driver struct {
	db      *state.StateDB
	eth     transferVerifier
	ledger  mainnetman.LedgerClient
	alerter alert.Alerter
	cfg     *Config

	// Ordering for the initial payout allocator; ascending serves the
	// most requests per unit of balance.
	Ordering allocator.Ordering
}

func NewDriver(db *state.StateDB, eth transferVerifier, ledger mainnetman.LedgerClient, alerter alert.Alerter, cfg *Config) *Driver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.VerifyConcurrency <= 0 {
		cfg.VerifyConcurrency = defaultVerifyLimit
	}
	return &Driver{
		db:       db,
		eth:      eth,
		ledger:   ledger,
		alerter:  alerter,
		cfg:      cfg,
		Ordering: allocator.AscendingAmount,
	}
}

// Run polls until ctx is cancelled. Cycle errors are logged and the
// loop continues; only shutdown stops it.
func (d *Driver) Run(ctx context.Context) {
	logger.WithField("interval", d.cfg.PollInterval).Info("reconciliation driver started")

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := d.ProcessPendingRequests(ctx); err != nil {
			logger.WithError(err).Error("reconciliation cycle failed")
		}
		select {
		case <-ctx.Done():
			logger.Info("reconciliation driver stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessPendingRequests runs one reconciliation cycle: service the
// confirmed backlog first, then verify waiting requests concurrently,
// then service whatever confirmed during this cycle with the capacity
// that is left.
func (d *Driver) ProcessPendingRequests(ctx context.Context) error {
	pending, err := d.db.GetPendingMigrationRequests()
	if err != nil {
		return err
	}

	var backlog, waiting []*state.MigrationRequest
	for _, r := range pending {
		if r.Status == state.StatusTxnConfirmed {
			backlog = append(backlog, r)
		} else {
			waiting = append(waiting, r)
		}
	}

	quota, balance, err := d.ledger.GetMigratorDetails(ctx)
	if err != nil {
		return err
	}
	d.alerter.MigratorLow(quota, balance)

	// Backlog before new confirmations: a stream of fresh submissions
	// must not starve requests confirmed in earlier cycles.
	if len(backlog) > 0 {
		served, consumed, err := d.migrateConfirmed(ctx, backlog, quota, balance)
		if err != nil {
			logger.WithError(err).Error("failed to migrate confirmed backlog")
		} else {
			quota -= served
			balance.Sub(balance, consumed)
		}
	}

	confirmed := d.verifyWaiting(ctx, waiting)
	if len(confirmed) > 0 {
		if _, _, err := d.migrateConfirmed(ctx, confirmed, quota, balance); err != nil {
			logger.WithError(err).Error("failed to migrate newly confirmed requests")
		}
	}

	metrics.ReconciliationCycles.Inc()
	return nil
}

// verifyWaiting checks every unconfirmed request against the chain and
// persists each verdict independently. A failed lookup or write only
// affects its own request. Returns the requests that confirmed.
func (d *Driver) verifyWaiting(ctx context.Context, waiting []*state.MigrationRequest) []*state.MigrationRequest {
	if len(waiting) == 0 {
		return nil
	}

	currentBlock, err := d.eth.CurrentBlockNumber(ctx)
	if err != nil {
		logger.WithError(err).Error("failed to fetch current block number")
		return nil
	}

	var (
		mu        sync.Mutex
		confirmed []*state.MigrationRequest
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(d.cfg.VerifyConcurrency)
	for _, r := range waiting {
		r := r
		group.Go(func() error {
			if ok := d.verifyOne(gctx, r, currentBlock); ok {
				mu.Lock()
				confirmed = append(confirmed, r)
				mu.Unlock()
			}
			// individual failures never cancel the rest of the batch
			return nil
		})
	}
	group.Wait()
	return confirmed
}

// verifyOne fetches, decides and persists one request. Returns true
// when the request reached txn_confirmed.
func (d *Driver) verifyOne(ctx context.Context, r *state.MigrationRequest, currentBlock uint64) bool {
	log := logger.WithFields(logger.Fields{
		"ethAddress": r.EthAddress,
		"ethTxnHash": r.EthTxnHash,
	})

	verdict, err := d.eth.VerifyTransfer(ctx, r.EthAddress, r.EthTxnHash, currentBlock)
	if err != nil {
		// transient; retried next cycle
		log.WithError(err).Warn("could not verify transfer")
		return false
	}

	switch verdict.Kind {
	case etherman.VerdictInvalid:
		log.WithField("reason", verdict.Reason).Info("marking request invalid")
		if err := d.db.MarkRequestInvalid(r.EthAddress, r.EthTxnHash); err != nil {
			log.WithError(err).Error("failed to mark request invalid")
			return false
		}
		metrics.RequestsVerified.WithLabelValues("invalid").Inc()

	case etherman.VerdictParsed:
		// an already parsed request waiting on depth stays put
		if r.Status != state.StatusSigValid {
			return false
		}
		if err := d.db.MarkRequestParsed(r.EthAddress, r.EthTxnHash, verdict.Amount); err != nil {
			log.WithError(err).Error("failed to mark request parsed")
			return false
		}
		r.Status = state.StatusTxnParsed
		r.ERC20Amount = verdict.Amount
		metrics.RequestsVerified.WithLabelValues("parsed").Inc()

	case etherman.VerdictConfirmed:
		if r.Status == state.StatusSigValid {
			err = d.db.MarkRequestParsedAndConfirmed(r.EthAddress, r.EthTxnHash, verdict.Amount, verdict.BlockNumber)
		} else {
			err = d.db.MarkRequestConfirmed(r.EthAddress, r.EthTxnHash, verdict.BlockNumber)
		}
		if err != nil {
			log.WithError(err).Error("failed to mark request confirmed")
			return false
		}
		r.Status = state.StatusTxnConfirmed
		r.ERC20Amount = verdict.Amount
		r.EthTxnBlockNumber = verdict.BlockNumber
		metrics.RequestsVerified.WithLabelValues("confirmed").Inc()
		return true
	}
	return false
}

// migrateConfirmed allocates confirmed requests under quota and
// balance and submits the accepted batch as one atomic ledger call.
// Returns how many were served and the balance consumed.
func (d *Driver) migrateConfirmed(ctx context.Context, reqs []*state.MigrationRequest, quota int, balance *big.Int) (int, *big.Int, error) {
	candidates := make([]allocator.Candidate, len(reqs))
	for i, r := range reqs {
		// Vesting requests get half now, the rest with the bonus.
		candidates[i] = allocator.Candidate{
			Ref:    r,
			Amount: tokenconv.InitialMigrationTokens(r.ERC20Amount, r.IsVesting),
		}
	}

	res, err := allocator.Select(candidates, quota, balance, d.Ordering)
	if err != nil {
		if err == allocator.ErrNoneSelected {
			metrics.AllocationExhaustions.WithLabelValues("migration").Inc()
			d.alerter.AllocationExhausted("migration", len(reqs))
		}
		return 0, nil, err
	}
	if res.Unserved > 0 {
		logger.Warnf("%d confirmed requests could not be migrated", res.Unserved)
	}

	recipients := make([]mainnetman.Recipient, len(res.Accepted))
	for i, c := range res.Accepted {
		r := c.Ref.(*state.MigrationRequest)
		recipients[i] = mainnetman.Recipient{
			Address: r.MainnetAddress,
			Amount:  c.Amount,
		}
	}

	blockHash, err := d.ledger.Migrate(ctx, recipients)
	if err != nil {
		// atomic submission: nothing landed, whole batch retries
		return 0, nil, err
	}
	logger.Infof("migrated %d requests in block %s", len(res.Accepted), blockHash)

	for _, c := range res.Accepted {
		r := c.Ref.(*state.MigrationRequest)
		if err := d.db.MarkInitialMigrationDone(r.EthAddress, r.EthTxnHash, blockHash, c.Amount); err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"ethAddress": r.EthAddress,
				"ethTxnHash": r.EthTxnHash,
			}).Error("failed to mark migration done")
		}
	}
	metrics.RequestsMigrated.Add(float64(len(res.Accepted)))
	return len(res.Accepted), res.Consumed, nil
}
