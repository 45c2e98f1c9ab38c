package mainnetman

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"

	"github.com/docknetwork/migration-go/common"
)

var (
	ErrQuotaExceeded   = errors.New("batch exceeds the migrator's allowed count")
	ErrBalanceExceeded = errors.New("batch exceeds the migrator's balance")
)

// SimulatedLedger is an in-memory LedgerClient for tests. Batches are
// atomic: a rejected batch changes nothing. Failure injection via
// FailNext mimics a submission that does not land.
type SimulatedLedger struct {
	mu       sync.Mutex
	quota    int
	balance  *big.Int
	FailNext error

	// every accepted batch, for assertions
	MigratedBatches [][]Recipient
	BonusBatches    [][]BonusRecipient
	Balances        map[string]*big.Int
}

func NewSimulatedLedger(quota int, balance *big.Int) *SimulatedLedger {
	return &SimulatedLedger{
		quota:    quota,
		balance:  common.BigIntClone(balance),
		Balances: map[string]*big.Int{},
	}
}

func (l *SimulatedLedger) takeInjectedFailure() error {
	err := l.FailNext
	l.FailNext = nil
	return err
}

func (l *SimulatedLedger) apply(count int, total *big.Int) error {
	if count > l.quota {
		return ErrQuotaExceeded
	}
	if l.balance.Cmp(total) < 0 {
		return ErrBalanceExceeded
	}
	l.quota -= count
	l.balance.Sub(l.balance, total)
	return nil
}

func (l *SimulatedLedger) Migrate(_ context.Context, recipients []Recipient) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeInjectedFailure(); err != nil {
		return "", err
	}

	total := new(big.Int)
	for _, r := range recipients {
		total.Add(total, r.Amount)
	}
	if err := l.apply(len(recipients), total); err != nil {
		return "", err
	}

	for _, r := range recipients {
		bal, ok := l.Balances[r.Address]
		if !ok {
			bal = new(big.Int)
			l.Balances[r.Address] = bal
		}
		bal.Add(bal, r.Amount)
	}
	l.MigratedBatches = append(l.MigratedBatches, recipients)
	return l.blockHash(), nil
}

func (l *SimulatedLedger) GiveBonuses(_ context.Context, swapList, vestingList []BonusRecipient) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeInjectedFailure(); err != nil {
		return "", err
	}

	all := append(append([]BonusRecipient{}, swapList...), vestingList...)
	total := new(big.Int)
	for _, r := range all {
		total.Add(total, r.Amount)
	}
	if err := l.apply(len(all), total); err != nil {
		return "", err
	}

	for _, r := range all {
		bal, ok := l.Balances[r.Address]
		if !ok {
			bal = new(big.Int)
			l.Balances[r.Address] = bal
		}
		bal.Add(bal, r.Amount)
	}
	l.BonusBatches = append(l.BonusBatches, all)
	return l.blockHash(), nil
}

func (l *SimulatedLedger) GetMigratorDetails(_ context.Context) (int, *big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quota, common.BigIntClone(l.balance), nil
}

func (l *SimulatedLedger) GetBalance(_ context.Context, address string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.Balances[address]
	if !ok {
		return new(big.Int), nil
	}
	return common.BigIntClone(bal), nil
}

func (l *SimulatedLedger) blockHash() string {
	return hex.EncodeToString(common.RandBytes(32))
}
