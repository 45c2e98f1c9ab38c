// HTTP client for the mainnet signer sidecar. The sidecar holds the
// migrator key and loads it per submission only, so this process never
// sees key material; each call here maps to one sidecar route.

package mainnetman

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"
)

const defaultRPCTimeout = 60 * time.Second

var ErrLedgerRejected = errors.New("ledger sidecar rejected the call")

type RPCConfig struct {
	// Base URL of the sidecar, e.g. http://127.0.0.1:9955
	URL string

	// Per-call timeout; defaultRPCTimeout when zero.
	Timeout time.Duration
}

type RPCLedger struct {
	cfg    *RPCConfig
	client *http.Client
}

func NewRPCLedger(cfg *RPCConfig) *RPCLedger {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRPCTimeout
	}
	return &RPCLedger{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// amountsAsStrings keeps big.Int values intact over the wire.
type rpcRecipient struct {
	Address     string `json:"address"`
	Amount      string `json:"amount"`
	BlockOffset uint32 `json:"blockOffset,omitempty"`
}

type rpcResponse struct {
	Error     string `json:"error"`
	BlockHash string `json:"blockHash"`
	Quota     int    `json:"quota"`
	Balance   string `json:"balance"`
}

func (l *RPCLedger) call(ctx context.Context, route string, body interface{}) (*rpcResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL+route, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || decoded.Error != "" {
		return nil, fmt.Errorf("%w: %s (status %d)", ErrLedgerRejected, decoded.Error, resp.StatusCode)
	}
	return &decoded, nil
}

func (l *RPCLedger) Migrate(ctx context.Context, recipients []Recipient) (string, error) {
	list := make([]rpcRecipient, len(recipients))
	for i, r := range recipients {
		list[i] = rpcRecipient{Address: r.Address, Amount: r.Amount.String()}
	}
	resp, err := l.call(ctx, "/migrate", map[string]interface{}{"recipients": list})
	if err != nil {
		return "", err
	}
	return resp.BlockHash, nil
}

func (l *RPCLedger) GiveBonuses(ctx context.Context, swapList, vestingList []BonusRecipient) (string, error) {
	toWire := func(in []BonusRecipient) []rpcRecipient {
		out := make([]rpcRecipient, len(in))
		for i, r := range in {
			out[i] = rpcRecipient{Address: r.Address, Amount: r.Amount.String(), BlockOffset: r.BlockOffset}
		}
		return out
	}
	resp, err := l.call(ctx, "/give_bonuses", map[string]interface{}{
		"swap":    toWire(swapList),
		"vesting": toWire(vestingList),
	})
	if err != nil {
		return "", err
	}
	return resp.BlockHash, nil
}

func (l *RPCLedger) GetMigratorDetails(ctx context.Context) (int, *big.Int, error) {
	resp, err := l.call(ctx, "/migrator_details", map[string]interface{}{})
	if err != nil {
		return 0, nil, err
	}
	balance, ok := new(big.Int).SetString(resp.Balance, 10)
	if !ok {
		return 0, nil, fmt.Errorf("%w: bad balance %q", ErrLedgerRejected, resp.Balance)
	}
	return resp.Quota, balance, nil
}

func (l *RPCLedger) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	resp, err := l.call(ctx, "/balance", map[string]interface{}{"address": address})
	if err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(resp.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad balance %q", ErrLedgerRejected, resp.Balance)
	}
	return balance, nil
}
