package etherman

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SimulatedClient is an in-memory ethereumClient for tests: canned
// receipts keyed by txn hash plus a movable chain head.
type SimulatedClient struct {
	mu       sync.Mutex
	receipts map[ethcommon.Hash]*types.Receipt
	head     uint64
}

func NewSimulatedClient() *SimulatedClient {
	return &SimulatedClient{
		receipts: map[ethcommon.Hash]*types.Receipt{},
	}
}

func (c *SimulatedClient) SetHead(blockNumber uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = blockNumber
}

func (c *SimulatedClient) AddReceipt(txnHash ethcommon.Hash, receipt *types.Receipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[txnHash] = receipt
}

// AddTransfer installs a successful single-log ERC-20 Transfer receipt.
func (c *SimulatedClient) AddTransfer(txnHash ethcommon.Hash, contract, from, to ethcommon.Address, value *big.Int, blockNumber uint64) {
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: new(big.Int).SetUint64(blockNumber),
		Logs: []*types.Log{
			{
				Address: contract,
				Topics: []ethcommon.Hash{
					TransferSignatureHash,
					ethcommon.BytesToHash(from.Bytes()),
					ethcommon.BytesToHash(to.Bytes()),
				},
				Data: ethcommon.LeftPadBytes(value.Bytes(), 32),
			},
		},
	}
	c.AddReceipt(txnHash, receipt)
}

func (c *SimulatedClient) TransactionReceipt(_ context.Context, txnHash ethcommon.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	receipt, ok := c.receipts[txnHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (c *SimulatedClient) BlockNumber(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}
