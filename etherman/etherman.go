package etherman

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// Transfer(address indexed from, address indexed to, uint256 value)
	TransferSignatureHash = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	ErrTxnNotFound      = errors.New("transaction not found on chain")
	ErrTxnRejected      = errors.New("transaction was rejected by the network")
	ErrNotTokenTransfer = errors.New("not a token contract transfer with a single Transfer log")
	ErrNotToVault       = errors.New("transfer recipient is not the vault address")
	ErrSenderMismatch   = errors.New("transfer sender does not match the claimed address")
)

// ethereumClient is the slice of the Ethereum JSON-RPC surface the
// migration service needs. The simulated client in this package
// implements it for tests.
type ethereumClient interface {
	TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type Etherman struct {
	ethClient ethereumClient
	cfg       *Config
}

func NewEtherman(cfg *Config) (*Etherman, error) {
	ethClient, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	return NewEthermanWithClient(cfg, ethClient), nil
}

// NewEthermanWithClient wires an explicit backend, used by tests.
func NewEthermanWithClient(cfg *Config, client ethereumClient) *Etherman {
	return &Etherman{
		ethClient: client,
		cfg:       cfg,
	}
}

func (e *Etherman) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	return e.ethClient.BlockNumber(ctx)
}

// GetTransferToVault fetches the receipt for txnHash and decodes it as a
// token-contract transfer into the vault. Any deviation from that exact
// shape is returned as a typed error; the caller maps those to the
// invalid request state.
func (e *Etherman) GetTransferToVault(ctx context.Context, txnHash ethcommon.Hash) (*TransferEvent, error) {
	receipt, err := e.ethClient.TransactionReceipt(ctx, txnHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrTxnNotFound
		}
		return nil, err
	}
	if receipt == nil {
		return nil, ErrTxnNotFound
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, ErrTxnRejected
	}

	// A plain ERC-20 transfer produces exactly one log, emitted by the
	// token contract. Anything else is not a qualifying migration
	// deposit.
	if len(receipt.Logs) != 1 {
		return nil, ErrNotTokenTransfer
	}
	log := receipt.Logs[0]
	if log.Address != e.cfg.TokenContractAddress {
		return nil, ErrNotTokenTransfer
	}
	if len(log.Topics) != 3 || log.Topics[0] != TransferSignatureHash {
		return nil, ErrNotTokenTransfer
	}

	ev := &TransferEvent{
		From:        ethcommon.BytesToAddress(log.Topics[1].Bytes()),
		To:          ethcommon.BytesToAddress(log.Topics[2].Bytes()),
		Value:       new(big.Int).SetBytes(log.Data),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}

	if ev.To != e.cfg.VaultAddress {
		return nil, ErrNotToVault
	}

	return ev, nil
}
