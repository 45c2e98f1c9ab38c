package etherman

import (
	"context"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenContract = ethcommon.HexToAddress("0x0c01cc41cefcd2db39aa53ea1d6d8e70dd62e2f1")
	vaultAddr     = ethcommon.HexToAddress("0xde21f729137c5af1b01d73af1dc21effa2b8a0d6")
	senderAddr    = ethcommon.HexToAddress("0x52908400098527886e0f7030069857d2e4169ee7")
	otherAddr     = ethcommon.HexToAddress("0x8617e340b3d01fa5f11f306f4090fd50e238070d")
)

func newTestEtherman() (*Etherman, *SimulatedClient) {
	client := NewSimulatedClient()
	cfg := &Config{
		TokenContractAddress:  tokenContract,
		VaultAddress:          vaultAddr,
		RequiredConfirmations: 10,
	}
	return NewEthermanWithClient(cfg, client), client
}

func senderHex() string {
	return "52908400098527886e0f7030069857d2e4169ee7"
}

func TestVerifyMissingTxnIsInvalid(t *testing.T) {
	e, client := newTestEtherman()
	client.SetHead(100)

	v, err := e.VerifyTransfer(context.Background(), senderHex(), "aa", 100)
	require.NoError(t, err)
	assert.Equal(t, VerdictInvalid, v.Kind)
	assert.Equal(t, ErrTxnNotFound.Error(), v.Reason)
}

func TestVerifyWrongRecipientIsInvalid(t *testing.T) {
	e, client := newTestEtherman()
	hash := ethcommon.HexToHash("0x01")
	client.AddTransfer(hash, tokenContract, senderAddr, otherAddr, big.NewInt(100), 50)

	v, err := e.VerifyTransfer(context.Background(), senderHex(), hash.Hex(), 100)
	require.NoError(t, err)
	assert.Equal(t, VerdictInvalid, v.Kind)
	assert.Equal(t, ErrNotToVault.Error(), v.Reason)
}

func TestVerifyWrongContractIsInvalid(t *testing.T) {
	e, client := newTestEtherman()
	hash := ethcommon.HexToHash("0x02")
	client.AddTransfer(hash, otherAddr, senderAddr, vaultAddr, big.NewInt(100), 50)

	v, err := e.VerifyTransfer(context.Background(), senderHex(), hash.Hex(), 100)
	require.NoError(t, err)
	assert.Equal(t, VerdictInvalid, v.Kind)
}

func TestVerifySenderMismatchIsInvalid(t *testing.T) {
	e, client := newTestEtherman()
	hash := ethcommon.HexToHash("0x03")
	client.AddTransfer(hash, tokenContract, otherAddr, vaultAddr, big.NewInt(100), 50)

	v, err := e.VerifyTransfer(context.Background(), senderHex(), hash.Hex(), 100)
	require.NoError(t, err)
	assert.Equal(t, VerdictInvalid, v.Kind)
	assert.Equal(t, ErrSenderMismatch.Error(), v.Reason)
}

func TestVerifyRejectedTxnIsInvalid(t *testing.T) {
	e, client := newTestEtherman()
	hash := ethcommon.HexToHash("0x04")
	client.AddReceipt(hash, &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		BlockNumber: big.NewInt(50),
	})

	v, err := e.VerifyTransfer(context.Background(), senderHex(), hash.Hex(), 100)
	require.NoError(t, err)
	assert.Equal(t, VerdictInvalid, v.Kind)
	assert.Equal(t, ErrTxnRejected.Error(), v.Reason)
}

func TestVerifyMultiLogReceiptIsInvalid(t *testing.T) {
	e, client := newTestEtherman()
	hash := ethcommon.HexToHash("0x05")
	client.AddReceipt(hash, &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(50),
		Logs:        []*types.Log{{Address: tokenContract}, {Address: tokenContract}},
	})

	v, err := e.VerifyTransfer(context.Background(), senderHex(), hash.Hex(), 100)
	require.NoError(t, err)
	assert.Equal(t, VerdictInvalid, v.Kind)
	assert.Equal(t, ErrNotTokenTransfer.Error(), v.Reason)
}

func TestVerifyConfirmationDepth(t *testing.T) {
	e, client := newTestEtherman()
	hash := ethcommon.HexToHash("0x06")
	amount := big.NewInt(5000000000000)
	client.AddTransfer(hash, tokenContract, senderAddr, vaultAddr, amount, 50)

	// 50 + 10 confirmations: head 60 is not strictly past, still parsed
	v, err := e.VerifyTransfer(context.Background(), senderHex(), hash.Hex(), 60)
	require.NoError(t, err)
	assert.Equal(t, VerdictParsed, v.Kind)
	assert.Equal(t, amount, v.Amount)
	assert.Equal(t, uint64(50), v.BlockNumber)

	// head 61 is one past the threshold: confirmed
	v, err = e.VerifyTransfer(context.Background(), senderHex(), hash.Hex(), 61)
	require.NoError(t, err)
	assert.Equal(t, VerdictConfirmed, v.Kind)
	assert.Equal(t, amount, v.Amount)
}

func TestVerifySenderCaseInsensitive(t *testing.T) {
	e, client := newTestEtherman()
	hash := ethcommon.HexToHash("0x07")
	client.AddTransfer(hash, tokenContract, senderAddr, vaultAddr, big.NewInt(1), 50)

	v, err := e.VerifyTransfer(context.Background(), "52908400098527886E0F7030069857D2E4169EE7", hash.Hex(), 100)
	require.NoError(t, err)
	assert.Equal(t, VerdictConfirmed, v.Kind)
}
