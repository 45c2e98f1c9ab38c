// Wire format of migration submissions: a base58-check payload of
// <mainnet address:35><eth txn hash:32>[<vesting flag:1>] plus a
// base58 encoded 65 byte Ethereum signature over the payload string.
// The sender's Ethereum address is never submitted, it is recovered
// from the signature.

package intake

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/docknetwork/migration-go/common"
)

const (
	MainnetAddressSize = 35
	TxnHashSize        = 32
	PayloadSize        = MainnetAddressSize + TxnHashSize
	SignatureSize      = 65
)

var (
	ErrBadPayload     = errors.New("payload is not valid base58-check")
	ErrBadPayloadSize = errors.New("payload has wrong size")
	ErrBadSignature   = errors.New("signature is invalid")
	ErrBadVestingFlag = errors.New("vesting flag must be 0 or 1")
)

// Submission is a fully decoded and signature-checked migration
// request, not yet persisted.
type Submission struct {
	// Base58 mainnet recipient, as submitted.
	MainnetAddress string

	// Recovered signer, lowercase hex without 0x prefix.
	EthAddress string

	// Transfer hash from the payload, lowercase hex without prefix.
	EthTxnHash string

	// Raw signature, hex, persisted for dispute resolution.
	Signature string

	// nil outside the bonus window.
	IsVesting *bool
}

// ParsePayload decodes a submitted payload and signature, verifies the
// mainnet address for networkPrefix and recovers the signing Ethereum
// address. withBonus selects the longer payload carrying the vesting
// flag.
func ParsePayload(payload, signature string, withBonus bool, networkPrefix byte) (*Submission, error) {
	sigBytes := base58.Decode(signature)
	if len(sigBytes) != SignatureSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrBadSignature, SignatureSize, len(sigBytes))
	}

	body, version, err := base58.CheckDecode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	// CheckDecode splits off the leading byte; the address starts there.
	payloadBytes := append([]byte{version}, body...)

	wantSize := PayloadSize
	if withBonus {
		wantSize++
	}
	if len(payloadBytes) != wantSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrBadPayloadSize, wantSize, len(payloadBytes))
	}

	addrBytes := payloadBytes[:MainnetAddressSize]
	if err := ValidateMainnetAddress(addrBytes, networkPrefix); err != nil {
		return nil, err
	}

	var isVesting *bool
	if withBonus {
		switch payloadBytes[PayloadSize] {
		case 0:
			isVesting = new(bool)
		case 1:
			v := true
			isVesting = &v
		default:
			return nil, fmt.Errorf("%w: got %d", ErrBadVestingFlag, payloadBytes[PayloadSize])
		}
	}

	// The signature covers the base58-check string itself, checksum
	// included, exactly as the wallet signed it.
	ethAddress, err := RecoverSigner(payload, sigBytes)
	if err != nil {
		return nil, err
	}

	return &Submission{
		MainnetAddress: base58.Encode(addrBytes),
		EthAddress:     ethAddress,
		EthTxnHash:     hex.EncodeToString(payloadBytes[MainnetAddressSize:PayloadSize]),
		Signature:      hex.EncodeToString(sigBytes),
		IsVesting:      isVesting,
	}, nil
}

// HashMessageForSigning applies the Ethereum personal message prefix
// and returns the keccak-256 digest wallets sign.
func HashMessageForSigning(message string) []byte {
	prefixed := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message)) + message
	return ethcrypto.Keccak256([]byte(prefixed))
}

// RecoverSigner returns the Ethereum address that signed message, as
// lowercase hex without 0x prefix.
func RecoverSigner(message string, sig []byte) (string, error) {
	if len(sig) != SignatureSize {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrBadSignature, SignatureSize, len(sig))
	}

	// Wallets put 27/28 in the recovery byte, SigToPub wants 0/1.
	normalized := make([]byte, SignatureSize)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pubKey, err := ethcrypto.SigToPub(HashMessageForSigning(message), normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	addr := ethcrypto.PubkeyToAddress(*pubKey)
	return common.Trim0xPrefix(strings.ToLower(addr.Hex())), nil
}
