package etherman

import (
	"context"
	"errors"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/docknetwork/migration-go/common"
)

// VerifyTransfer resolves one claimed transfer against the chain and
// returns a transition decision. Persistence is the caller's job.
//
// claimedSender and txnHash are lowercase hex without 0x prefix, as
// stored. Network errors (node unreachable etc.) are returned as errors
// so the caller retries next cycle; chain facts that disqualify the
// request come back as an invalid verdict instead.
func (e *Etherman) VerifyTransfer(ctx context.Context, claimedSender, txnHash string, currentBlock uint64) (*Verdict, error) {
	hash := ethcommon.HexToHash(common.Prepend0xPrefix(txnHash))

	ev, err := e.GetTransferToVault(ctx, hash)
	if err != nil {
		if isDisqualifying(err) {
			logger.WithFields(logger.Fields{
				"txnHash": txnHash,
				"reason":  err.Error(),
			}).Info("migration transfer disqualified")
			return &Verdict{Kind: VerdictInvalid, Reason: err.Error()}, nil
		}
		return nil, err
	}

	// Decoded sender must be the address the payload signature
	// recovered to, compared case-insensitively.
	decodedFrom := strings.ToLower(common.Trim0xPrefix(ev.From.Hex()))
	if decodedFrom != strings.ToLower(claimedSender) {
		return &Verdict{Kind: VerdictInvalid, Reason: ErrSenderMismatch.Error()}, nil
	}

	// Confirmation age must be strictly positive: the transfer block
	// plus the required depth has to be behind the current head.
	if currentBlock > ev.BlockNumber+e.cfg.RequiredConfirmations {
		return &Verdict{
			Kind:        VerdictConfirmed,
			Amount:      ev.Value,
			BlockNumber: ev.BlockNumber,
		}, nil
	}

	return &Verdict{
		Kind:        VerdictParsed,
		Amount:      ev.Value,
		BlockNumber: ev.BlockNumber,
	}, nil
}

// isDisqualifying separates permanent chain facts from transient
// errors. A disqualified request is never retried.
func isDisqualifying(err error) bool {
	return errors.Is(err, ErrTxnNotFound) ||
		errors.Is(err, ErrTxnRejected) ||
		errors.Is(err, ErrNotTokenTransfer) ||
		errors.Is(err, ErrNotToVault)
}
