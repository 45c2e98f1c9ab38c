package etherman

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// TransferEvent is a decoded ERC-20 Transfer(from, to, value) log
// together with the block it landed in.
type TransferEvent struct {
	From        ethcommon.Address
	To          ethcommon.Address
	Value       *big.Int
	BlockNumber uint64
}

// VerdictKind is the verifier's decision for one request.
type VerdictKind int

const (
	// VerdictInvalid: the transaction does not qualify. Not retried; the
	// chain fact will not change.
	VerdictInvalid VerdictKind = iota
	// VerdictParsed: a valid transfer to the vault, confirmations not
	// yet sufficient.
	VerdictParsed
	// VerdictConfirmed: valid and buried deep enough.
	VerdictConfirmed
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictInvalid:
		return "invalid"
	case VerdictParsed:
		return "parsed"
	case VerdictConfirmed:
		return "confirmed"
	}
	return "unknown"
}

// Verdict carries the decision plus the decoded facts the caller
// persists. Reason is set for invalid verdicts, for the log only.
type Verdict struct {
	Kind        VerdictKind
	Amount      *big.Int
	BlockNumber uint64
	Reason      string
}
