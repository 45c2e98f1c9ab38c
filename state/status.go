package state

import "errors"

// RequestStatus is the lifecycle stage of a migration request. A request
// only ever moves forward along the order below, except for the explicit
// transition into one of the two absorbing invalid states.
type RequestStatus string

const (
	// Sender address was blacklisted at intake. Terminal.
	StatusInvalidBlacklist RequestStatus = "invalid_blacklist"
	// The referenced txn does not exist, was rejected, was not a token
	// transfer to the vault, or was not from the claimed sender. Terminal.
	StatusInvalid RequestStatus = "invalid"
	// Signature valid, underlying transaction not yet located.
	StatusSigValid RequestStatus = "sig_valid"
	// Transaction decoded as a valid transfer to the vault, confirmations
	// not yet sufficient.
	StatusTxnParsed RequestStatus = "txn_parsed"
	// Sufficient confirmations; eligible for disbursement.
	StatusTxnConfirmed RequestStatus = "txn_confirmed"
	// Initial disbursement landed on the mainnet.
	StatusInitialTransferDone RequestStatus = "initial_transfer_done"
	// Bonus amounts computed, not yet disbursed.
	StatusBonusCalculated RequestStatus = "bonus_calculated"
	// Bonus disbursed. Terminal.
	StatusBonusTransferred RequestStatus = "bonus_transferred"
)

var ErrIllegalTransition = errors.New("illegal request status transition")

// rank orders the forward-moving statuses. The invalid statuses sit
// below sig_valid so that "status only increases" holds trivially for
// the forward path.
func (s RequestStatus) rank() int {
	switch s {
	case StatusInvalidBlacklist:
		return -2
	case StatusInvalid:
		return -1
	case StatusSigValid:
		return 0
	case StatusTxnParsed:
		return 1
	case StatusTxnConfirmed:
		return 2
	case StatusInitialTransferDone:
		return 3
	case StatusBonusCalculated:
		return 4
	case StatusBonusTransferred:
		return 5
	}
	return -3
}

func (s RequestStatus) Valid() bool {
	return s.rank() > -3
}

// Terminal reports whether no further transition can leave s.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusInvalidBlacklist, StatusInvalid, StatusBonusTransferred:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal move. Legal moves
// are one step forward along the lifecycle, the single skip
// sig_valid -> txn_confirmed (transaction already confirmed on first
// sight), and the drop to invalid from any state before the initial
// transfer.
func CanTransition(from, to RequestStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.Terminal() {
		return false
	}

	if to == StatusInvalid {
		// Once tokens moved on the mainnet the request can no longer be
		// invalidated.
		return from.rank() < StatusInitialTransferDone.rank()
	}

	switch from {
	case StatusSigValid:
		return to == StatusTxnParsed || to == StatusTxnConfirmed
	case StatusTxnParsed:
		return to == StatusTxnConfirmed
	case StatusTxnConfirmed:
		return to == StatusInitialTransferDone
	case StatusInitialTransferDone:
		return to == StatusBonusCalculated
	case StatusBonusCalculated:
		return to == StatusBonusTransferred
	}
	return false
}
