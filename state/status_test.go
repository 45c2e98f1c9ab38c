package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardChain(t *testing.T) {
	chain := []RequestStatus{
		StatusSigValid,
		StatusTxnParsed,
		StatusTxnConfirmed,
		StatusInitialTransferDone,
		StatusBonusCalculated,
		StatusBonusTransferred,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, CanTransition(chain[i], chain[i+1]), "%s -> %s", chain[i], chain[i+1])
	}

	// the one legal skip
	assert.True(t, CanTransition(StatusSigValid, StatusTxnConfirmed))

	// no other skips
	assert.False(t, CanTransition(StatusSigValid, StatusInitialTransferDone))
	assert.False(t, CanTransition(StatusTxnParsed, StatusInitialTransferDone))
	assert.False(t, CanTransition(StatusTxnConfirmed, StatusBonusCalculated))
}

func TestCanTransitionNeverBackward(t *testing.T) {
	chain := []RequestStatus{
		StatusSigValid,
		StatusTxnParsed,
		StatusTxnConfirmed,
		StatusInitialTransferDone,
		StatusBonusCalculated,
		StatusBonusTransferred,
	}
	for i := range chain {
		for j := 0; j <= i; j++ {
			assert.False(t, CanTransition(chain[i], chain[j]), "%s -> %s", chain[i], chain[j])
		}
	}
}

func TestInvalidReachableBeforeInitialTransfer(t *testing.T) {
	assert.True(t, CanTransition(StatusSigValid, StatusInvalid))
	assert.True(t, CanTransition(StatusTxnParsed, StatusInvalid))
	assert.True(t, CanTransition(StatusTxnConfirmed, StatusInvalid))

	// money already moved, no rollback
	assert.False(t, CanTransition(StatusInitialTransferDone, StatusInvalid))
	assert.False(t, CanTransition(StatusBonusCalculated, StatusInvalid))
}

func TestInvalidStatesAbsorbing(t *testing.T) {
	for _, terminal := range []RequestStatus{StatusInvalid, StatusInvalidBlacklist, StatusBonusTransferred} {
		assert.True(t, terminal.Terminal())
		for _, to := range []RequestStatus{
			StatusSigValid, StatusTxnParsed, StatusTxnConfirmed,
			StatusInitialTransferDone, StatusBonusCalculated,
			StatusBonusTransferred, StatusInvalid, StatusInvalidBlacklist,
		} {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusSigValid.Valid())
	assert.False(t, RequestStatus("bogus").Valid())
}
