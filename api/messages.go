package api

import (
	"fmt"
	"math/big"

	"github.com/docknetwork/migration-go/state"
	"github.com/docknetwork/migration-go/tokenconv"
)

const (
	tokenUnit  = " micro DOCK"
	supportMsg = "Please contact Dock support with your transaction hash for more details."
)

// StatusDetails is what a holder polling their request sees: the bare
// status plus human readable progress messages. Internal error detail
// never leaks here.
type StatusDetails struct {
	Status   state.RequestStatus `json:"status"`
	Messages []string            `json:"messages"`
}

func formatTokens(amount *big.Int) string {
	if amount == nil {
		amount = new(big.Int)
	}
	return amount.String() + tokenUnit
}

// tokenSplit returns the initial payout and, for vesting requests, the
// withheld remainder, both formatted.
func tokenSplit(req *state.MigrationRequest, isVesting bool) (string, string) {
	var flag *bool
	if isVesting {
		flag = &isVesting
	}
	initial := formatTokens(tokenconv.InitialMigrationTokens(req.ERC20Amount, flag))
	if !isVesting {
		return initial, "0"
	}
	return initial, formatTokens(tokenconv.VestingRemainder(req.ERC20Amount))
}

func vestingMessageForUnmigrated(req *state.MigrationRequest) string {
	initial, later := tokenSplit(req, true)
	return fmt.Sprintf("You will be given %s soon and the remaining %s will be given along with a bonus as part of vesting.", initial, later)
}

func vestingMessageForMigrated(req *state.MigrationRequest) string {
	initial, later := tokenSplit(req, true)
	return fmt.Sprintf("You have been given %s and the remaining %s will be given along with a bonus as part of vesting.", initial, later)
}

func isVestingTrue(req *state.MigrationRequest) bool {
	return req.IsVesting != nil && *req.IsVesting
}

// PrepareStatusDetails builds the progress report for one request.
func PrepareStatusDetails(req *state.MigrationRequest) *StatusDetails {
	details := &StatusDetails{Status: req.Status}

	switch req.Status {
	case state.StatusInvalidBlacklist:
		details.Messages = []string{
			"Migration request has been received but the sender address is blacklisted. " + supportMsg,
		}
		return details
	case state.StatusInvalid:
		details.Messages = []string{
			"Migration request has been received but the request is invalid. It may be due to the transaction hash not being for Dock ERC-20 tokens, or the signer of the message did not match the sender or something else. " + supportMsg,
		}
		return details
	}

	first := fmt.Sprintf("You have requested migration for the mainnet address %s", req.MainnetAddress)
	switch {
	case req.IsVesting == nil:
		first += "."
	case *req.IsVesting:
		first += " and have opted for vesting bonus."
	default:
		first += " but have not opted for vesting bonus."
	}
	messages := []string{first}

	switch req.Status {
	case state.StatusSigValid:
		messages = append(messages, "Your request has been received. Waiting for sufficient confirmations to begin the migration. You should check back in a few minutes.")

	case state.StatusTxnParsed, state.StatusTxnConfirmed:
		if req.Status == state.StatusTxnParsed {
			messages = append(messages, "Your request has been received and successfully parsed. It will be migrated soon and you should check back in a few minutes.")
		} else {
			messages = append(messages, "Your request has been received and has had sufficient confirmations. It will be migrated soon and you should check back in a few minutes.")
		}
		if isVestingTrue(req) {
			messages = append(messages, vestingMessageForUnmigrated(req))
		} else if req.IsVesting != nil {
			initial, _ := tokenSplit(req, false)
			messages = append(messages, fmt.Sprintf("You will receive %s soon.", initial))
		}

	case state.StatusInitialTransferDone, state.StatusBonusCalculated:
		// the gap between calculated and transferred is at most one
		// dispatch pass, holders see the same report for both
		messages = append(messages, fmt.Sprintf("Your request has been processed successfully and tokens have been sent to your mainnet address in block 0x%s.", req.MigrationTxnHash))
		if isVestingTrue(req) {
			messages = append(messages, vestingMessageForMigrated(req))
		} else if req.IsVesting != nil {
			initial, _ := tokenSplit(req, false)
			messages = append(messages, fmt.Sprintf("You have been given %s.", initial))
		}

	case state.StatusBonusTransferred:
		messages = append(messages,
			"Your request has been processed successfully and your tokens along with bonus have been transferred to your mainnet address.",
			fmt.Sprintf("The initial tokens were given in block 0x%s.", req.MigrationTxnHash),
		)
		if req.IsVesting != nil {
			messages = append(messages, fmt.Sprintf("Your bonus has been transferred in block 0x%s.", req.BonusTxnHash))
		}
		if isVestingTrue(req) {
			messages = append(messages, fmt.Sprintf("You have been given a swap bonus of %s and %s of your balance is vesting.", formatTokens(req.SwapBonusTokens), formatTokens(req.VestingBonusTokens)))
		} else if req.IsVesting != nil {
			messages = append(messages, fmt.Sprintf("You have been given a swap bonus of %s.", formatTokens(req.SwapBonusTokens)))
		}
	}

	details.Messages = messages
	return details
}
