package state

import (
	"database/sql"
	"encoding/hex"
	"math/big"

	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/docknetwork/migration-go/common"
)

// RandRequest builds a request in the given status with random identity
// fields, for tests.
func RandRequest(status RequestStatus, isVesting *bool) *MigrationRequest {
	req := &MigrationRequest{
		EthAddress:         hex.EncodeToString(common.RandBytes(20)),
		EthTxnHash:         hex.EncodeToString(common.RandBytes(32)),
		MainnetAddress:     "3" + hex.EncodeToString(common.RandBytes(16)),
		Status:             status,
		Signature:          hex.EncodeToString(common.RandBytes(65)),
		IsVesting:          isVesting,
		SwapBonusTokens:    big.NewInt(0),
		VestingBonusTokens: big.NewInt(0),
	}
	if status.rank() >= StatusTxnParsed.rank() {
		req.ERC20Amount = common.RandBigInt(8)
	}
	if status.rank() >= StatusTxnConfirmed.rank() {
		req.EthTxnBlockNumber = 1000
	}
	if status.rank() >= StatusInitialTransferDone.rank() {
		req.MigrationTxnHash = hex.EncodeToString(common.RandBytes(32))
		req.MigrationTokens = common.RandBigInt(4)
	}
	if status.rank() >= StatusBonusCalculated.rank() {
		req.SwapBonusTokens = common.RandBigInt(4)
		req.VestingBonusTokens = common.RandBigInt(4)
	}
	if status == StatusBonusTransferred {
		req.BonusTxnHash = hex.EncodeToString(common.RandBytes(32))
	}
	return req
}

// SeedRequest walks a request through the lifecycle writers up to
// req.Status, so tests exercise the same guarded transitions production
// does.
func SeedRequest(st *StateDB, req *MigrationRequest) error {
	target := req.Status

	if target == StatusInvalidBlacklist {
		return st.TrackNewRequest(req)
	}

	tracked := *req
	tracked.Status = StatusSigValid
	if err := st.TrackNewRequest(&tracked); err != nil {
		return err
	}
	if target == StatusSigValid {
		return nil
	}

	if target == StatusInvalid {
		return st.MarkRequestInvalid(req.EthAddress, req.EthTxnHash)
	}

	if target == StatusTxnParsed {
		return st.MarkRequestParsed(req.EthAddress, req.EthTxnHash, req.ERC20Amount)
	}

	if err := st.MarkRequestParsedAndConfirmed(req.EthAddress, req.EthTxnHash, req.ERC20Amount, req.EthTxnBlockNumber); err != nil {
		return err
	}
	if target == StatusTxnConfirmed {
		return nil
	}

	if err := st.MarkInitialMigrationDone(req.EthAddress, req.EthTxnHash, req.MigrationTxnHash, req.MigrationTokens); err != nil {
		return err
	}
	if target == StatusInitialTransferDone {
		return nil
	}

	if err := st.UpdateBonuses(req.EthAddress, req.EthTxnHash, req.SwapBonusTokens, req.VestingBonusTokens); err != nil {
		return err
	}
	if target == StatusBonusCalculated {
		return nil
	}

	return st.MarkBonusTransferred(req.EthAddress, req.EthTxnHash, req.BonusTxnHash)
}

func GetMemoryDB() *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	// every pooled connection to :memory: would get its own empty
	// database, so keep the pool at one
	db.SetMaxOpenConns(1)
	return db
}
